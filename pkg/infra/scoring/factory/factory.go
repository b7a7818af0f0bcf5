package factory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bedrockpool "github.com/NeuralTrust/TrustModeration/pkg/infra/bedrock"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/dsp"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/httpx"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/providers"
	providerfactory "github.com/NeuralTrust/TrustModeration/pkg/infra/providers/factory"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/azure"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/bedrock"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/ensemble"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/gemini"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/hive"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/lexicon"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/llm"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/neuraltrust"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/openai"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/whisper"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
)

const (
	ProviderNone        = "none"
	ProviderLexicon     = "lexicon"
	ProviderLLM         = "llm"
	ProviderOpenAI      = "openai"
	ProviderNeuralTrust = "neuraltrust"
	ProviderAzure       = "azure"
	ProviderBedrock     = "bedrock"
	ProviderEnsemble    = "ensemble"
	ProviderHive        = "hive"
	ProviderWhisper     = "whisper"
	ProviderGemini      = "gemini"
)

var ErrUnknownProvider = errors.New("unknown scoring provider")

// ProviderConfig selects one scoring backend. Settings are decoded into the
// backend's own config struct. Members is only read by the ensemble.
type ProviderConfig struct {
	Provider string           `mapstructure:"provider"`
	Settings map[string]any   `mapstructure:"settings"`
	Members  []ProviderConfig `mapstructure:"members"`
}

func (p ProviderConfig) name() string {
	return strings.ToLower(strings.TrimSpace(p.Provider))
}

type ScorersDI struct {
	Client      httpx.Client
	Locator     providerfactory.ProviderLocator
	BedrockPool *bedrockpool.Pool
	Logger      *logrus.Logger
}

type llmSettings struct {
	Provider         string `mapstructure:"provider"`
	providers.Config `mapstructure:",squash"`
}

type openaiTranscriberSettings struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type geminiTranscriberSettings struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type neuraltrustSettings struct {
	neuraltrust.Credentials `mapstructure:",squash"`
	BreakerTimeout          time.Duration `mapstructure:"breaker_timeout"`
	BreakerMaxFailures      uint32        `mapstructure:"breaker_max_failures"`
}

func decode(settings map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(settings)
}

// NewSentimentScorer returns nil for an empty or "none" provider, which
// disables sentiment reporting.
func NewSentimentScorer(p ProviderConfig, di ScorersDI) (scoring.SentimentScorer, error) {
	switch p.name() {
	case "", ProviderNone:
		return nil, nil
	case ProviderLexicon:
		return scoring.InstrumentSentiment(lexicon.NewSentimentScorer()), nil
	case ProviderLLM:
		s, err := newLLMScorer(p, di)
		if err != nil {
			return nil, err
		}
		return scoring.InstrumentSentiment(s), nil
	}
	return nil, fmt.Errorf("%w for sentiment: %s", ErrUnknownProvider, p.Provider)
}

func NewToxicityScorer(p ProviderConfig, di ScorersDI) (scoring.ToxicityScorer, error) {
	s, err := newToxicity(p, di)
	if err != nil {
		return nil, err
	}
	return scoring.InstrumentToxicity(s), nil
}

func newToxicity(p ProviderConfig, di ScorersDI) (scoring.ToxicityScorer, error) {
	switch p.name() {
	case "", ProviderLexicon:
		return lexicon.NewToxicityScorer(), nil
	case ProviderLLM:
		return newLLMScorer(p, di)
	case ProviderOpenAI:
		var cfg openai.ModerationConfig
		if err := decode(p.Settings, &cfg); err != nil {
			return nil, fmt.Errorf("invalid openai settings: %w", err)
		}
		if cfg.APIKey == "" {
			return nil, errors.New("openai moderation requires api_key")
		}
		return openai.NewModerationClient(di.Client, cfg, di.Logger), nil
	case ProviderNeuralTrust:
		var cfg neuraltrustSettings
		if err := decode(p.Settings, &cfg); err != nil {
			return nil, fmt.Errorf("invalid neuraltrust settings: %w", err)
		}
		if cfg.BaseURL == "" {
			return nil, errors.New("neuraltrust toxicity requires base_url")
		}
		if cfg.BreakerTimeout <= 0 {
			cfg.BreakerTimeout = 30 * time.Second
		}
		if cfg.BreakerMaxFailures == 0 {
			cfg.BreakerMaxFailures = 5
		}
		breaker := httpx.NewCircuitBreaker("neuraltrust-toxicity", cfg.BreakerTimeout, cfg.BreakerMaxFailures, di.Logger)
		return neuraltrust.NewToxicityClient(di.Client, cfg.Credentials, di.Logger, breaker), nil
	case ProviderAzure:
		var cfg azure.Config
		if err := decode(p.Settings, &cfg); err != nil {
			return nil, fmt.Errorf("invalid azure settings: %w", err)
		}
		return azure.NewContentSafetyClient(di.Client, cfg, di.Logger)
	case ProviderBedrock:
		var cfg bedrock.GuardrailConfig
		if err := decode(p.Settings, &cfg); err != nil {
			return nil, fmt.Errorf("invalid bedrock settings: %w", err)
		}
		if di.BedrockPool == nil {
			return nil, errors.New("bedrock guardrail requires a client pool")
		}
		return bedrock.NewGuardrailScorer(di.BedrockPool, cfg)
	case ProviderEnsemble:
		if len(p.Members) == 0 {
			return nil, errors.New("ensemble requires at least one member")
		}
		members := make([]scoring.ToxicityScorer, 0, len(p.Members))
		for i, m := range p.Members {
			if m.name() == ProviderEnsemble {
				return nil, fmt.Errorf("ensemble member %d: nested ensembles are not supported", i)
			}
			s, err := NewToxicityScorer(m, di)
			if err != nil {
				return nil, fmt.Errorf("ensemble member %d: %w", i, err)
			}
			members = append(members, s)
		}
		return ensemble.NewToxicity(members...)
	}
	return nil, fmt.Errorf("%w for toxicity: %s", ErrUnknownProvider, p.Provider)
}

func NewImageScorer(p ProviderConfig, di ScorersDI) (scoring.ImageScorer, error) {
	var (
		s   scoring.ImageScorer
		err error
	)
	switch p.name() {
	case ProviderOpenAI:
		var cfg openai.ModerationConfig
		if err = decode(p.Settings, &cfg); err != nil {
			return nil, fmt.Errorf("invalid openai settings: %w", err)
		}
		if cfg.APIKey == "" {
			return nil, errors.New("openai moderation requires api_key")
		}
		s = openai.NewModerationClient(di.Client, cfg, di.Logger)
	case ProviderAzure:
		var cfg azure.Config
		if err = decode(p.Settings, &cfg); err != nil {
			return nil, fmt.Errorf("invalid azure settings: %w", err)
		}
		s, err = azure.NewContentSafetyClient(di.Client, cfg, di.Logger)
	case ProviderHive:
		var cfg hive.Config
		if err = decode(p.Settings, &cfg); err != nil {
			return nil, fmt.Errorf("invalid hive settings: %w", err)
		}
		s, err = hive.NewClient(di.Client, cfg, di.Logger)
	default:
		return nil, fmt.Errorf("%w for nsfw: %s", ErrUnknownProvider, p.Provider)
	}
	if err != nil {
		return nil, err
	}
	return scoring.InstrumentImage(s), nil
}

// NewTranscriber returns nil for an empty or "none" provider.
func NewTranscriber(ctx context.Context, p ProviderConfig, di ScorersDI) (scoring.AudioTranscriber, error) {
	var (
		t   scoring.AudioTranscriber
		err error
	)
	switch p.name() {
	case "", ProviderNone:
		return nil, nil
	case ProviderOpenAI:
		var cfg openaiTranscriberSettings
		if err = decode(p.Settings, &cfg); err != nil {
			return nil, fmt.Errorf("invalid openai settings: %w", err)
		}
		if cfg.APIKey == "" {
			return nil, errors.New("openai transcription requires api_key")
		}
		t = openai.NewTranscriber(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case ProviderWhisper:
		var cfg whisper.Config
		if err = decode(p.Settings, &cfg); err != nil {
			return nil, fmt.Errorf("invalid whisper settings: %w", err)
		}
		t, err = whisper.NewClient(di.Client, cfg, di.Logger)
	case ProviderGemini:
		var cfg geminiTranscriberSettings
		if err = decode(p.Settings, &cfg); err != nil {
			return nil, fmt.Errorf("invalid gemini settings: %w", err)
		}
		if cfg.APIKey == "" {
			return nil, errors.New("gemini transcription requires api_key")
		}
		t, err = gemini.NewTranscriber(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("%w for transcription: %s", ErrUnknownProvider, p.Provider)
	}
	if err != nil {
		return nil, err
	}
	return scoring.InstrumentTranscriber(t), nil
}

func NewFeatureExtractor(cfg dsp.Config) (scoring.AudioFeatureExtractor, error) {
	e, err := dsp.NewFeatureExtractor(cfg)
	if err != nil {
		return nil, err
	}
	return scoring.InstrumentFeatures(e), nil
}

func newLLMScorer(p ProviderConfig, di ScorersDI) (*llm.Scorer, error) {
	var cfg llmSettings
	if err := decode(p.Settings, &cfg); err != nil {
		return nil, fmt.Errorf("invalid llm settings: %w", err)
	}
	if cfg.Provider == "" {
		return nil, errors.New("llm scorer requires settings.provider")
	}
	if di.Locator == nil {
		return nil, errors.New("llm scorer requires a provider locator")
	}
	client, err := di.Locator.Get(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return llm.NewScorer(cfg.Provider, client, cfg.Config, di.Logger), nil
}
