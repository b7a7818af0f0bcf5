package llm

import (
	"context"
	"fmt"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/providers"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
)

const (
	systemPrompt = "You are a content moderation classifier. Answer with JSON only, no prose."

	toxicityPrompt = `Rate how toxic the following text is, from 0 (harmless) to 1 (extremely toxic).
Reply exactly as {"toxicity": <number>}.

Text:
%s`

	sentimentPrompt = `Score the sentiment of the following text.
Reply exactly as {"neg": <0..1>, "neu": <0..1>, "pos": <0..1>, "compound": <-1..1>}.

Text:
%s`
)

// Scorer asks a chat model for toxicity and sentiment. Replies that cannot
// be read fall back to FallbackScore (toxicity) or neutral (sentiment) and
// the label is marked as a fallback.
type Scorer struct {
	provider string
	client   providers.Client
	config   providers.Config
	logger   *logrus.Logger
}

func NewScorer(provider string, client providers.Client, config providers.Config, logger *logrus.Logger) *Scorer {
	if config.SystemPrompt == "" {
		config.SystemPrompt = systemPrompt
	}
	return &Scorer{provider: provider, client: client, config: config, logger: logger}
}

func (s *Scorer) Name() string {
	return "llm:" + s.provider
}

func (s *Scorer) Toxicity(ctx context.Context, text string) ([]moderation.LabelScore, error) {
	cfg := s.config
	resp, err := s.client.Ask(ctx, &cfg, fmt.Sprintf(toxicityPrompt, text))
	if err != nil {
		return nil, err
	}
	result := ParseScore(resp.Response, "toxicity")
	if !result.OK() {
		s.logger.WithError(result.Err).WithField("provider", s.provider).Warn("unreadable toxicity reply, using fallback score")
	}
	return []moderation.LabelScore{{
		Label:    "toxicity",
		Score:    result.OrFallback(FallbackScore),
		Fallback: !result.OK(),
	}}, nil
}

func (s *Scorer) Sentiment(ctx context.Context, text string) (moderation.Sentiment, error) {
	cfg := s.config
	resp, err := s.client.Ask(ctx, &cfg, fmt.Sprintf(sentimentPrompt, text))
	if err != nil {
		return moderation.Sentiment{}, err
	}
	sentiment, perr := parseSentiment(resp.Response)
	if perr != nil {
		s.logger.WithError(perr).WithField("provider", s.provider).Warn("unreadable sentiment reply, using neutral")
		return moderation.Sentiment{Neutral: 1}, nil
	}
	return sentiment, nil
}

func parseSentiment(reply string) (moderation.Sentiment, error) {
	var p fastjson.Parser
	v, err := p.Parse(stripFences(reply))
	if err != nil {
		return moderation.Sentiment{}, &moderation.ParseError{Input: reply, Err: err}
	}
	obj, err := v.Object()
	if err != nil {
		return moderation.Sentiment{}, &moderation.ParseError{Input: reply, Err: err}
	}
	if obj.Get("compound") == nil {
		return moderation.Sentiment{}, &moderation.ParseError{Input: reply, Err: moderation.ErrUnparsableText}
	}
	compound := v.GetFloat64("compound")
	if compound < -1 {
		compound = -1
	} else if compound > 1 {
		compound = 1
	}
	return moderation.Sentiment{
		Negative: moderation.Clamp01(v.GetFloat64("neg")),
		Neutral:  moderation.Clamp01(v.GetFloat64("neu")),
		Positive: moderation.Clamp01(v.GetFloat64("pos")),
		Compound: compound,
	}, nil
}
