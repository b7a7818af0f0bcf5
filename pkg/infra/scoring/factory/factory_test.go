package factory_test

import (
	"context"
	"testing"

	"github.com/NeuralTrust/TrustModeration/pkg/infra/dsp"
	httpxmocks "github.com/NeuralTrust/TrustModeration/pkg/infra/httpx/mocks"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/providers"
	providermocks "github.com/NeuralTrust/TrustModeration/pkg/infra/providers/mocks"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/factory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newDI() (factory.ScorersDI, *providermocks.MockProviderLocator) {
	locator := &providermocks.MockProviderLocator{}
	return factory.ScorersDI{
		Client:  &httpxmocks.MockHTTPClient{},
		Locator: locator,
		Logger:  logrus.New(),
	}, locator
}

func TestNewSentimentScorer(t *testing.T) {
	di, _ := newDI()

	s, err := factory.NewSentimentScorer(factory.ProviderConfig{}, di)
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = factory.NewSentimentScorer(factory.ProviderConfig{Provider: "Lexicon"}, di)
	require.NoError(t, err)
	assert.Equal(t, "lexicon", scoring.NameOf(s))

	_, err = factory.NewSentimentScorer(factory.ProviderConfig{Provider: "azure"}, di)
	assert.ErrorIs(t, err, factory.ErrUnknownProvider)
}

func TestNewToxicityScorer_DefaultsToLexicon(t *testing.T) {
	di, _ := newDI()
	s, err := factory.NewToxicityScorer(factory.ProviderConfig{}, di)
	require.NoError(t, err)
	assert.Equal(t, "lexicon", scoring.NameOf(s))
}

func TestNewToxicityScorer_LLM(t *testing.T) {
	di, locator := newDI()
	client := &providermocks.MockClient{}
	locator.On("Get", "gemini").Return(client, nil)
	client.On("Ask", mock.Anything, mock.MatchedBy(func(cfg *providers.Config) bool {
		return cfg.Model == "gemini-2.0-flash" && cfg.Credentials.ApiKey == "k"
	}), mock.Anything).Return(&providers.CompletionResponse{Response: `{"toxicity": 0.9}`}, nil)

	s, err := factory.NewToxicityScorer(factory.ProviderConfig{
		Provider: "llm",
		Settings: map[string]any{
			"provider":    "gemini",
			"model":       "gemini-2.0-flash",
			"credentials": map[string]any{"api_key": "k"},
		},
	}, di)
	require.NoError(t, err)
	assert.Equal(t, "llm:gemini", scoring.NameOf(s))

	scores, err := s.Toxicity(context.Background(), "text")
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.InDelta(t, 0.9, scores[0].Score, 1e-9)
	locator.AssertExpectations(t)
}

func TestNewToxicityScorer_LLMRequiresProvider(t *testing.T) {
	di, _ := newDI()
	_, err := factory.NewToxicityScorer(factory.ProviderConfig{Provider: "llm"}, di)
	assert.Error(t, err)
}

func TestNewToxicityScorer_Ensemble(t *testing.T) {
	di, _ := newDI()
	s, err := factory.NewToxicityScorer(factory.ProviderConfig{
		Provider: "ensemble",
		Members: []factory.ProviderConfig{
			{Provider: "lexicon"},
			{Provider: "neuraltrust", Settings: map[string]any{
				"base_url":             "http://firewall:8080",
				"token":                "t",
				"breaker_timeout":      "10s",
				"breaker_max_failures": "3",
			}},
		},
	}, di)
	require.NoError(t, err)
	assert.Equal(t, "ensemble(lexicon,neuraltrust)", scoring.NameOf(s))
}

func TestNewToxicityScorer_InvalidMembers(t *testing.T) {
	di, _ := newDI()
	_, err := factory.NewToxicityScorer(factory.ProviderConfig{Provider: "ensemble"}, di)
	assert.Error(t, err)

	_, err = factory.NewToxicityScorer(factory.ProviderConfig{
		Provider: "ensemble",
		Members:  []factory.ProviderConfig{{Provider: "ensemble"}},
	}, di)
	assert.ErrorContains(t, err, "nested")
}

func TestNewToxicityScorer_MissingSettings(t *testing.T) {
	di, _ := newDI()
	for _, name := range []string{"openai", "neuraltrust", "azure", "bedrock"} {
		_, err := factory.NewToxicityScorer(factory.ProviderConfig{Provider: name}, di)
		assert.Error(t, err, name)
	}
}

func TestNewImageScorer(t *testing.T) {
	di, _ := newDI()

	s, err := factory.NewImageScorer(factory.ProviderConfig{
		Provider: "hive",
		Settings: map[string]any{"token": "secret", "classes": []string{"yes_sexual_activity"}},
	}, di)
	require.NoError(t, err)
	assert.Equal(t, "hive", scoring.NameOf(s))

	s, err = factory.NewImageScorer(factory.ProviderConfig{
		Provider: "openai",
		Settings: map[string]any{"api_key": "sk-test"},
	}, di)
	require.NoError(t, err)
	assert.Equal(t, "openai", scoring.NameOf(s))

	_, err = factory.NewImageScorer(factory.ProviderConfig{Provider: "hive"}, di)
	assert.Error(t, err)

	_, err = factory.NewImageScorer(factory.ProviderConfig{Provider: "lexicon"}, di)
	assert.ErrorIs(t, err, factory.ErrUnknownProvider)
}

func TestNewTranscriber(t *testing.T) {
	di, _ := newDI()

	tr, err := factory.NewTranscriber(context.Background(), factory.ProviderConfig{Provider: "none"}, di)
	require.NoError(t, err)
	assert.Nil(t, tr)

	tr, err = factory.NewTranscriber(context.Background(), factory.ProviderConfig{
		Provider: "whisper",
		Settings: map[string]any{"base_url": "http://whisper:8080/", "language": "en"},
	}, di)
	require.NoError(t, err)
	assert.Equal(t, "whisper", scoring.NameOf(tr))

	tr, err = factory.NewTranscriber(context.Background(), factory.ProviderConfig{
		Provider: "openai",
		Settings: map[string]any{"api_key": "sk-test"},
	}, di)
	require.NoError(t, err)
	assert.Equal(t, "openai-whisper", scoring.NameOf(tr))

	_, err = factory.NewTranscriber(context.Background(), factory.ProviderConfig{Provider: "gemini"}, di)
	assert.Error(t, err)

	_, err = factory.NewTranscriber(context.Background(), factory.ProviderConfig{Provider: "hive"}, di)
	assert.ErrorIs(t, err, factory.ErrUnknownProvider)
}

func TestNewFeatureExtractor(t *testing.T) {
	e, err := factory.NewFeatureExtractor(dsp.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "dsp", scoring.NameOf(e))

	_, err = factory.NewFeatureExtractor(dsp.Config{FrameLength: 2047})
	assert.Error(t, err)
}
