package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/NeuralTrust/TrustModeration/pkg/infra/logger"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/providers"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/providers/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  float64
		ok    bool
	}{
		{name: "json object", reply: `{"toxicity": 0.82}`, want: 0.82, ok: true},
		{name: "bare number", reply: "0.3", want: 0.3, ok: true},
		{name: "string field", reply: `{"toxicity": "0.4"}`, want: 0.4, ok: true},
		{name: "free text", reply: "I would rate it 0.65 overall.", want: 0.65, ok: true},
		{name: "no number", reply: "cannot determine", ok: false},
		{name: "empty", reply: "  ", ok: false},
		{name: "above range clamps", reply: `{"toxicity": 7}`, want: 1, ok: true},
		{name: "bare number above range", reply: "1.5", want: 1, ok: true},
		{name: "negative clamps", reply: "-0.2", want: 0, ok: true},
		{name: "missing key", reply: `{"score": 0.2}`, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ParseScore(tt.reply, "toxicity")
			assert.Equal(t, tt.ok, r.OK())
			if tt.ok {
				assert.InDelta(t, tt.want, r.Value, 1e-9)
			} else {
				assert.Equal(t, FallbackScore, r.OrFallback(FallbackScore))
				assert.Equal(t, tt.reply, r.Err.Input)
			}
		})
	}
}

func TestScorer_Toxicity(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("Ask", mock.Anything, mock.Anything, mock.AnythingOfType("string")).
		Return(&providers.CompletionResponse{Response: "```json\n{\"toxicity\": 0.91}\n```"}, nil).Once()

	s := NewScorer("openai", client, providers.Config{Model: "gpt-4o-mini"}, logger.NewNopLogger())
	scores, err := s.Toxicity(context.Background(), "you are awful")

	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 0.91, scores[0].Score)
	assert.False(t, scores[0].Fallback)
	assert.Equal(t, "llm:openai", s.Name())
}

func TestScorer_ToxicityFallback(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("Ask", mock.Anything, mock.Anything, mock.Anything).
		Return(&providers.CompletionResponse{Response: "I'd rather not say."}, nil)

	s := NewScorer("gemini", client, providers.Config{}, logger.NewNopLogger())
	scores, err := s.Toxicity(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, FallbackScore, scores[0].Score)
	assert.True(t, scores[0].Fallback)
}

func TestScorer_ToxicityClampsOutOfRange(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("Ask", mock.Anything, mock.Anything, mock.Anything).
		Return(&providers.CompletionResponse{Response: "1.5"}, nil).Once()

	s := NewScorer("gemini", client, providers.Config{}, logger.NewNopLogger())
	scores, err := s.Toxicity(context.Background(), "you are worthless")

	require.NoError(t, err)
	assert.Equal(t, 1.0, scores[0].Score)
	assert.False(t, scores[0].Fallback)
}

func TestScorer_ProviderError(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("Ask", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

	s := NewScorer("anthropic", client, providers.Config{}, logger.NewNopLogger())
	_, err := s.Toxicity(context.Background(), "text")
	assert.EqualError(t, err, "rate limited")
}

func TestScorer_Sentiment(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("Ask", mock.Anything, mock.Anything, mock.Anything).
		Return(&providers.CompletionResponse{Response: `{"neg": 0.7, "neu": 0.3, "pos": 0, "compound": -0.8}`}, nil).Once()
	client.On("Ask", mock.Anything, mock.Anything, mock.Anything).
		Return(&providers.CompletionResponse{Response: "negative"}, nil).Once()

	s := NewScorer("openai", client, providers.Config{}, logger.NewNopLogger())

	got, err := s.Sentiment(context.Background(), "bad")
	require.NoError(t, err)
	assert.Equal(t, -0.8, got.Compound)
	assert.Equal(t, 0.7, got.Negative)

	got, err = s.Sentiment(context.Background(), "bad")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Neutral)
	assert.Equal(t, 0.0, got.Compound)
}
