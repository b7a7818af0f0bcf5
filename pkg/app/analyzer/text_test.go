package analyzer_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/NeuralTrust/TrustModeration/pkg/app/analyzer"
	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestTextAnalyzer_ToxicityThresholdIsStrict(t *testing.T) {
	cases := []struct {
		score float64
		want  bool
	}{
		{0.69, false},
		{0.70, false},
		{0.71, true},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%.2f", tc.score), func(t *testing.T) {
			tox := &mocks.MockToxicityScorer{}
			tox.On("Toxicity", mock.Anything, "some text").
				Return([]moderation.LabelScore{{Label: "insult", Score: 0.1}, {Label: "toxic", Score: tc.score}}, nil)

			a := analyzer.NewTextAnalyzer(newTestLogger(), nil, tox, moderation.DefaultThresholds())
			v, err := a.Analyze(context.Background(), "some text")
			require.NoError(t, err)
			assert.Equal(t, tc.want, v.IsInappropriate)

			s, ok := v.Scores.Get(moderation.SignalToxicity)
			require.True(t, ok)
			assert.Equal(t, "toxic", s.Label)
			assert.InDelta(t, tc.score, s.Value, 1e-9)
		})
	}
}

func TestTextAnalyzer_HatefulMessage(t *testing.T) {
	text := "I hate you, you are so dumb"
	tox := &mocks.MockToxicityScorer{}
	tox.On("Toxicity", mock.Anything, text).Return([]moderation.LabelScore{{Label: "toxic", Score: 0.85}}, nil)
	sent := &mocks.MockSentimentScorer{}
	sent.On("Sentiment", mock.Anything, text).Return(moderation.Sentiment{Negative: 0.6, Neutral: 0.4, Compound: -0.8}, nil)

	a := analyzer.NewTextAnalyzer(newTestLogger(), sent, tox, moderation.DefaultThresholds())
	v, err := a.Analyze(context.Background(), text)
	require.NoError(t, err)

	assert.True(t, v.IsInappropriate)
	assert.False(t, v.IsSynthetic)
	assert.True(t, v.SyntheticAssessed)
	require.NotNil(t, v.Details.Sentiment)
	assert.InDelta(t, -0.8, v.Details.Sentiment.Compound, 1e-9)
	require.NotNil(t, v.Details.SyntheticIndicators)
	assert.Equal(t, 7, v.Details.SyntheticIndicators.WordCount)
	tox.AssertExpectations(t)
	sent.AssertExpectations(t)
}

func TestTextAnalyzer_BlankInput(t *testing.T) {
	tox := &mocks.MockToxicityScorer{}
	a := analyzer.NewTextAnalyzer(newTestLogger(), nil, tox, moderation.DefaultThresholds())

	_, err := a.Analyze(context.Background(), "   \n\t")
	assert.True(t, moderation.IsValidationError(err))
	tox.AssertNotCalled(t, "Toxicity", mock.Anything, mock.Anything)
}

func TestTextAnalyzer_ProviderFailurePropagates(t *testing.T) {
	tox := &mocks.MockToxicityScorer{}
	tox.On("Toxicity", mock.Anything, "hello").Return(nil, errors.New("upstream 503"))

	a := analyzer.NewTextAnalyzer(newTestLogger(), nil, tox, moderation.DefaultThresholds())
	_, err := a.Analyze(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, moderation.IsScoringProviderError(err))
	assert.ErrorContains(t, err, "upstream 503")
}

func TestTextAnalyzer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tox := &mocks.MockToxicityScorer{}
	tox.On("Toxicity", mock.Anything, "hello").Return(nil, context.Canceled)

	a := analyzer.NewTextAnalyzer(newTestLogger(), nil, tox, moderation.DefaultThresholds())
	_, err := a.Analyze(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, moderation.IsScoringProviderError(err))
}

func TestTextAnalyzer_FallbackLabelsWarn(t *testing.T) {
	tox := &mocks.MockToxicityScorer{}
	tox.On("Toxicity", mock.Anything, "hello").Return([]moderation.LabelScore{{Label: "toxic", Score: 0.5, Fallback: true}}, nil)

	a := analyzer.NewTextAnalyzer(newTestLogger(), nil, tox, moderation.DefaultThresholds())
	v, err := a.Analyze(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, v.Details.Warnings, 1)
	assert.Contains(t, v.Details.Warnings[0], "toxic")
}

func TestSyntheticTextIndicators_NoneAndAll(t *testing.T) {
	none := analyzer.SyntheticTextIndicators("the quick brown fox jumps over the lazy dog")
	assert.Zero(t, none.Score)

	all := analyzer.SyntheticTextIndicators(strings.Repeat("As an AI. ", 40))
	assert.Equal(t, 120, all.WordCount)
	assert.Equal(t, 1.0, all.Length)
	assert.Equal(t, 1.0, all.Repetition)
	assert.Equal(t, 1.0, all.Punctuation)
	assert.Equal(t, 1.0, all.SelfReference)
	assert.Equal(t, 1.0, all.Score)
}

func TestSyntheticTextIndicators_Single(t *testing.T) {
	ind := analyzer.SyntheticTextIndicators("Well, as a language model I cannot say")
	assert.Equal(t, 1.0, ind.SelfReference)
	assert.Equal(t, 0.25, ind.Score)
}

func TestSyntheticTextIndicators_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOf(rapid.StringMatching(`[a-z]{1,6}\.?`)).Draw(t, "words")
		if rapid.Bool().Draw(t, "disclose") {
			words = append(words, "as", "an", "ai")
		}
		ind := analyzer.SyntheticTextIndicators(strings.Join(words, " "))

		sum := ind.Length + ind.Repetition + ind.Punctuation + ind.SelfReference
		if ind.Score != sum/4 {
			t.Fatalf("score %v is not the mean of its indicators (%v)", ind.Score, sum)
		}
		quarters := ind.Score * 4
		if quarters != float64(int(quarters)) || ind.Score < 0 || ind.Score > 1 {
			t.Fatalf("score %v outside {0, 0.25, 0.5, 0.75, 1}", ind.Score)
		}
	})
}
