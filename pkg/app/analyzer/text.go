package analyzer

import (
	"context"
	"errors"
	"strings"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Synthetic-text indicator cut-offs.
const (
	longTextWords        = 100
	minTypeTokenRatio    = 0.6
	maxSentenceDensity   = 0.1
	syntheticIndicatorsN = 4
)

var aiDisclosurePhrases = []string{"as an ai", "as a language model"}

//go:generate mockery --name=TextAnalyzer --dir=. --output=./mocks --filename=text_analyzer_mock.go --case=underscore --with-expecter
type TextAnalyzer interface {
	Analyze(ctx context.Context, text string) (*moderation.Verdict, error)
}

type textAnalyzer struct {
	logger     *logrus.Logger
	sentiment  scoring.SentimentScorer
	toxicity   scoring.ToxicityScorer
	thresholds moderation.Thresholds
}

// NewTextAnalyzer builds the text analyzer. sentiment may be nil, in which
// case no sentiment is reported.
func NewTextAnalyzer(
	logger *logrus.Logger,
	sentiment scoring.SentimentScorer,
	toxicity scoring.ToxicityScorer,
	thresholds moderation.Thresholds,
) TextAnalyzer {
	return &textAnalyzer{
		logger:     logger,
		sentiment:  sentiment,
		toxicity:   toxicity,
		thresholds: thresholds,
	}
}

func (a *textAnalyzer) Analyze(ctx context.Context, text string) (*moderation.Verdict, error) {
	if strings.TrimSpace(text) == "" {
		return nil, moderation.NewValidationError("content", "text must not be empty")
	}
	unit := moderation.NewTextUnit(text)

	var (
		sentiment *moderation.Sentiment
		toxicity  []moderation.LabelScore
	)
	g, gctx := errgroup.WithContext(ctx)
	if a.sentiment != nil {
		g.Go(func() error {
			s, err := a.sentiment.Sentiment(gctx, unit.Text())
			if err != nil {
				return providerError(a.sentiment, scoring.CapabilitySentiment, err)
			}
			sentiment = &s
			return nil
		})
	}
	g.Go(func() error {
		t, err := a.toxicity.Toxicity(gctx, unit.Text())
		if err != nil {
			return providerError(a.toxicity, scoring.CapabilityToxicity, err)
		}
		toxicity = t
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	indicators := SyntheticTextIndicators(unit.Text())
	top := moderation.MaxLabel(toxicity)

	verdict := &moderation.Verdict{
		IsInappropriate:   anyLabelExceeds(toxicity, a.thresholds.Toxicity),
		IsSynthetic:       moderation.Exceeds(indicators.Score, a.thresholds.SyntheticText),
		SyntheticAssessed: true,
		Scores: moderation.NewScoreSet(
			moderation.ScoreEntry{Name: moderation.SignalToxicity, Value: top.Score, Label: top.Label},
			moderation.ScoreEntry{Name: moderation.SignalSynthetic, Value: indicators.Score},
		),
		Details: moderation.Details{
			Sentiment:           sentiment,
			Toxicity:            toxicity,
			SyntheticIndicators: &indicators,
		},
	}
	for _, l := range toxicity {
		if l.Fallback {
			verdict.Details.Warnings = append(verdict.Details.Warnings, "toxicity label "+l.Label+" uses the fallback score")
		}
	}
	return verdict, nil
}

// SyntheticTextIndicators evaluates four independent boolean signals on
// whitespace-separated words and averages them, so Score is one of
// 0, 0.25, 0.5, 0.75 or 1.
func SyntheticTextIndicators(text string) moderation.TextIndicators {
	words := strings.Fields(text)
	ind := moderation.TextIndicators{WordCount: len(words)}
	if len(words) == 0 {
		return ind
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	n := float64(len(words))

	ind.Length = boolScore(len(words) > longTextWords)
	ind.Repetition = boolScore(float64(len(unique))/n < minTypeTokenRatio)
	ind.Punctuation = boolScore(float64(strings.Count(text, "."))/n > maxSentenceDensity)
	lower := strings.ToLower(text)
	for _, p := range aiDisclosurePhrases {
		if strings.Contains(lower, p) {
			ind.SelfReference = 1
			break
		}
	}
	ind.Score = (ind.Length + ind.Repetition + ind.Punctuation + ind.SelfReference) / syntheticIndicatorsN
	return ind
}

func anyLabelExceeds(scores []moderation.LabelScore, threshold float64) bool {
	for _, s := range scores {
		if moderation.Exceeds(s.Score, threshold) {
			return true
		}
	}
	return false
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// providerError tags a scorer failure with its provider unless it is a
// context error or already tagged.
func providerError(scorer any, capability string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return moderation.NewScoringProviderError(scoring.NameOf(scorer), capability, err)
}
