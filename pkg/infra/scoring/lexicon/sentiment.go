package lexicon

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
)

const (
	normalizationAlpha = 15.0
	boosterIncrement   = 0.293
	capsIncrement      = 0.733
	negationScalar     = -0.74
	exclamationBoost   = 0.292
)

// SentimentScorer is a rule-based valence scorer. Compound lies in [-1, 1];
// neg, neu and pos are proportions that sum to 1.
type SentimentScorer struct {
	valence map[string]float64
}

func NewSentimentScorer() *SentimentScorer {
	return &SentimentScorer{valence: valenceLexicon}
}

func (s *SentimentScorer) Name() string { return "lexicon" }

func (s *SentimentScorer) Sentiment(ctx context.Context, text string) (moderation.Sentiment, error) {
	if err := ctx.Err(); err != nil {
		return moderation.Sentiment{}, err
	}
	return s.score(text), nil
}

func (s *SentimentScorer) score(text string) moderation.Sentiment {
	raw := strings.Fields(text)
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		if t := strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && r != '\'' }); t != "" {
			words = append(words, t)
		}
	}
	if len(words) == 0 {
		return moderation.Sentiment{Neutral: 1}
	}
	mixedCase := hasMixedCase(words)

	valences := make([]float64, len(words))
	butIndex := -1
	for i, w := range words {
		lw := strings.ToLower(w)
		if lw == "but" && butIndex < 0 {
			butIndex = i
		}
		v, ok := s.valence[lw]
		if !ok {
			continue
		}
		if mixedCase && isUpper(w) {
			v += sign(v) * capsIncrement
		}
		for back := 1; back <= 3 && i-back >= 0; back++ {
			prev := strings.ToLower(words[i-back])
			if b, ok := boosters[prev]; ok {
				scale := b * boosterIncrement / float64(back)
				v += sign(v) * scale
			}
			if negations[prev] {
				v *= negationScalar
				break
			}
		}
		valences[i] = v
	}
	if butIndex >= 0 {
		for i := range valences {
			if i < butIndex {
				valences[i] *= 0.5
			} else if i > butIndex {
				valences[i] *= 1.5
			}
		}
	}

	var sum, posSum, negSum float64
	var neutral int
	for _, v := range valences {
		sum += v
		switch {
		case v > 0:
			posSum += v + 1
		case v < 0:
			negSum += v - 1
		default:
			neutral++
		}
	}
	if sum != 0 {
		excl := math.Min(float64(strings.Count(text, "!")), 4) * exclamationBoost
		sum += sign(sum) * excl
	}

	compound := sum / math.Sqrt(sum*sum+normalizationAlpha)
	compound = math.Max(-1, math.Min(1, compound))

	total := posSum + math.Abs(negSum) + float64(neutral)
	return moderation.Sentiment{
		Negative: round3(math.Abs(negSum) / total),
		Neutral:  round3(float64(neutral) / total),
		Positive: round3(posSum / total),
		Compound: round4(compound),
	}
}

func hasMixedCase(words []string) bool {
	upper := 0
	for _, w := range words {
		if isUpper(w) {
			upper++
		}
	}
	return upper > 0 && upper < len(words)
}

func isUpper(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters > 1
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
