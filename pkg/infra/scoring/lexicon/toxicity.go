package lexicon

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
)

const (
	LabelToxic    = "toxic"
	LabelInsult   = "insult"
	LabelThreat   = "threat"
	LabelObscene  = "obscene"
	LabelIdentity = "identity_attack"
)

type term struct {
	label  string
	weight float64
}

var toxicTerms = map[string][]term{
	"hate":    {{LabelToxic, 0.6}},
	"dumb":    {{LabelToxic, 0.5}, {LabelInsult, 0.7}},
	"stupid":  {{LabelToxic, 0.5}, {LabelInsult, 0.7}},
	"idiot":   {{LabelToxic, 0.55}, {LabelInsult, 0.8}},
	"moron":   {{LabelToxic, 0.55}, {LabelInsult, 0.8}},
	"loser":   {{LabelToxic, 0.4}, {LabelInsult, 0.6}},
	"pathetic": {{LabelToxic, 0.35}, {LabelInsult, 0.5}},
	"ugly":    {{LabelToxic, 0.3}, {LabelInsult, 0.5}},
	"trash":   {{LabelToxic, 0.3}, {LabelInsult, 0.4}},
	"kill":    {{LabelToxic, 0.6}, {LabelThreat, 0.8}},
	"die":     {{LabelToxic, 0.4}, {LabelThreat, 0.5}},
	"hurt":    {{LabelToxic, 0.3}, {LabelThreat, 0.4}},
	"damn":    {{LabelToxic, 0.2}, {LabelObscene, 0.4}},
	"crap":    {{LabelToxic, 0.25}, {LabelObscene, 0.5}},
	"hell":    {{LabelToxic, 0.15}, {LabelObscene, 0.3}},
	"shit":    {{LabelToxic, 0.5}, {LabelObscene, 0.8}},
	"fuck":    {{LabelToxic, 0.7}, {LabelObscene, 0.9}},
	"bastard": {{LabelToxic, 0.6}, {LabelObscene, 0.6}, {LabelInsult, 0.6}},
	"scum":    {{LabelToxic, 0.5}, {LabelInsult, 0.6}},
	"vermin":  {{LabelToxic, 0.5}, {LabelIdentity, 0.5}},
	"subhuman": {{LabelToxic, 0.7}, {LabelIdentity, 0.8}},
}

var toxicLabels = []string{LabelToxic, LabelInsult, LabelThreat, LabelObscene, LabelIdentity}

// ToxicityScorer is an offline keyword scorer. Each matched term contributes
// independently: label score = 1 - prod(1 - weight).
type ToxicityScorer struct {
	terms map[string][]term
}

func NewToxicityScorer() *ToxicityScorer {
	return &ToxicityScorer{terms: toxicTerms}
}

func (s *ToxicityScorer) Name() string { return "lexicon" }

func (s *ToxicityScorer) Toxicity(ctx context.Context, text string) ([]moderation.LabelScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keep := make(map[string]float64, len(toxicLabels))
	for _, l := range toxicLabels {
		keep[l] = 1
	}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	}) {
		for _, t := range s.terms[w] {
			keep[t.label] *= 1 - t.weight
		}
	}
	out := make([]moderation.LabelScore, 0, len(keep))
	for label, k := range keep {
		out = append(out, moderation.LabelScore{Label: label, Score: moderation.Clamp01(1 - k)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}
