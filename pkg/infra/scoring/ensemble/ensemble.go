package ensemble

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring"
	"golang.org/x/sync/errgroup"
)

// Toxicity averages the per-label scores of several toxicity scorers.
// A label missing from one member counts as 0 for that member. Any member
// failure fails the whole call.
type Toxicity struct {
	members []scoring.ToxicityScorer
}

func NewToxicity(members ...scoring.ToxicityScorer) (*Toxicity, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("ensemble requires at least one scorer")
	}
	return &Toxicity{members: members}, nil
}

func (e *Toxicity) Name() string {
	names := make([]string, len(e.members))
	for i, m := range e.members {
		names[i] = scoring.NameOf(m)
	}
	return "ensemble(" + strings.Join(names, ",") + ")"
}

func (e *Toxicity) Toxicity(ctx context.Context, text string) ([]moderation.LabelScore, error) {
	results := make([][]moderation.LabelScore, len(e.members))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range e.members {
		g.Go(func() error {
			scores, err := m.Toxicity(gctx, text)
			if err != nil {
				return fmt.Errorf("%s: %w", scoring.NameOf(m), err)
			}
			results[i] = scores
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sums := make(map[string]float64)
	fallback := make(map[string]bool)
	for _, scores := range results {
		for _, s := range scores {
			sums[s.Label] += s.Score
			fallback[s.Label] = fallback[s.Label] || s.Fallback
		}
	}
	n := float64(len(e.members))
	out := make([]moderation.LabelScore, 0, len(sums))
	for label, sum := range sums {
		out = append(out, moderation.LabelScore{
			Label:    label,
			Score:    moderation.Clamp01(sum / n),
			Fallback: fallback[label],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}
