package analyzer

import (
	"context"
	"image"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/imagestat"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	syntheticBranchMirrorEdge   = "mirror_edge"
	syntheticBranchCoOccurrence = "co_occurrence"
)

// ImageAnalyzer scores one decoded image. It also serves as the per-frame
// analyzer for video.
//
//go:generate mockery --name=ImageAnalyzer --dir=. --output=./mocks --filename=image_analyzer_mock.go --case=underscore --with-expecter
type ImageAnalyzer interface {
	Analyze(ctx context.Context, img image.Image) (*moderation.Verdict, error)
}

type imageAnalyzer struct {
	logger     *logrus.Logger
	nsfw       scoring.ImageScorer
	thresholds moderation.Thresholds
}

func NewImageAnalyzer(
	logger *logrus.Logger,
	nsfw scoring.ImageScorer,
	thresholds moderation.Thresholds,
) ImageAnalyzer {
	return &imageAnalyzer{
		logger:     logger,
		nsfw:       nsfw,
		thresholds: thresholds,
	}
}

// Analyze gates is_inappropriate on NSFW detections alone. The synthetic
// and manipulation scores are pixel heuristics reported for information.
func (a *imageAnalyzer) Analyze(ctx context.Context, img image.Image) (*moderation.Verdict, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, moderation.NewValidationError("content", "image has no pixels")
	}
	unit := moderation.NewImageUnit(img)

	var (
		detections []moderation.Detection
		signals    moderation.ImageSignals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := a.nsfw.DetectNSFW(gctx, unit.Image())
		if err != nil {
			return providerError(a.nsfw, scoring.CapabilityNSFW, err)
		}
		detections = d
		return nil
	})
	g.Go(func() error {
		s, err := imagestat.Compute(unit.Image())
		if err != nil {
			return moderation.NewDecodeError(moderation.KindImage, err)
		}
		signals = s
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	signals.Symmetric = signals.MirrorDifference < a.thresholds.MirrorDifference
	synthetic, branch := a.syntheticImage(signals)
	manipulation := (signals.ErrorLevel + signals.NoiseUniformity) / 2

	var top moderation.Detection
	inappropriate := false
	for _, d := range detections {
		if d.Score > top.Score || top.Class == "" {
			top = d
		}
		if moderation.Exceeds(d.Score, a.thresholds.NSFW) {
			inappropriate = true
		}
	}

	return &moderation.Verdict{
		IsInappropriate:   inappropriate,
		IsSynthetic:       synthetic,
		SyntheticAssessed: true,
		Scores: moderation.NewScoreSet(
			moderation.ScoreEntry{Name: moderation.SignalNSFW, Value: top.Score, Label: top.Class},
			moderation.ScoreEntry{Name: moderation.SignalSynthetic, Value: boolScore(synthetic), Label: branch},
			moderation.ScoreEntry{Name: moderation.SignalManipulation, Value: manipulation},
			moderation.ScoreEntry{Name: moderation.SignalErrorLevel, Value: signals.ErrorLevel},
			moderation.ScoreEntry{Name: moderation.SignalNoise, Value: signals.NoiseUniformity},
			moderation.ScoreEntry{Name: moderation.SignalEdgeDensity, Value: signals.EdgeDensity},
			moderation.ScoreEntry{Name: moderation.SignalCoOccurrence, Value: signals.CoOccurrenceUniformity},
		),
		Details: moderation.Details{
			NSFW:         detections,
			ImageSignals: &signals,
		},
	}, nil
}

// syntheticImage applies the two independent pixel-statistics branches:
// a mirror-symmetric image with a high edge density, or a highly uniform
// co-occurrence matrix.
func (a *imageAnalyzer) syntheticImage(s moderation.ImageSignals) (bool, string) {
	if s.Symmetric && moderation.Exceeds(s.EdgeDensity, a.thresholds.EdgeArtifact) {
		return true, syntheticBranchMirrorEdge
	}
	if moderation.Exceeds(s.CoOccurrenceUniformity, a.thresholds.CoOccurrence) {
		return true, syntheticBranchCoOccurrence
	}
	return false, ""
}
