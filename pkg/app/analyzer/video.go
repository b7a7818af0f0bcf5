package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/media"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultFrameStride = 10
	DefaultMaxFrames   = 100
	DefaultWorkers     = 4
)

// VideoConfig selects every FrameStride-th frame among the first MaxFrames
// decoded frames.
type VideoConfig struct {
	FrameStride int
	MaxFrames   int
	Workers     int
}

func (c VideoConfig) withDefaults() VideoConfig {
	if c.FrameStride <= 0 {
		c.FrameStride = DefaultFrameStride
	}
	if c.MaxFrames <= 0 {
		c.MaxFrames = DefaultMaxFrames
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	return c
}

//go:generate mockery --name=VideoAnalyzer --dir=. --output=./mocks --filename=video_analyzer_mock.go --case=underscore --with-expecter
type VideoAnalyzer interface {
	Analyze(ctx context.Context, data []byte) (*moderation.Verdict, error)
}

type videoAnalyzer struct {
	logger     *logrus.Logger
	config     VideoConfig
	decoder    media.VideoDecoder
	frames     ImageAnalyzer
	thresholds moderation.Thresholds
}

func NewVideoAnalyzer(
	logger *logrus.Logger,
	config VideoConfig,
	decoder media.VideoDecoder,
	frames ImageAnalyzer,
	thresholds moderation.Thresholds,
) VideoAnalyzer {
	return &videoAnalyzer{
		logger:     logger,
		config:     config.withDefaults(),
		decoder:    decoder,
		frames:     frames,
		thresholds: thresholds,
	}
}

func (a *videoAnalyzer) Analyze(ctx context.Context, data []byte) (*moderation.Verdict, error) {
	if len(data) == 0 {
		return nil, moderation.NewValidationError("content", "video must not be empty")
	}

	src, err := a.decoder.Open(ctx, data)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			a.logger.WithError(err).Warn("failed to close video frame source")
		}
	}()

	var (
		mu       sync.Mutex
		results  []moderation.FrameVerdict
		warnings []string
		sampled  int
	)

	// Frames are analyzed as they are read. Failures are recorded per frame
	// so one bad frame never cancels its siblings.
	var g errgroup.Group
	g.SetLimit(a.config.Workers)

	read := 0
	for read < a.config.MaxFrames {
		if ctx.Err() != nil {
			break
		}
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if read == 0 {
				_ = g.Wait()
				return nil, moderation.NewDecodeError(moderation.KindVideo, err)
			}
			warnings = append(warnings, fmt.Sprintf("frame decoding stopped after %d frames: %v", read, err))
			break
		}
		read++
		if frame.Index%a.config.FrameStride != 0 {
			continue
		}
		sampled++
		unit := moderation.NewFrameUnit(frame.Image, frame.Index, frame.Timestamp)
		g.Go(func() error {
			done := prometheus.TrackInflight(string(moderation.UnitVideoFrame))
			defer done()

			fv := a.analyzeFrame(ctx, unit)
			mu.Lock()
			results = append(results, fv)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return a.aggregate(results, sampled, warnings)
}

func (a *videoAnalyzer) analyzeFrame(ctx context.Context, unit moderation.ContentUnit) moderation.FrameVerdict {
	ts, _ := unit.Timestamp()
	fv := moderation.FrameVerdict{Index: unit.Index(), Timestamp: ts.Seconds()}
	v, err := a.frames.Analyze(ctx, unit.Image())
	if err != nil {
		fv.Error = err.Error()
		if ctx.Err() == nil {
			a.logger.WithError(err).WithField("frame", unit.Index()).Debug("frame analysis failed")
		}
		return fv
	}
	fv.IsInappropriate = v.IsInappropriate
	fv.IsSynthetic = v.IsSynthetic
	fv.NSFW = v.Scores.Value(moderation.SignalNSFW)
	return fv
}

// aggregate computes the frame ratios over successfully analyzed frames only.
func (a *videoAnalyzer) aggregate(results []moderation.FrameVerdict, sampled int, warnings []string) (*moderation.Verdict, error) {
	var analyzed, failed, inappropriate, synthetic int
	var maxNSFW float64
	for _, fv := range results {
		if fv.Error != "" {
			failed++
			continue
		}
		analyzed++
		if fv.IsInappropriate {
			inappropriate++
		}
		if fv.IsSynthetic {
			synthetic++
		}
		maxNSFW = max(maxNSFW, fv.NSFW)
	}
	if analyzed == 0 {
		return nil, &moderation.AggregationError{Kind: moderation.KindVideo, Sampled: sampled, Failed: failed}
	}

	inappropriateRatio := float64(inappropriate) / float64(analyzed)
	syntheticRatio := float64(synthetic) / float64(analyzed)

	return &moderation.Verdict{
		IsInappropriate:   moderation.Exceeds(inappropriateRatio, a.thresholds.InappropriateFrameRatio),
		IsSynthetic:       moderation.Exceeds(syntheticRatio, a.thresholds.SyntheticFrameRatio),
		SyntheticAssessed: true,
		Scores: moderation.NewScoreSet(
			moderation.ScoreEntry{Name: moderation.SignalFlaggedFrames, Value: inappropriateRatio},
			moderation.ScoreEntry{Name: moderation.SignalNSFW, Value: maxNSFW},
			moderation.ScoreEntry{Name: moderation.SignalSynthetic, Value: syntheticRatio},
		),
		Ratios: &moderation.Ratios{
			InappropriateFrameRatio: moderation.Float(inappropriateRatio),
			SyntheticFrameRatio:     moderation.Float(syntheticRatio),
			FramesAnalyzed:          analyzed,
		},
		Details: moderation.Details{
			Frames:       results,
			FailedFrames: failed,
			Warnings:     warnings,
		},
	}, nil
}
