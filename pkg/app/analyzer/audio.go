package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/media"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/prometheus"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scratch"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type AudioStrategy string

const (
	AudioStrategyFeatures   AudioStrategy = "features"
	AudioStrategyTranscript AudioStrategy = "transcript"
	AudioStrategyCombined   AudioStrategy = "combined"
)

// Failure reasons reported on recovered audio verdicts.
const (
	ReasonEmptyInput        = "empty_input"
	ReasonDecodeFailed      = "decode_failed"
	ReasonFeaturesFailed    = "feature_extraction_failed"
	ReasonTranscribeFailed  = "transcription_failed"
	ReasonTextAnalysisError = "text_analysis_failed"
)

// Weights of the two low-variance indicators in the synthetic-audio score.
const (
	mfccWeight    = 0.6
	rolloffWeight = 0.4
)

func ParseAudioStrategy(s string) (AudioStrategy, error) {
	switch st := AudioStrategy(strings.ToLower(strings.TrimSpace(s))); st {
	case AudioStrategyFeatures, AudioStrategyTranscript, AudioStrategyCombined:
		return st, nil
	case "":
		return AudioStrategyFeatures, nil
	}
	return "", moderation.NewValidationError("audio.strategy", "unsupported strategy %q", s)
}

type AudioConfig struct {
	Strategy        AudioStrategy
	SegmentAnalysis bool
	SegmentWorkers  int
}

//go:generate mockery --name=AudioAnalyzer --dir=. --output=./mocks --filename=audio_analyzer_mock.go --case=underscore --with-expecter
type AudioAnalyzer interface {
	Analyze(ctx context.Context, data []byte) (*moderation.Verdict, error)
}

type audioAnalyzer struct {
	logger      *logrus.Logger
	config      AudioConfig
	decoder     media.AudioDecoder
	features    scoring.AudioFeatureExtractor
	transcriber scoring.AudioTranscriber
	text        TextAnalyzer
	scratch     *scratch.Manager
	thresholds  moderation.Thresholds
}

func NewAudioAnalyzer(
	logger *logrus.Logger,
	config AudioConfig,
	decoder media.AudioDecoder,
	features scoring.AudioFeatureExtractor,
	transcriber scoring.AudioTranscriber,
	text TextAnalyzer,
	scratchManager *scratch.Manager,
	thresholds moderation.Thresholds,
) (AudioAnalyzer, error) {
	if config.Strategy == "" {
		config.Strategy = AudioStrategyFeatures
	}
	if config.SegmentWorkers <= 0 {
		config.SegmentWorkers = 4
	}
	usesFeatures := config.Strategy != AudioStrategyTranscript
	usesTranscript := config.Strategy != AudioStrategyFeatures
	if usesFeatures && (decoder == nil || features == nil) {
		return nil, fmt.Errorf("audio strategy %s requires a decoder and a feature extractor", config.Strategy)
	}
	if usesTranscript && (transcriber == nil || text == nil || scratchManager == nil) {
		return nil, fmt.Errorf("audio strategy %s requires a transcriber and a text analyzer", config.Strategy)
	}
	return &audioAnalyzer{
		logger:      logger,
		config:      config,
		decoder:     decoder,
		features:    features,
		transcriber: transcriber,
		text:        text,
		scratch:     scratchManager,
		thresholds:  thresholds,
	}, nil
}

// Analyze never reports empty, undecodable or unscorable audio as
// inappropriate: those cases come back as a failure verdict with a nil
// error. Only context cancellation or expiry is returned as an error.
func (a *audioAnalyzer) Analyze(ctx context.Context, data []byte) (*moderation.Verdict, error) {
	if len(data) == 0 {
		return moderation.FailureVerdict(ReasonEmptyInput, moderation.ErrEmptyContent), nil
	}

	verdict := &moderation.Verdict{Scores: moderation.NewScoreSet()}

	if a.config.Strategy != AudioStrategyTranscript {
		features, reason, err := a.extractFeatures(ctx, data)
		if err != nil {
			return a.recover(ctx, reason, err)
		}
		score := syntheticAudioScore(features, a.thresholds)
		verdict.IsSynthetic = moderation.Exceeds(score, a.thresholds.SyntheticAudio)
		verdict.SyntheticAssessed = true
		verdict.Scores = verdict.Scores.With(moderation.ScoreEntry{Name: moderation.SignalSynthetic, Value: score})
		verdict.Details.AudioFeatures = &features
	}

	if a.config.Strategy != AudioStrategyFeatures {
		transcript, err := a.transcribe(ctx, data)
		if err != nil {
			return a.recover(ctx, ReasonTranscribeFailed, err)
		}
		verdict.Details.TranscribedText = moderation.String(transcript.Text)
		if strings.TrimSpace(transcript.Text) == "" {
			verdict.Details.Warnings = append(verdict.Details.Warnings, "no speech transcribed")
			return verdict, nil
		}

		textVerdict, err := a.text.Analyze(ctx, transcript.Text)
		if err != nil {
			failure, rerr := a.recover(ctx, ReasonTextAnalysisError, err)
			if failure != nil {
				failure.Details.TranscribedText = verdict.Details.TranscribedText
			}
			return failure, rerr
		}
		verdict.IsInappropriate = textVerdict.IsInappropriate
		if s, ok := textVerdict.Scores.Get(moderation.SignalToxicity); ok {
			verdict.Scores = verdict.Scores.With(moderation.ScoreEntry{Name: moderation.SignalToxicity, Value: s.Value, Label: s.Label})
		}
		verdict.Details.Sentiment = textVerdict.Details.Sentiment
		verdict.Details.Toxicity = textVerdict.Details.Toxicity
		verdict.Details.Warnings = append(verdict.Details.Warnings, textVerdict.Details.Warnings...)

		if a.config.SegmentAnalysis && len(transcript.Segments) > 0 {
			if err := a.analyzeSegments(ctx, transcript.Segments, verdict); err != nil {
				return nil, err
			}
		}
	}
	return verdict, nil
}

func (a *audioAnalyzer) extractFeatures(ctx context.Context, data []byte) (moderation.AudioFeatures, string, error) {
	pcm, err := a.decoder.Decode(ctx, data)
	if err != nil {
		return moderation.AudioFeatures{}, ReasonDecodeFailed, err
	}
	if pcm.Empty() {
		return moderation.AudioFeatures{}, ReasonEmptyInput, moderation.NewDecodeError(moderation.KindAudio, moderation.ErrEmptyContent)
	}
	features, err := a.features.Extract(ctx, pcm)
	if err != nil {
		return moderation.AudioFeatures{}, ReasonFeaturesFailed, providerError(a.features, scoring.CapabilityAudioFeatures, err)
	}
	return features, "", nil
}

// transcribe materializes the payload as a scratch file for the
// transcriber and removes it before returning.
func (a *audioAnalyzer) transcribe(ctx context.Context, data []byte) (moderation.Transcript, error) {
	f, err := a.scratch.Write(data, media.SniffAudioExt(data))
	if err != nil {
		return moderation.Transcript{}, err
	}
	defer func() {
		if err := f.Release(); err != nil {
			a.logger.WithError(err).Warn("failed to release audio scratch file")
		}
	}()

	transcript, err := a.transcriber.Transcribe(ctx, f.Path())
	if err != nil {
		return moderation.Transcript{}, providerError(a.transcriber, scoring.CapabilityTranscription, err)
	}
	return transcript, nil
}

func (a *audioAnalyzer) analyzeSegments(ctx context.Context, segments []moderation.TranscriptSegment, verdict *moderation.Verdict) error {
	results := make([]moderation.SegmentVerdict, len(segments))
	var mu sync.Mutex
	analyzed, flagged := 0, 0

	var g errgroup.Group
	g.SetLimit(a.config.SegmentWorkers)
	for i, seg := range segments {
		if ctx.Err() != nil {
			break
		}
		unit := moderation.NewSegmentUnit(seg.Text, i, time.Duration(seg.Start*float64(time.Second)))
		results[i] = moderation.SegmentVerdict{Index: i, Start: seg.Start, End: seg.End, Text: seg.Text}
		if strings.TrimSpace(unit.Text()) == "" {
			results[i].Error = "empty segment"
			continue
		}
		g.Go(func() error {
			done := prometheus.TrackInflight(string(moderation.UnitAudioSegment))
			defer done()

			v, err := a.text.Analyze(ctx, unit.Text())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[unit.Index()].Error = err.Error()
				return nil
			}
			analyzed++
			results[unit.Index()].IsInappropriate = v.IsInappropriate
			results[unit.Index()].Toxicity = v.Scores.Value(moderation.SignalToxicity)
			if v.IsInappropriate {
				flagged++
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	verdict.Details.Segments = results
	if analyzed > 0 {
		if verdict.Ratios == nil {
			verdict.Ratios = &moderation.Ratios{}
		}
		verdict.Ratios.FlaggedSegmentRatio = moderation.Float(float64(flagged) / float64(analyzed))
		verdict.Ratios.SegmentsAnalyzed = analyzed
	}
	return nil
}

// recover turns decode and provider failures into a non-inappropriate
// failure verdict. Context errors and anything else are returned.
func (a *audioAnalyzer) recover(ctx context.Context, reason string, err error) (*moderation.Verdict, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if !moderation.IsDecodeError(err) && !moderation.IsScoringProviderError(err) && !moderation.IsValidationError(err) {
		return nil, err
	}
	a.logger.WithError(err).WithField("reason", reason).Warn("audio analysis recovered to a failure verdict")
	return moderation.FailureVerdict(reason, err), nil
}

// syntheticAudioScore weighs low MFCC spread at 0.6 and low spectral
// rolloff spread at 0.4.
func syntheticAudioScore(f moderation.AudioFeatures, th moderation.Thresholds) float64 {
	var score float64
	if f.MFCCStd < th.MFCCStd {
		score += mfccWeight
	}
	if f.RolloffStd < th.RolloffStd {
		score += rolloffWeight
	}
	return score
}
