package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustModeration/pkg/app/analyzer"
	domainModeration "github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/media"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

type Request struct {
	Kind    domainModeration.Kind
	Content []byte
}

func TextRequest(text string) Request {
	return Request{Kind: domainModeration.KindText, Content: []byte(text)}
}

// Analyzers holds one analyzer per kind. A nil analyzer disables its kind.
type Analyzers struct {
	Text  analyzer.TextAnalyzer
	Image analyzer.ImageAnalyzer
	Audio analyzer.AudioAnalyzer
	Video analyzer.VideoAnalyzer
}

type Config struct {
	// Timeout bounds a single Moderate call. Zero leaves the caller's deadline alone.
	Timeout time.Duration
}

//go:generate mockery --name=Orchestrator --dir=. --output=./mocks --filename=orchestrator_mock.go --case=underscore --with-expecter
type Orchestrator interface {
	Moderate(ctx context.Context, req Request) (*domainModeration.Response, error)
	ModerateMIME(ctx context.Context, mimeType string, data []byte) (*domainModeration.Response, error)
}

type orchestrator struct {
	logger       *logrus.Logger
	config       Config
	analyzers    Analyzers
	imageDecoder media.ImageDecoder
}

func NewOrchestrator(
	logger *logrus.Logger,
	config Config,
	analyzers Analyzers,
	imageDecoder media.ImageDecoder,
) Orchestrator {
	return &orchestrator{
		logger:       logger,
		config:       config,
		analyzers:    analyzers,
		imageDecoder: imageDecoder,
	}
}

// ModerateMIME maps an attachment's MIME type to a kind and moderates it.
func (o *orchestrator) ModerateMIME(ctx context.Context, mimeType string, data []byte) (*domainModeration.Response, error) {
	kind, err := domainModeration.KindFromMIME(mimeType)
	if err != nil {
		prometheus.RecordFailure("unknown", ErrorReason(err))
		return nil, err
	}
	return o.Moderate(ctx, Request{Kind: kind, Content: data})
}

func (o *orchestrator) Moderate(ctx context.Context, req Request) (*domainModeration.Response, error) {
	if !req.Kind.Valid() {
		err := domainModeration.NewValidationError("content_type", "unsupported content kind %q", req.Kind)
		prometheus.RecordFailure("unknown", ErrorReason(err))
		return nil, err
	}
	if o.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	verdict, err := o.dispatch(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		reason := ErrorReason(err)
		prometheus.RecordFailure(req.Kind.String(), reason)
		entry := o.logger.WithFields(logrus.Fields{
			"kind":    req.Kind,
			"reason":  reason,
			"elapsed": elapsed.String(),
		}).WithError(err)
		if reason == reasonCanceled {
			entry.Debug("moderation canceled")
		} else {
			entry.Warn("moderation failed")
		}
		return nil, fmt.Errorf("moderate %s: %w", req.Kind, err)
	}

	if verdict.Failed() {
		prometheus.RecordFailure(req.Kind.String(), verdict.Details.Failure.Reason)
	}
	prometheus.RecordVerdict(req.Kind.String(), verdict.IsInappropriate, verdict.IsSynthetic, elapsed)
	o.logger.WithFields(logrus.Fields{
		"kind":             req.Kind,
		"is_inappropriate": verdict.IsInappropriate,
		"is_synthetic":     verdict.IsSynthetic,
		"elapsed":          elapsed.String(),
	}).Debug("moderation completed")

	return domainModeration.NewResponse(req.Kind, verdict, elapsed), nil
}

func (o *orchestrator) dispatch(ctx context.Context, req Request) (*domainModeration.Verdict, error) {
	switch req.Kind {
	case domainModeration.KindText:
		if o.analyzers.Text == nil {
			return nil, disabled(req.Kind)
		}
		return o.analyzers.Text.Analyze(ctx, string(req.Content))

	case domainModeration.KindImage:
		if o.analyzers.Image == nil {
			return nil, disabled(req.Kind)
		}
		if len(req.Content) == 0 {
			return nil, domainModeration.NewValidationError("content", "image must not be empty")
		}
		img, format, err := o.imageDecoder.Decode(req.Content)
		if err != nil {
			return nil, err
		}
		o.logger.WithField("format", format).Debug("image decoded")
		return o.analyzers.Image.Analyze(ctx, img)

	case domainModeration.KindAudio:
		if o.analyzers.Audio == nil {
			return nil, disabled(req.Kind)
		}
		return o.analyzers.Audio.Analyze(ctx, req.Content)

	case domainModeration.KindVideo:
		if o.analyzers.Video == nil {
			return nil, disabled(req.Kind)
		}
		return o.analyzers.Video.Analyze(ctx, req.Content)
	}
	return nil, domainModeration.NewValidationError("content_type", "unsupported content kind %q", req.Kind)
}

func disabled(kind domainModeration.Kind) error {
	return domainModeration.NewValidationError("content_type", "%s moderation is not enabled", kind)
}

const (
	reasonValidation  = "validation"
	reasonDecode      = "decode"
	reasonProvider    = "provider"
	reasonAggregation = "aggregation"
	reasonTimeout     = "timeout"
	reasonCanceled    = "canceled"
	reasonInternal    = "internal"
)

// ErrorReason classifies err into the metric label used for failures.
func ErrorReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return reasonTimeout
	case errors.Is(err, context.Canceled):
		return reasonCanceled
	case domainModeration.IsValidationError(err):
		return reasonValidation
	case domainModeration.IsDecodeError(err):
		return reasonDecode
	case domainModeration.IsScoringProviderError(err):
		return reasonProvider
	case domainModeration.IsAggregationError(err):
		return reasonAggregation
	}
	return reasonInternal
}
