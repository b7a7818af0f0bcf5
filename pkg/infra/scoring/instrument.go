package scoring

import (
	"context"
	"image"
	"time"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/prometheus"
)

func observe[T any](provider, capability string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	prometheus.RecordProviderCall(provider, capability, err, time.Since(start))
	if err != nil {
		var zero T
		return zero, moderation.NewScoringProviderError(provider, capability, err)
	}
	return v, nil
}

type instrumentedSentiment struct {
	name  string
	inner SentimentScorer
}

// InstrumentSentiment records call latency and wraps failures in a
// ScoringProviderError carrying the provider name.
func InstrumentSentiment(s SentimentScorer) SentimentScorer {
	if s == nil {
		return nil
	}
	return &instrumentedSentiment{name: NameOf(s), inner: s}
}

func (i *instrumentedSentiment) Name() string { return i.name }

func (i *instrumentedSentiment) Sentiment(ctx context.Context, text string) (moderation.Sentiment, error) {
	return observe(i.name, CapabilitySentiment, func() (moderation.Sentiment, error) {
		return i.inner.Sentiment(ctx, text)
	})
}

type instrumentedToxicity struct {
	name  string
	inner ToxicityScorer
}

func InstrumentToxicity(s ToxicityScorer) ToxicityScorer {
	if s == nil {
		return nil
	}
	return &instrumentedToxicity{name: NameOf(s), inner: s}
}

func (i *instrumentedToxicity) Name() string { return i.name }

func (i *instrumentedToxicity) Toxicity(ctx context.Context, text string) ([]moderation.LabelScore, error) {
	return observe(i.name, CapabilityToxicity, func() ([]moderation.LabelScore, error) {
		return i.inner.Toxicity(ctx, text)
	})
}

type instrumentedImage struct {
	name  string
	inner ImageScorer
}

func InstrumentImage(s ImageScorer) ImageScorer {
	if s == nil {
		return nil
	}
	return &instrumentedImage{name: NameOf(s), inner: s}
}

func (i *instrumentedImage) Name() string { return i.name }

func (i *instrumentedImage) DetectNSFW(ctx context.Context, img image.Image) ([]moderation.Detection, error) {
	return observe(i.name, CapabilityNSFW, func() ([]moderation.Detection, error) {
		return i.inner.DetectNSFW(ctx, img)
	})
}

type instrumentedTranscriber struct {
	name  string
	inner AudioTranscriber
}

func InstrumentTranscriber(s AudioTranscriber) AudioTranscriber {
	if s == nil {
		return nil
	}
	return &instrumentedTranscriber{name: NameOf(s), inner: s}
}

func (i *instrumentedTranscriber) Name() string { return i.name }

func (i *instrumentedTranscriber) Transcribe(ctx context.Context, path string) (moderation.Transcript, error) {
	return observe(i.name, CapabilityTranscription, func() (moderation.Transcript, error) {
		return i.inner.Transcribe(ctx, path)
	})
}

type instrumentedFeatures struct {
	name  string
	inner AudioFeatureExtractor
}

func InstrumentFeatures(s AudioFeatureExtractor) AudioFeatureExtractor {
	if s == nil {
		return nil
	}
	return &instrumentedFeatures{name: NameOf(s), inner: s}
}

func (i *instrumentedFeatures) Name() string { return i.name }

func (i *instrumentedFeatures) Extract(ctx context.Context, pcm moderation.PCM) (moderation.AudioFeatures, error) {
	return observe(i.name, CapabilityAudioFeatures, func() (moderation.AudioFeatures, error) {
		return i.inner.Extract(ctx, pcm)
	})
}
