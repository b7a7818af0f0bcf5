package scoring

import (
	"context"
	"fmt"
	"image"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
)

const (
	CapabilitySentiment     = "sentiment"
	CapabilityToxicity      = "toxicity"
	CapabilityNSFW          = "nsfw"
	CapabilityTranscription = "transcription"
	CapabilityAudioFeatures = "audio_features"
)

//go:generate mockery --name=SentimentScorer --dir=. --output=./mocks --filename=sentiment_scorer_mock.go --case=underscore --with-expecter
type SentimentScorer interface {
	Sentiment(ctx context.Context, text string) (moderation.Sentiment, error)
}

// ToxicityScorer returns one score per toxicity label, each in [0, 1].
//
//go:generate mockery --name=ToxicityScorer --dir=. --output=./mocks --filename=toxicity_scorer_mock.go --case=underscore --with-expecter
type ToxicityScorer interface {
	Toxicity(ctx context.Context, text string) ([]moderation.LabelScore, error)
}

type TextScorer interface {
	SentimentScorer
	ToxicityScorer
}

// ImageScorer returns the NSFW detections found in img. An empty result means
// nothing was detected.
//
//go:generate mockery --name=ImageScorer --dir=. --output=./mocks --filename=image_scorer_mock.go --case=underscore --with-expecter
type ImageScorer interface {
	DetectNSFW(ctx context.Context, img image.Image) ([]moderation.Detection, error)
}

// AudioTranscriber reads the encoded audio file at path.
//
//go:generate mockery --name=AudioTranscriber --dir=. --output=./mocks --filename=audio_transcriber_mock.go --case=underscore --with-expecter
type AudioTranscriber interface {
	Transcribe(ctx context.Context, path string) (moderation.Transcript, error)
}

//go:generate mockery --name=AudioFeatureExtractor --dir=. --output=./mocks --filename=audio_feature_extractor_mock.go --case=underscore --with-expecter
type AudioFeatureExtractor interface {
	Extract(ctx context.Context, pcm moderation.PCM) (moderation.AudioFeatures, error)
}

type Named interface {
	Name() string
}

// NameOf returns the provider name used in errors and metrics.
func NameOf(v any) string {
	if n, ok := v.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", v)
}
