package mocks

import (
	"context"
	"image"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/stretchr/testify/mock"
)

type MockSentimentScorer struct {
	mock.Mock
}

func (m *MockSentimentScorer) Sentiment(ctx context.Context, text string) (moderation.Sentiment, error) {
	args := m.Called(ctx, text)
	s, _ := args.Get(0).(moderation.Sentiment)
	return s, args.Error(1)
}

type MockToxicityScorer struct {
	mock.Mock
}

func (m *MockToxicityScorer) Toxicity(ctx context.Context, text string) ([]moderation.LabelScore, error) {
	args := m.Called(ctx, text)
	s, _ := args.Get(0).([]moderation.LabelScore)
	return s, args.Error(1)
}

type MockImageScorer struct {
	mock.Mock
}

func (m *MockImageScorer) DetectNSFW(ctx context.Context, img image.Image) ([]moderation.Detection, error) {
	args := m.Called(ctx, img)
	d, _ := args.Get(0).([]moderation.Detection)
	return d, args.Error(1)
}

type MockAudioTranscriber struct {
	mock.Mock
}

func (m *MockAudioTranscriber) Transcribe(ctx context.Context, path string) (moderation.Transcript, error) {
	args := m.Called(ctx, path)
	tr, _ := args.Get(0).(moderation.Transcript)
	return tr, args.Error(1)
}

type MockAudioFeatureExtractor struct {
	mock.Mock
}

func (m *MockAudioFeatureExtractor) Extract(ctx context.Context, pcm moderation.PCM) (moderation.AudioFeatures, error) {
	args := m.Called(ctx, pcm)
	f, _ := args.Get(0).(moderation.AudioFeatures)
	return f, args.Error(1)
}
