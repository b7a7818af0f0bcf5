package analyzer_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/NeuralTrust/TrustModeration/pkg/app/analyzer"
	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func noiseImage(w, h int, seed int64) *image.RGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(r.Intn(256)), G: uint8(r.Intn(256)), B: uint8(r.Intn(256)), A: 255})
		}
	}
	return img
}

func flatImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return img
}

func TestImageAnalyzer_NSFWGatesVerdict(t *testing.T) {
	img := noiseImage(64, 64, 1)
	nsfw := &mocks.MockImageScorer{}
	nsfw.On("DetectNSFW", mock.Anything, mock.Anything).Return([]moderation.Detection{
		{Class: "general_suggestive", Score: 0.4},
		{Class: "yes_sexual_activity", Score: 0.91},
	}, nil)

	a := analyzer.NewImageAnalyzer(newTestLogger(), nsfw, moderation.DefaultThresholds())
	v, err := a.Analyze(context.Background(), img)
	require.NoError(t, err)

	assert.True(t, v.IsInappropriate)
	assert.False(t, v.IsSynthetic)
	assert.True(t, v.SyntheticAssessed)

	top, ok := v.Scores.Get(moderation.SignalNSFW)
	require.True(t, ok)
	assert.Equal(t, "yes_sexual_activity", top.Label)
	assert.InDelta(t, 0.91, top.Value, 1e-9)

	require.NotNil(t, v.Details.ImageSignals)
	assert.False(t, v.Details.ImageSignals.Symmetric)
	manipulation := v.Scores.Value(moderation.SignalManipulation)
	assert.InDelta(t, (v.Details.ImageSignals.ErrorLevel+v.Details.ImageSignals.NoiseUniformity)/2, manipulation, 1e-9)
	assert.Len(t, v.Details.NSFW, 2)
}

func TestImageAnalyzer_NSFWAtThresholdDoesNotTrip(t *testing.T) {
	nsfw := &mocks.MockImageScorer{}
	nsfw.On("DetectNSFW", mock.Anything, mock.Anything).Return([]moderation.Detection{{Class: "nsfw", Score: 0.7}}, nil)

	a := analyzer.NewImageAnalyzer(newTestLogger(), nsfw, moderation.DefaultThresholds())
	v, err := a.Analyze(context.Background(), noiseImage(32, 32, 2))
	require.NoError(t, err)
	assert.False(t, v.IsInappropriate)
}

func TestImageAnalyzer_FlatImageIsSyntheticButNotInappropriate(t *testing.T) {
	nsfw := &mocks.MockImageScorer{}
	nsfw.On("DetectNSFW", mock.Anything, mock.Anything).Return(nil, nil)

	a := analyzer.NewImageAnalyzer(newTestLogger(), nsfw, moderation.DefaultThresholds())
	v, err := a.Analyze(context.Background(), flatImage(32, 32))
	require.NoError(t, err)

	assert.False(t, v.IsInappropriate)
	assert.True(t, v.IsSynthetic)
	s, ok := v.Scores.Get(moderation.SignalSynthetic)
	require.True(t, ok)
	assert.Equal(t, "co_occurrence", s.Label)
	assert.Equal(t, 1.0, s.Value)
}

func TestImageAnalyzer_EmptyImage(t *testing.T) {
	nsfw := &mocks.MockImageScorer{}
	a := analyzer.NewImageAnalyzer(newTestLogger(), nsfw, moderation.DefaultThresholds())

	_, err := a.Analyze(context.Background(), nil)
	assert.True(t, moderation.IsValidationError(err))
	_, err = a.Analyze(context.Background(), image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.True(t, moderation.IsValidationError(err))
	nsfw.AssertNotCalled(t, "DetectNSFW", mock.Anything, mock.Anything)
}

func TestImageAnalyzer_ProviderFailure(t *testing.T) {
	nsfw := &mocks.MockImageScorer{}
	nsfw.On("DetectNSFW", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	a := analyzer.NewImageAnalyzer(newTestLogger(), nsfw, moderation.DefaultThresholds())
	_, err := a.Analyze(context.Background(), noiseImage(16, 16, 3))

	var spe *moderation.ScoringProviderError
	require.ErrorAs(t, err, &spe)
	assert.Equal(t, "nsfw", spe.Capability)
}
