package analyzer_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/NeuralTrust/TrustModeration/pkg/app/analyzer"
	analyzermocks "github.com/NeuralTrust/TrustModeration/pkg/app/analyzer/mocks"
	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	mediamocks "github.com/NeuralTrust/TrustModeration/pkg/infra/media/mocks"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/mocks"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scratch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var wavHeader = []byte("RIFF\x24\x00\x00\x00WAVEfmt ")

func testPCM() moderation.PCM {
	return moderation.PCM{Samples: make([]float64, 22050), SampleRate: 22050}
}

func newFeatureAnalyzer(t *testing.T, decoder *mediamocks.MockAudioDecoder, extractor *mocks.MockAudioFeatureExtractor) analyzer.AudioAnalyzer {
	t.Helper()
	a, err := analyzer.NewAudioAnalyzer(newTestLogger(), analyzer.AudioConfig{Strategy: analyzer.AudioStrategyFeatures},
		decoder, extractor, nil, nil, nil, moderation.DefaultThresholds())
	require.NoError(t, err)
	return a
}

func TestAudioAnalyzer_EmptyPayloadIsFailureVerdict(t *testing.T) {
	decoder := &mediamocks.MockAudioDecoder{}
	extractor := &mocks.MockAudioFeatureExtractor{}
	a := newFeatureAnalyzer(t, decoder, extractor)

	v, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.False(t, v.IsInappropriate)
	assert.True(t, v.Failed())
	assert.Equal(t, analyzer.ReasonEmptyInput, v.Details.Failure.Reason)
	decoder.AssertNotCalled(t, "Decode", mock.Anything, mock.Anything)
}

func TestAudioAnalyzer_SyntheticScoreWeights(t *testing.T) {
	cases := []struct {
		name       string
		mfccStd    float64
		rolloffStd float64
		score      float64
		synthetic  bool
	}{
		{"both low", 0.1, 0.2, 1.0, true},
		{"mfcc only", 0.1, 300, 0.6, false},
		{"rolloff only", 4, 0.2, 0.4, false},
		{"neither", 4, 300, 0, false},
		{"at threshold", 0.5, 0.5, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoder := &mediamocks.MockAudioDecoder{}
			decoder.On("Decode", mock.Anything, wavHeader).Return(testPCM(), nil)
			extractor := &mocks.MockAudioFeatureExtractor{}
			extractor.On("Extract", mock.Anything, mock.Anything).
				Return(moderation.AudioFeatures{MFCCStd: tc.mfccStd, RolloffStd: tc.rolloffStd, Frames: 44}, nil)

			v, err := newFeatureAnalyzer(t, decoder, extractor).Analyze(context.Background(), wavHeader)
			require.NoError(t, err)
			assert.False(t, v.Failed())
			assert.False(t, v.IsInappropriate)
			assert.True(t, v.SyntheticAssessed)
			assert.Equal(t, tc.synthetic, v.IsSynthetic)
			assert.InDelta(t, tc.score, v.Scores.Value(moderation.SignalSynthetic), 1e-9)
			require.NotNil(t, v.Details.AudioFeatures)
			assert.Equal(t, 44, v.Details.AudioFeatures.Frames)
		})
	}
}

func TestAudioAnalyzer_DecodeFailureRecovers(t *testing.T) {
	decoder := &mediamocks.MockAudioDecoder{}
	decoder.On("Decode", mock.Anything, mock.Anything).
		Return(moderation.PCM{}, moderation.NewDecodeError(moderation.KindAudio, errors.New("not audio")))
	extractor := &mocks.MockAudioFeatureExtractor{}

	v, err := newFeatureAnalyzer(t, decoder, extractor).Analyze(context.Background(), []byte("garbage"))
	require.NoError(t, err)
	assert.False(t, v.IsInappropriate)
	assert.Equal(t, analyzer.ReasonDecodeFailed, v.Details.Failure.Reason)
	assert.Contains(t, v.Details.Failure.Error, "not audio")
	extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestAudioAnalyzer_FeatureFailureRecovers(t *testing.T) {
	decoder := &mediamocks.MockAudioDecoder{}
	decoder.On("Decode", mock.Anything, mock.Anything).Return(testPCM(), nil)
	extractor := &mocks.MockAudioFeatureExtractor{}
	extractor.On("Extract", mock.Anything, mock.Anything).Return(moderation.AudioFeatures{}, errors.New("fft failed"))

	v, err := newFeatureAnalyzer(t, decoder, extractor).Analyze(context.Background(), wavHeader)
	require.NoError(t, err)
	assert.False(t, v.IsInappropriate)
	assert.Equal(t, analyzer.ReasonFeaturesFailed, v.Details.Failure.Reason)
}

func TestAudioAnalyzer_CanceledContextPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	decoder := &mediamocks.MockAudioDecoder{}
	decoder.On("Decode", mock.Anything, mock.Anything).Return(moderation.PCM{}, context.Canceled)
	extractor := &mocks.MockAudioFeatureExtractor{}

	v, err := newFeatureAnalyzer(t, decoder, extractor).Analyze(ctx, wavHeader)
	assert.Nil(t, v)
	assert.ErrorIs(t, err, context.Canceled)
}

type transcriptFixture struct {
	counter     *scratch.Counter
	transcriber *mocks.MockAudioTranscriber
	text        *analyzermocks.MockTextAnalyzer
	decoder     *mediamocks.MockAudioDecoder
	extractor   *mocks.MockAudioFeatureExtractor
}

func newTranscriptFixture() *transcriptFixture {
	return &transcriptFixture{
		counter:     scratch.NewCounter(),
		transcriber: &mocks.MockAudioTranscriber{},
		text:        &analyzermocks.MockTextAnalyzer{},
		decoder:     &mediamocks.MockAudioDecoder{},
		extractor:   &mocks.MockAudioFeatureExtractor{},
	}
}

func (f *transcriptFixture) analyzer(t *testing.T, cfg analyzer.AudioConfig) analyzer.AudioAnalyzer {
	t.Helper()
	logger := newTestLogger()
	a, err := analyzer.NewAudioAnalyzer(logger, cfg, f.decoder, f.extractor, f.transcriber, f.text,
		scratch.NewManager(t.TempDir(), f.counter, logger), moderation.DefaultThresholds())
	require.NoError(t, err)
	return a
}

func TestAudioAnalyzer_TranscriptInheritsTextVerdict(t *testing.T) {
	f := newTranscriptFixture()
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			path := args.String(1)
			assert.True(t, strings.HasSuffix(path, ".wav"))
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, wavHeader, data)
		}).
		Return(moderation.Transcript{Text: "I hate you"}, nil)
	f.text.On("Analyze", mock.Anything, "I hate you").Return(&moderation.Verdict{
		IsInappropriate:   true,
		IsSynthetic:       true,
		SyntheticAssessed: true,
		Scores: moderation.NewScoreSet(
			moderation.ScoreEntry{Name: moderation.SignalToxicity, Value: 0.9, Label: "toxic"},
			moderation.ScoreEntry{Name: moderation.SignalSynthetic, Value: 0.75},
		),
		Details: moderation.Details{
			Toxicity:            []moderation.LabelScore{{Label: "toxic", Score: 0.9}},
			SyntheticIndicators: &moderation.TextIndicators{Score: 0.75},
		},
	}, nil)

	v, err := f.analyzer(t, analyzer.AudioConfig{Strategy: analyzer.AudioStrategyTranscript}).
		Analyze(context.Background(), wavHeader)
	require.NoError(t, err)

	assert.True(t, v.IsInappropriate)
	assert.False(t, v.SyntheticAssessed)
	assert.False(t, v.IsSynthetic)
	require.NotNil(t, v.Details.TranscribedText)
	assert.Equal(t, "I hate you", *v.Details.TranscribedText)
	assert.Nil(t, v.Details.SyntheticIndicators)
	assert.InDelta(t, 0.9, v.Scores.Value(moderation.SignalToxicity), 1e-9)
	_, hasSynthetic := v.Scores.Get(moderation.SignalSynthetic)
	assert.False(t, hasSynthetic)

	assert.Equal(t, 0, f.counter.Open())
	acquired, released := f.counter.Totals()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, released)
	f.decoder.AssertNotCalled(t, "Decode", mock.Anything, mock.Anything)
}

func TestAudioAnalyzer_TranscriptionFailureReleasesScratch(t *testing.T) {
	f := newTranscriptFixture()
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything).
		Return(moderation.Transcript{}, errors.New("whisper unavailable"))

	v, err := f.analyzer(t, analyzer.AudioConfig{Strategy: analyzer.AudioStrategyTranscript}).
		Analyze(context.Background(), wavHeader)
	require.NoError(t, err)
	assert.False(t, v.IsInappropriate)
	assert.Equal(t, analyzer.ReasonTranscribeFailed, v.Details.Failure.Reason)
	assert.Equal(t, 0, f.counter.Open())
	f.text.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestAudioAnalyzer_EmptyTranscriptWarns(t *testing.T) {
	f := newTranscriptFixture()
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything).Return(moderation.Transcript{Text: "  "}, nil)

	v, err := f.analyzer(t, analyzer.AudioConfig{Strategy: analyzer.AudioStrategyTranscript}).
		Analyze(context.Background(), wavHeader)
	require.NoError(t, err)
	assert.False(t, v.Failed())
	assert.False(t, v.IsInappropriate)
	assert.Contains(t, v.Details.Warnings, "no speech transcribed")
	f.text.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestAudioAnalyzer_TextFailureKeepsTranscript(t *testing.T) {
	f := newTranscriptFixture()
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything).Return(moderation.Transcript{Text: "hello"}, nil)
	f.text.On("Analyze", mock.Anything, "hello").
		Return(nil, moderation.NewScoringProviderError("openai", "toxicity", errors.New("rate limited")))

	v, err := f.analyzer(t, analyzer.AudioConfig{Strategy: analyzer.AudioStrategyTranscript}).
		Analyze(context.Background(), wavHeader)
	require.NoError(t, err)
	assert.False(t, v.IsInappropriate)
	assert.Equal(t, analyzer.ReasonTextAnalysisError, v.Details.Failure.Reason)
	require.NotNil(t, v.Details.TranscribedText)
	assert.Equal(t, "hello", *v.Details.TranscribedText)
}

func TestAudioAnalyzer_SegmentRatio(t *testing.T) {
	f := newTranscriptFixture()
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything).Return(moderation.Transcript{
		Text: "good morning you idiot",
		Segments: []moderation.TranscriptSegment{
			{Start: 0, End: 1.2, Text: "good morning"},
			{Start: 1.2, End: 2.5, Text: "you idiot"},
			{Start: 2.5, End: 3, Text: " "},
		},
	}, nil)
	benign := &moderation.Verdict{Scores: moderation.NewScoreSet(moderation.ScoreEntry{Name: moderation.SignalToxicity, Value: 0.1})}
	flagged := &moderation.Verdict{IsInappropriate: true, Scores: moderation.NewScoreSet(moderation.ScoreEntry{Name: moderation.SignalToxicity, Value: 0.95})}
	f.text.On("Analyze", mock.Anything, "good morning you idiot").Return(flagged, nil)
	f.text.On("Analyze", mock.Anything, "good morning").Return(benign, nil)
	f.text.On("Analyze", mock.Anything, "you idiot").Return(flagged, nil)

	v, err := f.analyzer(t, analyzer.AudioConfig{Strategy: analyzer.AudioStrategyTranscript, SegmentAnalysis: true}).
		Analyze(context.Background(), wavHeader)
	require.NoError(t, err)

	require.NotNil(t, v.Ratios)
	require.NotNil(t, v.Ratios.FlaggedSegmentRatio)
	assert.InDelta(t, 0.5, *v.Ratios.FlaggedSegmentRatio, 1e-9)
	assert.Equal(t, 2, v.Ratios.SegmentsAnalyzed)
	require.Len(t, v.Details.Segments, 3)
	assert.False(t, v.Details.Segments[0].IsInappropriate)
	assert.True(t, v.Details.Segments[1].IsInappropriate)
	assert.InDelta(t, 0.95, v.Details.Segments[1].Toxicity, 1e-9)
	assert.Equal(t, "empty segment", v.Details.Segments[2].Error)
}

func TestAudioAnalyzer_CombinedStrategy(t *testing.T) {
	f := newTranscriptFixture()
	f.decoder.On("Decode", mock.Anything, wavHeader).Return(testPCM(), nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything).
		Return(moderation.AudioFeatures{MFCCStd: 0.1, RolloffStd: 0.1}, nil)
	f.transcriber.On("Transcribe", mock.Anything, mock.Anything).Return(moderation.Transcript{Text: "hello there"}, nil)
	f.text.On("Analyze", mock.Anything, "hello there").Return(&moderation.Verdict{Scores: moderation.NewScoreSet()}, nil)

	v, err := f.analyzer(t, analyzer.AudioConfig{Strategy: analyzer.AudioStrategyCombined}).
		Analyze(context.Background(), wavHeader)
	require.NoError(t, err)
	assert.True(t, v.SyntheticAssessed)
	assert.True(t, v.IsSynthetic)
	assert.False(t, v.IsInappropriate)
	require.NotNil(t, v.Details.AudioFeatures)
	require.NotNil(t, v.Details.TranscribedText)
	assert.Equal(t, 0, f.counter.Open())
}

func TestNewAudioAnalyzer_MissingCapabilities(t *testing.T) {
	_, err := analyzer.NewAudioAnalyzer(newTestLogger(), analyzer.AudioConfig{Strategy: analyzer.AudioStrategyTranscript},
		nil, nil, nil, nil, nil, moderation.DefaultThresholds())
	assert.Error(t, err)

	_, err = analyzer.NewAudioAnalyzer(newTestLogger(), analyzer.AudioConfig{},
		nil, nil, nil, nil, nil, moderation.DefaultThresholds())
	assert.Error(t, err)
}

func TestParseAudioStrategy(t *testing.T) {
	s, err := analyzer.ParseAudioStrategy(" Combined ")
	require.NoError(t, err)
	assert.Equal(t, analyzer.AudioStrategyCombined, s)

	s, err = analyzer.ParseAudioStrategy("")
	require.NoError(t, err)
	assert.Equal(t, analyzer.AudioStrategyFeatures, s)

	_, err = analyzer.ParseAudioStrategy("vibes")
	assert.True(t, moderation.IsValidationError(err))
}
