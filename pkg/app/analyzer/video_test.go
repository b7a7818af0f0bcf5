package analyzer_test

import (
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/NeuralTrust/TrustModeration/pkg/app/analyzer"
	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/media"
	mediamocks "github.com/NeuralTrust/TrustModeration/pkg/infra/media/mocks"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scratch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var videoPayload = []byte("\x00\x00\x00\x18ftypmp42")

// fakeVideoDecoder yields frames whose single grey pixel carries the frame
// index, and reports open and close to a scratch.Counter.
type fakeVideoDecoder struct {
	counter *scratch.Counter
	frames  int
	failAt  int
	opened  int
	reads   int
}

func newFakeVideoDecoder(frames int) *fakeVideoDecoder {
	return &fakeVideoDecoder{counter: scratch.NewCounter(), frames: frames, failAt: -1}
}

func (d *fakeVideoDecoder) Open(_ context.Context, _ []byte) (media.FrameSource, error) {
	d.opened++
	d.counter.Acquired("video")
	return &fakeFrameSource{dec: d}, nil
}

type fakeFrameSource struct {
	dec *fakeVideoDecoder
	pos int
}

func (s *fakeFrameSource) Info() media.VideoInfo {
	return media.VideoInfo{Width: 1, Height: 1, FPS: 25, Frames: s.dec.frames}
}

func (s *fakeFrameSource) Next(_ context.Context) (media.Frame, error) {
	s.dec.reads++
	if s.pos == s.dec.failAt {
		return media.Frame{}, errors.New("corrupt packet")
	}
	if s.pos >= s.dec.frames {
		return media.Frame{}, io.EOF
	}
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.Pix[0] = uint8(s.pos)
	f := media.Frame{Index: s.pos, Timestamp: time.Duration(s.pos) * 40 * time.Millisecond, Image: img}
	s.pos++
	return f, nil
}

func (s *fakeFrameSource) Close() error {
	s.dec.counter.Released("video")
	return nil
}

type frameResult struct {
	inappropriate bool
	synthetic     bool
	nsfw          float64
	err           error
}

// frameAnalyzer scores frames by the index stored in their pixel.
type frameAnalyzer func(index int) frameResult

func (f frameAnalyzer) Analyze(_ context.Context, img image.Image) (*moderation.Verdict, error) {
	r := f(int(img.(*image.Gray).Pix[0]))
	if r.err != nil {
		return nil, r.err
	}
	return &moderation.Verdict{
		IsInappropriate:   r.inappropriate,
		IsSynthetic:       r.synthetic,
		SyntheticAssessed: true,
		Scores:            moderation.NewScoreSet(moderation.ScoreEntry{Name: moderation.SignalNSFW, Value: r.nsfw}),
	}, nil
}

func flagFirst(n int) frameAnalyzer {
	return func(index int) frameResult {
		if index < n {
			return frameResult{inappropriate: true, nsfw: 0.9}
		}
		return frameResult{nsfw: 0.1}
	}
}

func newVideoAnalyzer(dec media.VideoDecoder, frames analyzer.ImageAnalyzer, cfg analyzer.VideoConfig) analyzer.VideoAnalyzer {
	return analyzer.NewVideoAnalyzer(newTestLogger(), cfg, dec, frames, moderation.DefaultThresholds())
}

func TestVideoAnalyzer_RatioBoundary(t *testing.T) {
	cases := []struct {
		flagged int
		want    bool
	}{
		{29, false},
		{30, false},
		{31, true},
	}
	for _, tc := range cases {
		dec := newFakeVideoDecoder(100)
		a := newVideoAnalyzer(dec, flagFirst(tc.flagged), analyzer.VideoConfig{FrameStride: 1, MaxFrames: 100, Workers: 8})

		v, err := a.Analyze(context.Background(), videoPayload)
		require.NoError(t, err)
		require.NotNil(t, v.Ratios)
		assert.InDelta(t, float64(tc.flagged)/100, *v.Ratios.InappropriateFrameRatio, 1e-9)
		assert.Equal(t, 100, v.Ratios.FramesAnalyzed)
		assert.Equal(t, tc.want, v.IsInappropriate, "flagged=%d", tc.flagged)
		assert.InDelta(t, 0.9, v.Scores.Value(moderation.SignalNSFW), 1e-9)
		assert.Equal(t, 0, dec.counter.Open())
	}
}

func TestVideoAnalyzer_AllBenignFrames(t *testing.T) {
	dec := newFakeVideoDecoder(50)
	a := newVideoAnalyzer(dec, flagFirst(0), analyzer.VideoConfig{FrameStride: 5})

	v, err := a.Analyze(context.Background(), videoPayload)
	require.NoError(t, err)
	assert.False(t, v.IsInappropriate)
	assert.False(t, v.IsSynthetic)
	assert.Equal(t, 0.0, *v.Ratios.InappropriateFrameRatio)
	assert.Equal(t, 0.0, *v.Ratios.SyntheticFrameRatio)
	assert.Equal(t, 10, v.Ratios.FramesAnalyzed)

	require.Len(t, v.Details.Frames, 10)
	for i, fv := range v.Details.Frames {
		assert.Equal(t, i*5, fv.Index)
		assert.InDelta(t, float64(i*5)*0.04, fv.Timestamp, 1e-9)
	}
}

func TestVideoAnalyzer_DefaultSamplingIsBounded(t *testing.T) {
	dec := newFakeVideoDecoder(250)
	a := newVideoAnalyzer(dec, flagFirst(0), analyzer.VideoConfig{})

	v, err := a.Analyze(context.Background(), videoPayload)
	require.NoError(t, err)
	assert.Equal(t, 10, v.Ratios.FramesAnalyzed)
	assert.Equal(t, analyzer.DefaultMaxFrames, dec.reads)
}

func TestVideoAnalyzer_SyntheticRatio(t *testing.T) {
	dec := newFakeVideoDecoder(10)
	frames := frameAnalyzer(func(index int) frameResult {
		return frameResult{synthetic: index < 8}
	})
	v, err := newVideoAnalyzer(dec, frames, analyzer.VideoConfig{FrameStride: 1}).Analyze(context.Background(), videoPayload)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, *v.Ratios.SyntheticFrameRatio, 1e-9)
	assert.True(t, v.IsSynthetic)
	assert.True(t, v.SyntheticAssessed)
}

func TestVideoAnalyzer_NoFramesIsAggregationError(t *testing.T) {
	dec := newFakeVideoDecoder(0)
	v, err := newVideoAnalyzer(dec, flagFirst(0), analyzer.VideoConfig{}).Analyze(context.Background(), videoPayload)
	assert.Nil(t, v)
	assert.True(t, moderation.IsAggregationError(err))
	assert.ErrorIs(t, err, moderation.ErrNoFrames)
	assert.Equal(t, 0, dec.counter.Open())
}

func TestVideoAnalyzer_FailedFramesExcludedFromDenominator(t *testing.T) {
	dec := newFakeVideoDecoder(4)
	frames := frameAnalyzer(func(index int) frameResult {
		switch index {
		case 0:
			return frameResult{err: errors.New("nsfw provider down")}
		case 1:
			return frameResult{inappropriate: true}
		}
		return frameResult{}
	})
	v, err := newVideoAnalyzer(dec, frames, analyzer.VideoConfig{FrameStride: 1}).Analyze(context.Background(), videoPayload)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Ratios.FramesAnalyzed)
	assert.Equal(t, 1, v.Details.FailedFrames)
	assert.InDelta(t, 1.0/3, *v.Ratios.InappropriateFrameRatio, 1e-9)
	assert.True(t, v.IsInappropriate)
	assert.Equal(t, "nsfw provider down", v.Details.Frames[0].Error)
}

func TestVideoAnalyzer_AllFramesFail(t *testing.T) {
	dec := newFakeVideoDecoder(3)
	frames := frameAnalyzer(func(int) frameResult { return frameResult{err: errors.New("boom")} })

	_, err := newVideoAnalyzer(dec, frames, analyzer.VideoConfig{FrameStride: 1}).Analyze(context.Background(), videoPayload)
	var agg *moderation.AggregationError
	require.ErrorAs(t, err, &agg)
	assert.Equal(t, 3, agg.Sampled)
	assert.Equal(t, 3, agg.Failed)
	assert.Equal(t, 0, dec.counter.Open())
}

func TestVideoAnalyzer_DecodeFailureReleasesSource(t *testing.T) {
	dec := newFakeVideoDecoder(10)
	dec.failAt = 0

	_, err := newVideoAnalyzer(dec, flagFirst(0), analyzer.VideoConfig{}).Analyze(context.Background(), videoPayload)
	assert.True(t, moderation.IsDecodeError(err))
	assert.Equal(t, 0, dec.counter.Open())
	acquired, released := dec.counter.Totals()
	assert.Equal(t, 1, acquired)
	assert.Equal(t, 1, released)
}

func TestVideoAnalyzer_TruncatedStreamKeepsDecodedFrames(t *testing.T) {
	dec := newFakeVideoDecoder(10)
	dec.failAt = 6

	v, err := newVideoAnalyzer(dec, flagFirst(0), analyzer.VideoConfig{FrameStride: 2}).Analyze(context.Background(), videoPayload)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Ratios.FramesAnalyzed)
	require.Len(t, v.Details.Warnings, 1)
	assert.Contains(t, v.Details.Warnings[0], "corrupt packet")
	assert.Equal(t, 0, dec.counter.Open())
}

func TestVideoAnalyzer_OpenFailure(t *testing.T) {
	dec := &mediamocks.MockVideoDecoder{}
	dec.On("Open", mock.Anything, videoPayload).
		Return(nil, moderation.NewDecodeError(moderation.KindVideo, errors.New("moov atom not found")))

	_, err := newVideoAnalyzer(dec, flagFirst(0), analyzer.VideoConfig{}).Analyze(context.Background(), videoPayload)
	assert.True(t, moderation.IsDecodeError(err))
	dec.AssertExpectations(t)
}

func TestVideoAnalyzer_EmptyPayload(t *testing.T) {
	dec := newFakeVideoDecoder(1)
	_, err := newVideoAnalyzer(dec, flagFirst(0), analyzer.VideoConfig{}).Analyze(context.Background(), nil)
	assert.True(t, moderation.IsValidationError(err))
	assert.Zero(t, dec.opened)
}

func TestVideoAnalyzer_CanceledContextReleasesSource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dec := newFakeVideoDecoder(20)

	_, err := newVideoAnalyzer(dec, flagFirst(0), analyzer.VideoConfig{}).Analyze(ctx, videoPayload)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, dec.counter.Open())
}

func TestVideoAnalyzer_RatioProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		flags := rapid.SliceOfN(rapid.Bool(), 1, 100).Draw(t, "flags")
		dec := newFakeVideoDecoder(len(flags))
		frames := frameAnalyzer(func(index int) frameResult {
			return frameResult{inappropriate: flags[index]}
		})

		v, err := newVideoAnalyzer(dec, frames, analyzer.VideoConfig{FrameStride: 1, Workers: 3}).
			Analyze(context.Background(), videoPayload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		flagged := 0
		for _, f := range flags {
			if f {
				flagged++
			}
		}
		ratio := *v.Ratios.InappropriateFrameRatio
		if ratio < 0 || ratio > 1 {
			t.Fatalf("ratio %v out of bounds", ratio)
		}
		if ratio != float64(flagged)/float64(len(flags)) {
			t.Fatalf("ratio %v, want %d/%d", ratio, flagged, len(flags))
		}
		if v.IsInappropriate != (ratio > 0.3) {
			t.Fatalf("is_inappropriate %v at ratio %v", v.IsInappropriate, ratio)
		}
		if dec.counter.Open() != 0 {
			t.Fatalf("frame source left open")
		}
	})
}

func TestVideoAnalyzer_DeadlineReachesFFmpeg(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts required")
	}
	dir := t.TempDir()
	script := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
		return path
	}
	probe := `{"streams":[{"width":2,"height":2,"avg_frame_rate":"25/1","r_frame_rate":"25/1"}],"format":{"duration":"4"}}`
	counter := scratch.NewCounter()
	dec := media.NewVideoDecoder(media.VideoConfig{
		FFmpeg: media.FFmpegConfig{
			FFprobePath: script("ffprobe", "echo '"+probe+"'"),
			FFmpegPath:  script("ffmpeg", "sleep 5"),
		},
	}, scratch.NewManager(t.TempDir(), counter, newTestLogger()), newTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newVideoAnalyzer(dec, flagFirst(0), analyzer.VideoConfig{}).Analyze(ctx, videoPayload)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Zero(t, counter.Open())
}
