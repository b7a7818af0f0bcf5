package dsp

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

const (
	amin  = 1e-10
	topDB = 80.0
)

type Config struct {
	FrameLength    int     `mapstructure:"frame_length"`
	HopLength      int     `mapstructure:"hop_length"`
	MelBands       int     `mapstructure:"mel_bands"`
	MFCCs          int     `mapstructure:"mfccs"`
	RolloffPercent float64 `mapstructure:"rolloff_percent"`
}

func DefaultConfig() Config {
	return Config{
		FrameLength:    2048,
		HopLength:      512,
		MelBands:       128,
		MFCCs:          20,
		RolloffPercent: 0.85,
	}
}

// FeatureExtractor computes MFCC and spectral rolloff statistics from a
// centered short-time Fourier transform with a periodic Hann window.
type FeatureExtractor struct {
	config Config
	window []float64
	basis  [][]float64
}

func NewFeatureExtractor(config Config) (*FeatureExtractor, error) {
	def := DefaultConfig()
	if config.FrameLength == 0 {
		config.FrameLength = def.FrameLength
	}
	if config.HopLength == 0 {
		config.HopLength = def.HopLength
	}
	if config.MelBands == 0 {
		config.MelBands = def.MelBands
	}
	if config.MFCCs == 0 {
		config.MFCCs = def.MFCCs
	}
	if config.RolloffPercent == 0 {
		config.RolloffPercent = def.RolloffPercent
	}
	if config.FrameLength%2 != 0 || config.HopLength <= 0 {
		return nil, fmt.Errorf("invalid frame length %d or hop length %d", config.FrameLength, config.HopLength)
	}
	if config.MFCCs > config.MelBands {
		return nil, fmt.Errorf("mfccs (%d) cannot exceed mel bands (%d)", config.MFCCs, config.MelBands)
	}
	if config.RolloffPercent <= 0 || config.RolloffPercent >= 1 {
		return nil, fmt.Errorf("rolloff percent must be in (0, 1)")
	}

	window := make([]float64, config.FrameLength)
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(config.FrameLength))
	}
	return &FeatureExtractor{
		config: config,
		window: window,
		basis:  dctBasis(config.MFCCs, config.MelBands),
	}, nil
}

func (e *FeatureExtractor) Name() string { return "dsp" }

func (e *FeatureExtractor) Extract(ctx context.Context, pcm moderation.PCM) (moderation.AudioFeatures, error) {
	if pcm.Empty() {
		return moderation.AudioFeatures{}, moderation.ErrEmptyContent
	}
	n := e.config.FrameLength
	hop := e.config.HopLength
	filters := melFilterbank(pcm.SampleRate, n, e.config.MelBands)
	fft := fourier.NewFFT(n)

	// Zero padding of half a frame on each side centers frame t on sample t*hop.
	padded := make([]float64, len(pcm.Samples)+n)
	copy(padded[n/2:], pcm.Samples)
	frames := 1 + len(pcm.Samples)/hop

	binHz := float64(pcm.SampleRate) / float64(n)
	melDB := make([][]float64, frames)
	rolloff := make([]float64, frames)
	seq := make([]float64, n)
	var coeff []complex128
	power := make([]float64, n/2+1)
	magnitude := make([]float64, n/2+1)
	maxDB := math.Inf(-1)

	for t := 0; t < frames; t++ {
		if t%256 == 0 {
			if err := ctx.Err(); err != nil {
				return moderation.AudioFeatures{}, err
			}
		}
		off := t * hop
		for i := range seq {
			seq[i] = padded[off+i] * e.window[i]
		}
		coeff = fft.Coefficients(coeff, seq)
		var total float64
		for k, c := range coeff {
			m := cmplx.Abs(c)
			magnitude[k] = m
			power[k] = m * m
			total += m
		}
		rolloff[t] = rolloffFrequency(magnitude, total, e.config.RolloffPercent, binHz)

		bands := make([]float64, len(filters))
		for m, f := range filters {
			db := 10 * math.Log10(math.Max(amin, f.apply(power)))
			bands[m] = db
			if db > maxDB {
				maxDB = db
			}
		}
		melDB[t] = bands
	}

	floor := maxDB - topDB
	mfccs := make([]float64, 0, frames*e.config.MFCCs)
	for _, bands := range melDB {
		for m, v := range bands {
			if v < floor {
				bands[m] = floor
			}
		}
		mfccs = append(mfccs, dctOrtho(bands, e.config.MFCCs, e.basis)...)
	}

	return moderation.AudioFeatures{
		MFCCMean:        stat.Mean(mfccs, nil),
		MFCCStd:         popStdDev(mfccs),
		RolloffMean:     stat.Mean(rolloff, nil),
		RolloffStd:      popStdDev(rolloff),
		Frames:          frames,
		DurationSeconds: pcm.Duration().Seconds(),
	}, nil
}

// rolloffFrequency is the lowest bin frequency below which pct of the
// frame's spectral magnitude lies. Silent frames report 0.
func rolloffFrequency(magnitude []float64, total, pct, binHz float64) float64 {
	if total <= 0 {
		return 0
	}
	threshold := pct * total
	var cum float64
	for k, m := range magnitude {
		cum += m
		if cum >= threshold {
			return float64(k) * binHz
		}
	}
	return float64(len(magnitude)-1) * binHz
}

func popStdDev(x []float64) float64 {
	n := float64(len(x))
	if n < 2 {
		return 0
	}
	return math.Sqrt(stat.Variance(x, nil) * (n - 1) / n)
}
