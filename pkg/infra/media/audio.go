package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scratch"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"
)

const DefaultSampleRate = 22050

var errInvalidWAV = errors.New("invalid wav file")

//go:generate mockery --name=AudioDecoder --dir=. --output=./mocks --filename=audio_decoder_mock.go --case=underscore --with-expecter
type AudioDecoder interface {
	// Decode returns mono samples in [-1, 1] at the decoder's sample rate.
	Decode(ctx context.Context, data []byte) (moderation.PCM, error)
}

type AudioConfig struct {
	SampleRate int
	FFmpeg     FFmpegConfig
}

type audioDecoder struct {
	config  AudioConfig
	scratch *scratch.Manager
	logger  *logrus.Logger
}

// NewAudioDecoder decodes WAV in process and hands every other container
// to ffmpeg through a scratch file.
func NewAudioDecoder(config AudioConfig, scratchManager *scratch.Manager, logger *logrus.Logger) AudioDecoder {
	if config.SampleRate <= 0 {
		config.SampleRate = DefaultSampleRate
	}
	config.FFmpeg = config.FFmpeg.withDefaults()
	return &audioDecoder{config: config, scratch: scratchManager, logger: logger}
}

func (d *audioDecoder) Decode(ctx context.Context, data []byte) (moderation.PCM, error) {
	if len(data) == 0 {
		return moderation.PCM{}, moderation.NewDecodeError(moderation.KindAudio, moderation.ErrEmptyContent)
	}
	var (
		pcm moderation.PCM
		err error
	)
	if IsWAV(data) {
		pcm, err = decodeWAV(data)
		if err == nil {
			pcm = Resample(pcm, d.config.SampleRate)
		}
	} else {
		pcm, err = d.decodeFFmpeg(ctx, data)
	}
	if err != nil {
		if ctx.Err() != nil {
			return moderation.PCM{}, ctx.Err()
		}
		return moderation.PCM{}, moderation.NewDecodeError(moderation.KindAudio, err)
	}
	if pcm.Empty() {
		return moderation.PCM{}, moderation.NewDecodeError(moderation.KindAudio, moderation.ErrEmptyContent)
	}
	return pcm, nil
}

func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func decodeWAV(data []byte) (moderation.PCM, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return moderation.PCM{}, errInvalidWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return moderation.PCM{}, fmt.Errorf("read wav samples: %w", err)
	}
	return mixDown(buf), nil
}

// mixDown averages interleaved channels and scales by the source bit depth.
func mixDown(buf *audio.IntBuffer) moderation.PCM {
	channels := 1
	rate := 0
	if buf.Format != nil {
		channels = max(1, buf.Format.NumChannels)
		rate = buf.Format.SampleRate
	}
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := math.Pow(2, float64(depth-1))
	offset := 0.0
	if depth == 8 {
		// 8-bit WAV samples are unsigned.
		offset = scale
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += (float64(buf.Data[i*channels+c]) - offset) / scale
		}
		samples[i] = sum / float64(channels)
	}
	return moderation.PCM{Samples: samples, SampleRate: rate}
}

// Resample converts pcm to rate by linear interpolation.
func Resample(pcm moderation.PCM, rate int) moderation.PCM {
	if rate <= 0 || pcm.SampleRate == rate || pcm.Empty() {
		return pcm
	}
	ratio := float64(pcm.SampleRate) / float64(rate)
	n := int(float64(len(pcm.Samples)) / ratio)
	out := make([]float64, n)
	last := len(pcm.Samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= last {
			out[i] = pcm.Samples[last]
			continue
		}
		frac := pos - float64(j)
		out[i] = pcm.Samples[j]*(1-frac) + pcm.Samples[j+1]*frac
	}
	return moderation.PCM{Samples: out, SampleRate: rate}
}

func (d *audioDecoder) decodeFFmpeg(ctx context.Context, data []byte) (moderation.PCM, error) {
	f, err := d.scratch.Write(data, SniffAudioExt(data))
	if err != nil {
		return moderation.PCM{}, err
	}
	defer func() {
		if err := f.Release(); err != nil {
			d.logger.WithError(err).Warn("failed to release audio scratch file")
		}
	}()

	out, err := run(ctx, d.config.FFmpeg.FFmpegPath,
		"-nostdin", "-v", "error",
		"-i", f.Path(),
		"-f", "f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(d.config.SampleRate),
		"pipe:1",
	)
	if err != nil {
		return moderation.PCM{}, err
	}
	return parseF32LE(out, d.config.SampleRate), nil
}

func parseF32LE(raw []byte, rate int) moderation.PCM {
	samples := make([]float64, len(raw)/4)
	for i := range samples {
		samples[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return moderation.PCM{Samples: samples, SampleRate: rate}
}

// SniffAudioExt guesses a file extension from the container magic bytes so
// that transcription backends can tell the format from the file name.
func SniffAudioExt(data []byte) string {
	switch {
	case IsWAV(data):
		return ".wav"
	case bytes.HasPrefix(data, []byte("ID3")),
		len(data) >= 2 && data[0] == 0xff && data[1]&0xe0 == 0xe0:
		return ".mp3"
	case len(data) >= 8 && string(data[4:8]) == "ftyp":
		return ".m4a"
	case bytes.HasPrefix(data, []byte("OggS")):
		return ".ogg"
	case bytes.HasPrefix(data, []byte("fLaC")):
		return ".flac"
	case bytes.HasPrefix(data, []byte{0x1a, 0x45, 0xdf, 0xa3}):
		return ".webm"
	}
	return ".audio"
}
