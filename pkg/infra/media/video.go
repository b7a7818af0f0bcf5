package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scratch"
	"github.com/sirupsen/logrus"
)

type Frame struct {
	Index     int
	Timestamp time.Duration
	Image     image.Image
}

// FrameSource yields decoded frames in presentation order. Next returns
// io.EOF after the last frame. Close must be called on every path.
//
//go:generate mockery --name=FrameSource --dir=. --output=./mocks --filename=frame_source_mock.go --case=underscore --with-expecter
type FrameSource interface {
	Info() VideoInfo
	Next(ctx context.Context) (Frame, error)
	Close() error
}

//go:generate mockery --name=VideoDecoder --dir=. --output=./mocks --filename=video_decoder_mock.go --case=underscore --with-expecter
type VideoDecoder interface {
	Open(ctx context.Context, data []byte) (FrameSource, error)
}

type VideoConfig struct {
	// MaxFrames bounds how many frames ffmpeg decodes. Zero means no bound.
	MaxFrames int
	FFmpeg    FFmpegConfig
}

type ffmpegVideoDecoder struct {
	config  VideoConfig
	scratch *scratch.Manager
	logger  *logrus.Logger
}

func NewVideoDecoder(config VideoConfig, scratchManager *scratch.Manager, logger *logrus.Logger) VideoDecoder {
	config.FFmpeg = config.FFmpeg.withDefaults()
	return &ffmpegVideoDecoder{config: config, scratch: scratchManager, logger: logger}
}

func (d *ffmpegVideoDecoder) Open(ctx context.Context, data []byte) (src FrameSource, err error) {
	if len(data) == 0 {
		return nil, moderation.NewDecodeError(moderation.KindVideo, moderation.ErrEmptyContent)
	}
	f, err := d.scratch.Write(data, ".video")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rerr := f.Release(); rerr != nil {
				d.logger.WithError(rerr).Warn("failed to release video scratch file")
			}
		}
	}()

	info, err := probe(ctx, d.config.FFmpeg.FFprobePath, f.Path())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, moderation.NewDecodeError(moderation.KindVideo, err)
	}

	args := []string{"-nostdin", "-v", "error", "-i", f.Path(), "-map", "0:v:0"}
	if d.config.MaxFrames > 0 {
		args = append(args, "-frames:v", strconv.Itoa(d.config.MaxFrames))
	}
	args = append(args, "-f", "rawvideo", "-pix_fmt", "rgb24", "pipe:1")

	// The process outlives Open but still follows the caller's deadline.
	procCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)
	cmd := command(procCtx, d.config.FFmpeg.FFmpegPath, args...)
	stderr := &tailBuffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stop()
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stop()
		cancel()
		return nil, moderation.NewDecodeError(moderation.KindVideo, fmt.Errorf("start ffmpeg: %w", err))
	}

	return &ffmpegFrameSource{
		info:    info,
		cmd:     cmd,
		procCtx: procCtx,
		cancel:  cancel,
		stop:    stop,
		stderr:  stderr,
		reader:  bufio.NewReaderSize(stdout, info.Width*info.Height*3),
		file:    f,
		buf:     make([]byte, info.Width*info.Height*3),
		logger:  d.logger,
	}, nil
}

type ffmpegFrameSource struct {
	info    VideoInfo
	cmd     *exec.Cmd
	procCtx context.Context
	cancel  context.CancelFunc
	stop    func() bool
	stderr  *tailBuffer
	reader  *bufio.Reader
	file    *scratch.File
	buf     []byte
	next    int
	logger  *logrus.Logger

	waitOnce  sync.Once
	waitErr   error
	closeOnce sync.Once
	closeErr  error
}

func (s *ffmpegFrameSource) Info() VideoInfo { return s.info }

func (s *ffmpegFrameSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if _, err := io.ReadFull(s.reader, s.buf); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Frame{}, ctxErr
		}
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			if werr := s.wait(); werr != nil {
				return Frame{}, fmt.Errorf("after %d frames: %w", s.next, werr)
			}
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("read frame %d: %w", s.next, err)
	}
	frame := Frame{
		Index: s.next,
		Image: rgb24ToImage(s.buf, s.info.Width, s.info.Height),
	}
	if s.info.FPS > 0 {
		frame.Timestamp = time.Duration(math.Round(float64(s.next) / s.info.FPS * float64(time.Second)))
	}
	s.next++
	return frame, nil
}

// wait reaps ffmpeg. Exits caused by our own cancellation are not errors.
func (s *ffmpegFrameSource) wait() error {
	s.waitOnce.Do(func() {
		err := s.cmd.Wait()
		if err == nil || s.procCtx.Err() != nil {
			return
		}
		if msg := s.stderr.String(); msg != "" {
			s.waitErr = fmt.Errorf("ffmpeg: %w: %s", err, msg)
			return
		}
		s.waitErr = fmt.Errorf("ffmpeg: %w", err)
	})
	return s.waitErr
}

// Close stops ffmpeg and removes the scratch copy of the container.
func (s *ffmpegFrameSource) Close() error {
	s.closeOnce.Do(func() {
		s.stop()
		s.cancel()
		if err := s.wait(); err != nil {
			s.logger.WithError(err).Warn("ffmpeg exited with an error")
		}
		s.closeErr = s.file.Release()
	})
	return s.closeErr
}

func rgb24ToImage(raw []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i+2 < len(raw) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j] = raw[i]
		img.Pix[j+1] = raw[i+1]
		img.Pix[j+2] = raw[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
