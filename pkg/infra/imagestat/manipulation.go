package imagestat

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"
)

const (
	elaQuality = 90
	noiseSigma = 1.0
)

// ErrorLevel re-encodes img as JPEG and returns the mean absolute
// per-channel difference against the original, scaled to [0, 1].
func ErrorLevel(img image.Image) (float64, error) {
	if empty(img) {
		return 0, nil
	}
	src := imaging.Clone(img)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: elaQuality}); err != nil {
		return 0, fmt.Errorf("ela encode: %w", err)
	}
	decoded, err := jpeg.Decode(&buf)
	if err != nil {
		return 0, fmt.Errorf("ela decode: %w", err)
	}
	re := imaging.Clone(decoded)

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	var sum float64
	for y := 0; y < h; y++ {
		a := src.Pix[y*src.Stride:]
		b := re.Pix[y*re.Stride:]
		for x := 0; x < w; x++ {
			for c := 0; c < 3; c++ {
				sum += math.Abs(float64(a[x*4+c]) - float64(b[x*4+c]))
			}
		}
	}
	return moderation.Clamp01(sum / float64(w*h*3) / 255), nil
}

// NoiseUniformity is the coefficient of variation of the residual between
// the grayscale image and a Gaussian-denoised copy, clamped to [0, 1].
// A zero mean residual yields 0.
func NoiseUniformity(img image.Image) float64 {
	if empty(img) {
		return 0
	}
	gray := imaging.Grayscale(img)
	p := fromNRGBA(gray)
	d := fromNRGBA(imaging.Blur(gray, noiseSigma))

	residual := make([]float64, len(p.pix))
	for i := range p.pix {
		residual[i] = math.Abs(p.pix[i] - d.pix[i])
	}
	mean := stat.Mean(residual, nil)
	if mean == 0 {
		return 0
	}
	return moderation.Clamp01(popStdDev(residual) / mean)
}

func popStdDev(x []float64) float64 {
	n := float64(len(x))
	if n < 2 {
		return 0
	}
	return math.Sqrt(stat.Variance(x, nil) * (n - 1) / n)
}
