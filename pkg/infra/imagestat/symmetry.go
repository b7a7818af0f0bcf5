package imagestat

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// MirrorDifference is the mean absolute RGB difference between the left
// half of img and the mirrored right half, on a 0..255 scale. Images
// narrower than two pixels report 0.
func MirrorDifference(img image.Image) float64 {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	half := w / 2
	if half == 0 || h == 0 {
		return 0
	}
	flipped := imaging.FlipH(src)

	var sum float64
	for y := 0; y < h; y++ {
		a := src.Pix[y*src.Stride:]
		b := flipped.Pix[y*flipped.Stride:]
		for x := 0; x < half; x++ {
			for c := 0; c < 3; c++ {
				sum += math.Abs(float64(a[x*4+c]) - float64(b[x*4+c]))
			}
		}
	}
	return sum / float64(half*h*3)
}
