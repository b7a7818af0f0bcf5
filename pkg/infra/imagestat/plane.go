package imagestat

import (
	"image"

	"github.com/disintegration/imaging"
)

// plane is a single-channel image with 0..255 intensities.
type plane struct {
	w, h int
	pix  []float64
}

func (p plane) at(x, y int) float64 { return p.pix[y*p.w+x] }

func grayPlane(img image.Image) plane {
	return fromNRGBA(imaging.Grayscale(img))
}

// fromNRGBA reads the red channel, which holds the luma after Grayscale.
func fromNRGBA(g *image.NRGBA) plane {
	b := g.Bounds()
	p := plane{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	for y := 0; y < p.h; y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < p.w; x++ {
			p.pix[y*p.w+x] = float64(row[x*4])
		}
	}
	return p
}

func empty(img image.Image) bool {
	b := img.Bounds()
	return b.Dx() == 0 || b.Dy() == 0
}
