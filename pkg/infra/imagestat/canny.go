package imagestat

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	CannyLow   = 100.0
	CannyHigh  = 200.0
	cannySigma = 1.4
)

// EdgeDensity is the fraction of pixels marked as edges by a Canny detector
// with hysteresis thresholds CannyLow and CannyHigh on the L1 Sobel gradient.
func EdgeDensity(img image.Image) float64 {
	if empty(img) {
		return 0
	}
	p := fromNRGBA(imaging.Blur(imaging.Grayscale(img), cannySigma))
	edges := canny(p, CannyLow, CannyHigh)
	var n int
	for _, e := range edges {
		if e {
			n++
		}
	}
	return float64(n) / float64(len(edges))
}

func canny(p plane, low, high float64) []bool {
	w, h := p.w, p.h
	mag := make([]float64, w*h)
	dir := make([]uint8, w*h)
	clampAt := func(x, y int) float64 {
		x = max(0, min(w-1, x))
		y = max(0, min(h-1, y))
		return p.at(x, y)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -clampAt(x-1, y-1) - 2*clampAt(x-1, y) - clampAt(x-1, y+1) +
				clampAt(x+1, y-1) + 2*clampAt(x+1, y) + clampAt(x+1, y+1)
			gy := -clampAt(x-1, y-1) - 2*clampAt(x, y-1) - clampAt(x+1, y-1) +
				clampAt(x-1, y+1) + 2*clampAt(x, y+1) + clampAt(x+1, y+1)
			i := y*w + x
			mag[i] = math.Abs(gx) + math.Abs(gy)
			dir[i] = quantizeDirection(gx, gy)
		}
	}

	// Non-maximum suppression along the gradient direction.
	const (
		none   = 0
		weak   = 1
		strong = 2
	)
	state := make([]uint8, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			m := mag[i]
			if m <= low {
				continue
			}
			var a, b float64
			switch dir[i] {
			case 0:
				a, b = mag[i-1], mag[i+1]
			case 1:
				a, b = mag[i-w-1], mag[i+w+1]
			case 2:
				a, b = mag[i-w], mag[i+w]
			default:
				a, b = mag[i-w+1], mag[i+w-1]
			}
			if m < a || m < b {
				continue
			}
			if m > high {
				state[i] = strong
			} else {
				state[i] = weak
			}
		}
	}

	// Hysteresis: keep weak pixels connected to a strong one.
	edges := make([]bool, w*h)
	stack := make([]int, 0, 64)
	for i, s := range state {
		if s == strong && !edges[i] {
			edges[i] = true
			stack = append(stack, i)
		}
		for len(stack) > 0 {
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			jx, jy := j%w, j/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := jx+dx, jy+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					k := ny*w + nx
					if state[k] != none && !edges[k] {
						edges[k] = true
						stack = append(stack, k)
					}
				}
			}
		}
	}
	return edges
}

// quantizeDirection maps a gradient to 0 (horizontal), 1 (45°),
// 2 (vertical) or 3 (135°).
func quantizeDirection(gx, gy float64) uint8 {
	angle := math.Atan2(gy, gx) * 180 / math.Pi
	if angle < 0 {
		angle += 180
	}
	switch {
	case angle < 22.5 || angle >= 157.5:
		return 0
	case angle < 67.5:
		return 1
	case angle < 112.5:
		return 2
	default:
		return 3
	}
}
