package imagestat

import "image"

// CoOccurrenceUniformity is the angular second moment of the normalized
// grey-level co-occurrence matrix for horizontal neighbours at distance 1.
// It is 1 for a flat image and approaches 0 for noisy texture.
func CoOccurrenceUniformity(img image.Image) float64 {
	if empty(img) {
		return 0
	}
	p := grayPlane(img)
	if p.w < 2 {
		return 1
	}
	var glcm [256 * 256]uint32
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w-1; x++ {
			a := int(p.at(x, y))
			b := int(p.at(x+1, y))
			glcm[a*256+b]++
		}
	}
	total := float64(p.h * (p.w - 1))
	var asm float64
	for _, c := range glcm {
		if c == 0 {
			continue
		}
		v := float64(c) / total
		asm += v * v
	}
	return asm
}
