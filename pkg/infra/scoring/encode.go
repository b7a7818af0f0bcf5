package scoring

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

// DefaultUploadSide bounds the longest side of images sent to remote scorers.
const DefaultUploadSide = 1024

// EncodeJPEG downsizes img to fit maxSide and encodes it for upload.
func EncodeJPEG(img image.Image, maxSide int) ([]byte, error) {
	if maxSide <= 0 {
		maxSide = DefaultUploadSide
	}
	b := img.Bounds()
	if b.Dx() > maxSide || b.Dy() > maxSide {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func EncodeDataURL(img image.Image, maxSide int) (string, error) {
	data, err := EncodeJPEG(img, maxSide)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}
