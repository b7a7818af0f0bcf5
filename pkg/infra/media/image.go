package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

//go:generate mockery --name=ImageDecoder --dir=. --output=./mocks --filename=image_decoder_mock.go --case=underscore --with-expecter
type ImageDecoder interface {
	Decode(data []byte) (image.Image, string, error)
}

type imageDecoder struct {
	maxPixels int
}

// NewImageDecoder returns a decoder for jpeg, png, gif, webp and bmp.
// Images with more than maxPixels pixels are rejected before decoding.
func NewImageDecoder(maxPixels int) ImageDecoder {
	return &imageDecoder{maxPixels: maxPixels}
}

func (d *imageDecoder) Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", moderation.NewDecodeError(moderation.KindImage, moderation.ErrEmptyContent)
	}
	if d.maxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, "", moderation.NewDecodeError(moderation.KindImage, err)
		}
		if cfg.Width*cfg.Height > d.maxPixels {
			return nil, "", moderation.NewDecodeError(moderation.KindImage,
				fmt.Errorf("image is %dx%d, above the %d pixel limit", cfg.Width, cfg.Height, d.maxPixels))
		}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", moderation.NewDecodeError(moderation.KindImage, err)
	}
	return img, format, nil
}
