package imagestat

import (
	"image"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
)

// Compute runs every pixel statistic on img. Symmetric is left for the
// caller since it depends on the configured mirror threshold.
func Compute(img image.Image) (moderation.ImageSignals, error) {
	ela, err := ErrorLevel(img)
	if err != nil {
		return moderation.ImageSignals{}, err
	}
	return moderation.ImageSignals{
		ErrorLevel:             ela,
		NoiseUniformity:        NoiseUniformity(img),
		EdgeDensity:            EdgeDensity(img),
		CoOccurrenceUniformity: CoOccurrenceUniformity(img),
		MirrorDifference:       MirrorDifference(img),
	}, nil
}
