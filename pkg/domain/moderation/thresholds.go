package moderation

// Thresholds holds every decision cut-off. All comparisons are strict: a score
// equal to its threshold does not trip it.
type Thresholds struct {
	Toxicity                float64 `mapstructure:"toxicity"`
	NSFW                    float64 `mapstructure:"nsfw"`
	SyntheticText           float64 `mapstructure:"synthetic_text"`
	SyntheticAudio          float64 `mapstructure:"synthetic_audio"`
	EdgeArtifact            float64 `mapstructure:"edge_artifact"`
	CoOccurrence            float64 `mapstructure:"co_occurrence"`
	MirrorDifference        float64 `mapstructure:"mirror_difference"`
	MFCCStd                 float64 `mapstructure:"mfcc_std"`
	RolloffStd              float64 `mapstructure:"rolloff_std"`
	InappropriateFrameRatio float64 `mapstructure:"inappropriate_frame_ratio"`
	SyntheticFrameRatio     float64 `mapstructure:"synthetic_frame_ratio"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Toxicity:                0.7,
		NSFW:                    0.7,
		SyntheticText:           0.7,
		SyntheticAudio:          0.7,
		EdgeArtifact:            0.7,
		CoOccurrence:            0.8,
		MirrorDifference:        50,
		MFCCStd:                 0.5,
		RolloffStd:              0.5,
		InappropriateFrameRatio: 0.3,
		SyntheticFrameRatio:     0.7,
	}
}

func (t Thresholds) Validate() error {
	unit := map[string]float64{
		"toxicity":                  t.Toxicity,
		"nsfw":                      t.NSFW,
		"synthetic_text":            t.SyntheticText,
		"synthetic_audio":           t.SyntheticAudio,
		"edge_artifact":             t.EdgeArtifact,
		"co_occurrence":             t.CoOccurrence,
		"inappropriate_frame_ratio": t.InappropriateFrameRatio,
		"synthetic_frame_ratio":     t.SyntheticFrameRatio,
	}
	for name, v := range unit {
		if v < 0 || v > 1 {
			return NewValidationError("thresholds."+name, "must be within [0, 1], got %v", v)
		}
	}
	if t.MirrorDifference < 0 || t.MirrorDifference > 255 {
		return NewValidationError("thresholds.mirror_difference", "must be within [0, 255], got %v", t.MirrorDifference)
	}
	if t.MFCCStd < 0 || t.RolloffStd < 0 {
		return NewValidationError("thresholds", "spectral deviation thresholds must be positive")
	}
	return nil
}

// Exceeds reports whether score strictly exceeds threshold.
func Exceeds(score, threshold float64) bool {
	return score > threshold
}
