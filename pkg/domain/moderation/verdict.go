package moderation

type Sentiment struct {
	Negative float64 `json:"neg"`
	Neutral  float64 `json:"neu"`
	Positive float64 `json:"pos"`
	Compound float64 `json:"compound"`
}

type LabelScore struct {
	Label    string  `json:"label"`
	Score    float64 `json:"score"`
	Fallback bool    `json:"fallback,omitempty"`
}

// MaxLabel returns the highest scoring label, or a zero value for an empty slice.
func MaxLabel(scores []LabelScore) LabelScore {
	var best LabelScore
	for i, s := range scores {
		if i == 0 || s.Score > best.Score {
			best = s
		}
	}
	return best
}

type Detection struct {
	Class string  `json:"class"`
	Score float64 `json:"score"`
	Box   []int   `json:"box,omitempty"`
}

type TextIndicators struct {
	WordCount     int     `json:"word_count"`
	Length        float64 `json:"length"`
	Repetition    float64 `json:"repetition"`
	Punctuation   float64 `json:"punctuation"`
	SelfReference float64 `json:"self_reference"`
	Score         float64 `json:"score"`
}

type ImageSignals struct {
	ErrorLevel             float64 `json:"error_level"`
	NoiseUniformity        float64 `json:"noise_uniformity"`
	EdgeDensity            float64 `json:"edge_density"`
	CoOccurrenceUniformity float64 `json:"co_occurrence_uniformity"`
	MirrorDifference       float64 `json:"mirror_difference"`
	Symmetric              bool    `json:"symmetric"`
}

type AudioFeatures struct {
	MFCCMean        float64 `json:"mfccs_mean"`
	MFCCStd         float64 `json:"mfccs_std"`
	RolloffMean     float64 `json:"spectral_rolloff_mean"`
	RolloffStd      float64 `json:"spectral_rolloff_std"`
	Frames          int     `json:"frames"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Transcript struct {
	Text     string              `json:"text"`
	Language string              `json:"language,omitempty"`
	Segments []TranscriptSegment `json:"segments,omitempty"`
}

type SegmentVerdict struct {
	Index           int     `json:"index"`
	Start           float64 `json:"start"`
	End             float64 `json:"end"`
	Text            string  `json:"text"`
	IsInappropriate bool    `json:"is_inappropriate"`
	Toxicity        float64 `json:"toxicity"`
	Error           string  `json:"error,omitempty"`
}

type FrameVerdict struct {
	Index           int     `json:"index"`
	Timestamp       float64 `json:"timestamp"`
	IsInappropriate bool    `json:"is_inappropriate"`
	IsSynthetic     bool    `json:"is_synthetic"`
	NSFW            float64 `json:"nsfw"`
	Error           string  `json:"error,omitempty"`
}

type Failure struct {
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

type Details struct {
	Sentiment           *Sentiment       `json:"sentiment,omitempty"`
	Toxicity            []LabelScore     `json:"toxicity,omitempty"`
	SyntheticIndicators *TextIndicators  `json:"synthetic_indicators,omitempty"`
	NSFW                []Detection      `json:"nsfw_details,omitempty"`
	ImageSignals        *ImageSignals    `json:"image_signals,omitempty"`
	AudioFeatures       *AudioFeatures   `json:"audio_features,omitempty"`
	TranscribedText     *string          `json:"transcribed_text,omitempty"`
	Segments            []SegmentVerdict `json:"segments,omitempty"`
	Frames              []FrameVerdict   `json:"frames,omitempty"`
	FailedFrames        int              `json:"failed_frames,omitempty"`
	Warnings            []string         `json:"warnings,omitempty"`
	Failure             *Failure         `json:"failure,omitempty"`
}

type Ratios struct {
	InappropriateFrameRatio *float64 `json:"inappropriate_frame_ratio,omitempty"`
	SyntheticFrameRatio     *float64 `json:"synthetic_frame_ratio,omitempty"`
	FramesAnalyzed          int      `json:"frames_analyzed,omitempty"`
	FlaggedSegmentRatio     *float64 `json:"flagged_segment_ratio,omitempty"`
	SegmentsAnalyzed        int      `json:"segments_analyzed,omitempty"`
}

// Verdict is the per-kind analyzer result. SyntheticAssessed is false when no
// synthetic-content signal was computed, e.g. transcript-only audio.
type Verdict struct {
	IsInappropriate   bool
	IsSynthetic       bool
	SyntheticAssessed bool
	Scores            ScoreSet
	Ratios            *Ratios
	Details           Details
}

func (v *Verdict) Failed() bool {
	return v != nil && v.Details.Failure != nil
}

// FailureVerdict is the recovered result for audio paths: never inappropriate.
func FailureVerdict(reason string, err error) *Verdict {
	f := &Failure{Reason: reason}
	if err != nil {
		f.Error = err.Error()
	}
	return &Verdict{
		Scores:  NewScoreSet(),
		Details: Details{Failure: f},
	}
}

func Float(v float64) *float64 {
	return &v
}

func String(s string) *string {
	return &s
}
