package moderation

import (
	"time"

	"github.com/google/uuid"
)

// Response is the normalized moderation result returned to callers.
type Response struct {
	ID              uuid.UUID `json:"id"`
	Kind            Kind      `json:"kind"`
	IsInappropriate bool      `json:"is_inappropriate"`
	IsSynthetic     *bool     `json:"is_synthetic,omitempty"`
	Scores          ScoreSet  `json:"scores" swaggertype:"object,number"`
	Ratios          *Ratios   `json:"ratios,omitempty"`
	Details         *Details  `json:"details,omitempty"`
	Cached          bool      `json:"cached,omitempty"`
	ElapsedMS       int64     `json:"elapsed_ms"`
}

func NewResponse(kind Kind, v *Verdict, elapsed time.Duration) *Response {
	resp := &Response{
		ID:              uuid.New(),
		Kind:            kind,
		IsInappropriate: v.IsInappropriate,
		Scores:          v.Scores,
		Ratios:          v.Ratios,
		ElapsedMS:       elapsed.Milliseconds(),
	}
	if v.SyntheticAssessed {
		synthetic := v.IsSynthetic
		resp.IsSynthetic = &synthetic
	}
	details := v.Details
	resp.Details = &details
	return resp
}
