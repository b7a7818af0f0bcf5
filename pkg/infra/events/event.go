package events

import (
	"time"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/google/uuid"
)

const VerdictEventType = "moderation.verdict"

// Event is the record emitted for every completed moderation. Content is
// never included, only its digest.
type Event struct {
	Type            string             `json:"type"`
	ID              uuid.UUID          `json:"id"`
	Kind            moderation.Kind    `json:"kind"`
	Source          string             `json:"source,omitempty"`
	ContentDigest   string             `json:"content_digest,omitempty"`
	IsInappropriate bool               `json:"is_inappropriate"`
	IsSynthetic     *bool              `json:"is_synthetic,omitempty"`
	Scores          map[string]float64 `json:"scores"`
	Ratios          *moderation.Ratios `json:"ratios,omitempty"`
	FailureReason   string             `json:"failure_reason,omitempty"`
	Warnings        []string           `json:"warnings,omitempty"`
	Cached          bool               `json:"cached"`
	Latency         int64              `json:"latency_ms"`
	Timestamp       int64              `json:"timestamp"`
}

func NewVerdictEvent(resp *moderation.Response, source, digest string, at time.Time) *Event {
	evt := &Event{
		Type:            VerdictEventType,
		ID:              resp.ID,
		Kind:            resp.Kind,
		Source:          source,
		ContentDigest:   digest,
		IsInappropriate: resp.IsInappropriate,
		IsSynthetic:     resp.IsSynthetic,
		Scores:          resp.Scores.Map(),
		Ratios:          resp.Ratios,
		Cached:          resp.Cached,
		Latency:         resp.ElapsedMS,
		Timestamp:       at.Unix(),
	}
	if resp.Details != nil {
		evt.Warnings = resp.Details.Warnings
		if resp.Details.Failure != nil {
			evt.FailureReason = resp.Details.Failure.Reason
		}
	}
	return evt
}
