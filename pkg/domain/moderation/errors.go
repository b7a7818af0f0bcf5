package moderation

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyContent   = errors.New("empty content")
	ErrNoFrames       = errors.New("no frames analyzed")
	ErrUnparsableText = errors.New("unparsable provider reply")
)

// ValidationError is raised before any analysis happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DecodeError means the payload could not be turned into pixels, samples or frames.
type DecodeError struct {
	Kind Kind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func NewDecodeError(kind Kind, err error) error {
	return &DecodeError{Kind: kind, Err: err}
}

// ScoringProviderError wraps a failed or timed out model call.
type ScoringProviderError struct {
	Provider   string
	Capability string
	Err        error
}

func (e *ScoringProviderError) Error() string {
	return fmt.Sprintf("scoring provider %s (%s): %v", e.Provider, e.Capability, e.Err)
}

func (e *ScoringProviderError) Unwrap() error {
	return e.Err
}

func NewScoringProviderError(provider, capability string, err error) error {
	var spe *ScoringProviderError
	if errors.As(err, &spe) {
		return err
	}
	return &ScoringProviderError{Provider: provider, Capability: capability, Err: err}
}

// AggregationError is returned when a ratio would have an empty denominator.
type AggregationError struct {
	Kind    Kind
	Sampled int
	Failed  int
	Err     error
}

func (e *AggregationError) Error() string {
	msg := fmt.Sprintf("aggregate %s: %d sampled, %d failed", e.Kind, e.Sampled, e.Failed)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AggregationError) Unwrap() error {
	if e.Err == nil {
		return ErrNoFrames
	}
	return e.Err
}

// ParseError carries the raw reply a model produced when no score could be read from it.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse score from %q: %v", truncate(e.Input, 64), e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsDecodeError(err error) bool {
	var target *DecodeError
	return errors.As(err, &target)
}

func IsScoringProviderError(err error) bool {
	var target *ScoringProviderError
	return errors.As(err, &target)
}

func IsAggregationError(err error) bool {
	var target *AggregationError
	return errors.As(err, &target)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
