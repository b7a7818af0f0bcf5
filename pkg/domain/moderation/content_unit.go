package moderation

import (
	"image"
	"time"
)

type UnitKind string

const (
	UnitText         UnitKind = "text"
	UnitImage        UnitKind = "image"
	UnitAudioSegment UnitKind = "audio_segment"
	UnitVideoFrame   UnitKind = "video_frame"
)

// PCM is mono audio normalized to [-1, 1].
type PCM struct {
	Samples    []float64
	SampleRate int
}

func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(p.Samples)) / float64(p.SampleRate) * float64(time.Second))
}

func (p PCM) Empty() bool {
	return len(p.Samples) == 0 || p.SampleRate <= 0
}

// ContentUnit is one analyzable piece of a payload. It is not mutated after construction.
type ContentUnit struct {
	kind      UnitKind
	index     int
	text      string
	image     image.Image
	timestamp time.Duration
	hasTime   bool
}

func NewTextUnit(text string) ContentUnit {
	return ContentUnit{kind: UnitText, text: text}
}

func NewImageUnit(img image.Image) ContentUnit {
	return ContentUnit{kind: UnitImage, image: img}
}

func NewFrameUnit(img image.Image, index int, ts time.Duration) ContentUnit {
	return ContentUnit{kind: UnitVideoFrame, image: img, index: index, timestamp: ts, hasTime: true}
}

// NewSegmentUnit builds an audio segment unit from its transcribed text.
func NewSegmentUnit(text string, index int, start time.Duration) ContentUnit {
	return ContentUnit{kind: UnitAudioSegment, text: text, index: index, timestamp: start, hasTime: true}
}

func (u ContentUnit) Kind() UnitKind     { return u.kind }
func (u ContentUnit) Index() int         { return u.index }
func (u ContentUnit) Text() string       { return u.text }
func (u ContentUnit) Image() image.Image { return u.image }

func (u ContentUnit) Timestamp() (time.Duration, bool) {
	return u.timestamp, u.hasTime
}
