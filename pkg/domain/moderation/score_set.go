package moderation

import (
	"encoding/json"
	"math"
	"sort"
)

const (
	SignalToxicity      = "toxicity"
	SignalNSFW          = "nsfw"
	SignalSynthetic     = "synthetic"
	SignalManipulation  = "manipulation"
	SignalErrorLevel    = "error_level"
	SignalNoise         = "noise_uniformity"
	SignalEdgeDensity   = "edge_density"
	SignalCoOccurrence  = "co_occurrence_uniformity"
	SignalFlaggedFrames = "inappropriate_frames"
)

type Score struct {
	Value float64
	Label string
}

// ScoreSet maps signal names to values in [0, 1].
type ScoreSet struct {
	entries map[string]Score
}

type ScoreEntry struct {
	Name  string
	Value float64
	Label string
}

func NewScoreSet(entries ...ScoreEntry) ScoreSet {
	s := ScoreSet{entries: make(map[string]Score, len(entries))}
	for _, e := range entries {
		s.entries[e.Name] = Score{Value: Clamp01(e.Value), Label: e.Label}
	}
	return s
}

func (s ScoreSet) Get(name string) (Score, bool) {
	v, ok := s.entries[name]
	return v, ok
}

func (s ScoreSet) Value(name string) float64 {
	return s.entries[name].Value
}

func (s ScoreSet) Len() int {
	return len(s.entries)
}

func (s ScoreSet) Names() []string {
	names := make([]string, 0, len(s.entries))
	for k := range s.entries {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of s with the extra entries applied.
func (s ScoreSet) With(entries ...ScoreEntry) ScoreSet {
	out := ScoreSet{entries: make(map[string]Score, len(s.entries)+len(entries))}
	for k, v := range s.entries {
		out.entries[k] = v
	}
	for _, e := range entries {
		out.entries[e.Name] = Score{Value: Clamp01(e.Value), Label: e.Label}
	}
	return out
}

func (s ScoreSet) Map() map[string]float64 {
	out := make(map[string]float64, len(s.entries))
	for k, v := range s.entries {
		out[k] = v.Value
	}
	return out
}

func (s ScoreSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

func (s *ScoreSet) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	s.entries = make(map[string]Score, len(m))
	for k, v := range m {
		s.entries[k] = Score{Value: Clamp01(v)}
	}
	return nil
}

func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
