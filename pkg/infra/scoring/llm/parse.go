package llm

import (
	"errors"
	"regexp"
	"strconv"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/valyala/fastjson"
)

// FallbackScore is used when a model reply carries no readable number.
const FallbackScore = 0.5

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseResult is the outcome of reading a score from a model reply. Err is set
// when Value is not trustworthy; use OrFallback to obtain the documented default.
type ParseResult struct {
	Value float64
	Err   *moderation.ParseError
}

func (r ParseResult) OK() bool {
	return r.Err == nil
}

func (r ParseResult) OrFallback(fallback float64) float64 {
	if r.Err != nil {
		return fallback
	}
	return r.Value
}

// ParseScore reads a score, clamped to [0, 1], from either a JSON object holding key,
// a bare JSON number, or the first number found in free text.
func ParseScore(reply, key string) ParseResult {
	s := stripFences(reply)
	if s == "" {
		return failed(reply, moderation.ErrUnparsableText)
	}

	var p fastjson.Parser
	if v, err := p.Parse(s); err == nil {
		switch v.Type() {
		case fastjson.TypeNumber:
			return bounded(v.GetFloat64())
		case fastjson.TypeObject:
			field := v.Get(key)
			if field == nil {
				return failed(reply, errors.New("missing key "+key))
			}
			switch field.Type() {
			case fastjson.TypeNumber:
				return bounded(field.GetFloat64())
			case fastjson.TypeString:
				return parseNumber(reply, string(field.GetStringBytes()))
			}
			return failed(reply, errors.New("non numeric "+key))
		}
	}

	return parseNumber(reply, s)
}

func parseNumber(reply, s string) ParseResult {
	m := numberPattern.FindString(s)
	if m == "" {
		return failed(reply, moderation.ErrUnparsableText)
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return failed(reply, err)
	}
	return bounded(f)
}

// bounded clamps a readable number into [0, 1]; only replies without a
// number fall back.
func bounded(f float64) ParseResult {
	return ParseResult{Value: moderation.Clamp01(f)}
}

func failed(reply string, err error) ParseResult {
	return ParseResult{Err: &moderation.ParseError{Input: reply, Err: err}}
}
