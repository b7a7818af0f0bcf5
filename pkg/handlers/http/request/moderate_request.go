package request

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
)

const mb = 1024 * 1024

var ErrContentTooLarge = errors.New("content too large")

// ModerateRequest is the JSON form of a moderation call. Text content is sent
// as is; image, audio and video content is base64 encoded.
type ModerateRequest struct {
	ContentType string `json:"content_type"` // @required
	Content     string `json:"content"`      // @required
	Filename    string `json:"filename"`
}

type Limits struct {
	MaxContentBytes int64
	MaxAudioBytes   int64
	// AllowedFormats lists accepted file extensions per kind, without the dot.
	// A kind with no entry accepts any format its decoder understands.
	AllowedFormats map[moderation.Kind][]string
}

func DefaultLimits() Limits {
	return Limits{
		MaxContentBytes: 50 * mb,
		MaxAudioBytes:   100 * mb,
		AllowedFormats: map[moderation.Kind][]string{
			moderation.KindImage: {"jpg", "jpeg", "png"},
			moderation.KindAudio: {"wav", "mp3", "m4a"},
			moderation.KindVideo: {"mp4", "mov"},
		},
	}
}

func (l Limits) MaxBytes(kind moderation.Kind) int64 {
	if kind == moderation.KindAudio && l.MaxAudioBytes > 0 {
		return l.MaxAudioBytes
	}
	return l.MaxContentBytes
}

// MaxRequestBytes is the largest payload any kind accepts.
func (l Limits) MaxRequestBytes() int64 {
	return max(l.MaxContentBytes, l.MaxAudioBytes)
}

func (l Limits) CheckSize(kind moderation.Kind, size int64) error {
	limit := l.MaxBytes(kind)
	if limit > 0 && size > limit {
		return fmt.Errorf("%w: %s payload of %d bytes exceeds the %d byte limit", ErrContentTooLarge, kind, size, limit)
	}
	return nil
}

// CheckFormat validates filename's extension against the kind's allow-list.
// An empty filename is not checked.
func (l Limits) CheckFormat(kind moderation.Kind, filename string) error {
	allowed, ok := l.AllowedFormats[kind]
	if filename == "" || !ok || len(allowed) == 0 {
		return nil
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !slices.Contains(allowed, ext) {
		return moderation.NewValidationError("filename", "unsupported %s format %q, allowed: %s", kind, ext, strings.Join(allowed, ", "))
	}
	return nil
}

// Decode validates the request and returns its kind and raw content.
func (r *ModerateRequest) Decode(limits Limits) (moderation.Kind, []byte, error) {
	kind, err := moderation.ParseKind(r.ContentType)
	if err != nil {
		return "", nil, err
	}
	if r.Content == "" {
		return "", nil, moderation.NewValidationError("content", "content is required")
	}
	if err := limits.CheckFormat(kind, r.Filename); err != nil {
		return "", nil, err
	}

	var content []byte
	if kind == moderation.KindText {
		content = []byte(r.Content)
	} else {
		content, err = base64.StdEncoding.DecodeString(r.Content)
		if err != nil {
			return "", nil, moderation.NewValidationError("content", "%s content must be base64 encoded: %v", kind, err)
		}
	}
	if err := limits.CheckSize(kind, int64(len(content))); err != nil {
		return "", nil, err
	}
	return kind, content, nil
}
