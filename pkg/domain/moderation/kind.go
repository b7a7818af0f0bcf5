package moderation

import (
	"strings"
)

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

func (k Kind) String() string {
	return string(k)
}

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage, KindAudio, KindVideo:
		return true
	}
	return false
}

// ParseKind accepts the request-level kind tag, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", NewValidationError("kind", "unsupported content kind %q", s)
	}
	return k, nil
}

// KindFromMIME maps a MIME type prefix (image/, audio/, video/, text/) to a kind.
func KindFromMIME(mimeType string) (Kind, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage, nil
	case strings.HasPrefix(mt, "audio/"):
		return KindAudio, nil
	case strings.HasPrefix(mt, "video/"):
		return KindVideo, nil
	case strings.HasPrefix(mt, "text/"):
		return KindText, nil
	}
	return "", NewValidationError("content_type", "unsupported mime type %q", mimeType)
}
