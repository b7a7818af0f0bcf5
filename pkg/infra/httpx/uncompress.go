package httpx

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

var ErrBodyTooLarge = errors.New("decoded body exceeds limit")

// DecodeBody undoes a Content-Encoding chain such as "gzip, br" on an uploaded
// payload. Encodings are removed right to left. The decoded size is capped at
// limit bytes; limit <= 0 disables the cap.
func DecodeBody(contentEncoding string, body []byte, limit int64) ([]byte, error) {
	if strings.TrimSpace(contentEncoding) == "" {
		return body, nil
	}
	encodings := strings.Split(contentEncoding, ",")
	for i := len(encodings) - 1; i >= 0; i-- {
		enc := strings.TrimSpace(strings.ToLower(encodings[i]))
		var (
			r   io.Reader
			err error
		)
		switch enc {
		case "", "identity":
			continue
		case "br":
			r = brotli.NewReader(bytes.NewReader(body))
		case "gzip", "x-gzip":
			var gr *gzip.Reader
			gr, err = gzip.NewReader(bytes.NewReader(body))
			if err == nil {
				defer gr.Close()
				r = gr
			}
		case "zstd":
			var dec *zstd.Decoder
			dec, err = zstd.NewReader(bytes.NewReader(body))
			if err == nil {
				defer dec.Close()
				r = dec
			}
		case "deflate":
			if zr, zerr := zlib.NewReader(bytes.NewReader(body)); zerr == nil {
				defer zr.Close()
				r = zr
			} else {
				fr := flate.NewReader(bytes.NewReader(body))
				defer fr.Close()
				r = fr
			}
		default:
			return nil, fmt.Errorf("unsupported content-encoding: %q", enc)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", enc, err)
		}
		if body, err = readLimited(r, limit); err != nil {
			return nil, fmt.Errorf("%s: %w", enc, err)
		}
	}
	return body, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, ErrBodyTooLarge
	}
	return out, nil
}
