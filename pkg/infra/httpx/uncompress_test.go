package httpx

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipCompress(data []byte) []byte {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write(data)
	_ = gz.Close()
	return buf.Bytes()
}

func brCompress(data []byte) []byte {
	var buf bytes.Buffer
	br := brotli.NewWriter(&buf)
	_, _ = br.Write(data)
	_ = br.Close()
	return buf.Bytes()
}

func zstdCompress(data []byte) []byte {
	var buf bytes.Buffer
	zw, _ := zstd.NewWriter(&buf)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return buf.Bytes()
}

func rawDeflateCompress(data []byte) []byte {
	var buf bytes.Buffer
	dw, _ := flate.NewWriter(&buf, flate.DefaultCompression)
	_, _ = dw.Write(data)
	_ = dw.Close()
	return buf.Bytes()
}

func TestDecodeBody(t *testing.T) {
	plain := []byte("frame bytes frame bytes frame bytes")
	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{name: "no encoding", encoding: "", body: plain},
		{name: "identity", encoding: "identity", body: plain},
		{name: "gzip", encoding: "gzip", body: gzipCompress(plain)},
		{name: "brotli", encoding: "br", body: brCompress(plain)},
		{name: "zstd", encoding: "zstd", body: zstdCompress(plain)},
		{name: "raw deflate", encoding: "deflate", body: rawDeflateCompress(plain)},
		{name: "chained", encoding: "gzip, br", body: brCompress(gzipCompress(plain))},
		{name: "case and whitespace", encoding: "  GZip ", body: gzipCompress(plain)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeBody(tt.encoding, tt.body, 0)
			require.NoError(t, err)
			assert.Equal(t, plain, decoded)
		})
	}
}

func TestDecodeBody_UnknownEncoding(t *testing.T) {
	_, err := DecodeBody("compress-ish", []byte("abc"), 0)
	assert.Error(t, err)
}

func TestDecodeBody_Limit(t *testing.T) {
	plain := bytes.Repeat([]byte("a"), 4096)
	_, err := DecodeBody("gzip", gzipCompress(plain), 1024)
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	decoded, err := DecodeBody("gzip", gzipCompress(plain), 4096)
	require.NoError(t, err)
	assert.Len(t, decoded, 4096)
}
