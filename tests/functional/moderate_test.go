//go:build functional

package functional_test

import (
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModerate_Text(t *testing.T) {
	status, resp := sendRequest(t, http.MethodPost, BaseUrl+"/api/v1/moderate", map[string]interface{}{
		"content_type": "text",
		"content":      "you are an idiot and I hate you",
	})
	require.Equal(t, http.StatusOK, status, resp)
	assert.Equal(t, "text", resp["kind"])
	assert.Equal(t, true, resp["is_inappropriate"])
	scores, ok := resp["scores"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, scores, "toxicity")
	t.Logf("✅ text verdict: %v", resp)
}

func TestModerate_CleanText(t *testing.T) {
	status, resp := sendRequest(t, http.MethodPost, BaseUrl+"/api/v1/moderate", map[string]interface{}{
		"content_type": "text",
		"content":      "The weather is lovely today and the garden is in bloom.",
	})
	require.Equal(t, http.StatusOK, status, resp)
	assert.Equal(t, false, resp["is_inappropriate"])
}

func TestModerate_Audio(t *testing.T) {
	wav := sineWAV(t, 440, 2, 22050)
	status, resp := sendRequest(t, http.MethodPost, BaseUrl+"/api/v1/moderate", map[string]interface{}{
		"content_type": "audio",
		"content":      base64.StdEncoding.EncodeToString(wav),
		"filename":     "tone.wav",
	})
	require.Equal(t, http.StatusOK, status, resp)
	assert.Equal(t, "audio", resp["kind"])
	assert.Contains(t, resp, "is_synthetic")
	scores, ok := resp["scores"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, scores, "synthetic")
}

func TestModerate_Rejects(t *testing.T) {
	status, _ := sendRequest(t, http.MethodPost, BaseUrl+"/api/v1/moderate", map[string]interface{}{
		"content_type": "pdf",
		"content":      "x",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = sendRequest(t, http.MethodPost, BaseUrl+"/api/v1/moderate", map[string]interface{}{
		"content_type": "audio",
		"content":      "not base64!",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// image moderation is disabled in this environment
	status, _ = sendRequest(t, http.MethodPost, BaseUrl+"/api/v1/moderate", map[string]interface{}{
		"content_type": "image",
		"content":      base64.StdEncoding.EncodeToString([]byte("png")),
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestVersion(t *testing.T) {
	status, resp := sendRequest(t, http.MethodGet, BaseUrl+"/api/v1/version", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "TrustModeration", resp["app_name"])
	assert.ElementsMatch(t, []interface{}{"text", "audio"}, resp["kinds"])
}
