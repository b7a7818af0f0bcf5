package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/httpx"
	"github.com/sirupsen/logrus"
)

const inferencePath = "/inference"

var ErrFailedInferenceCall = errors.New("whisper inference call failed")

type Config struct {
	BaseURL  string `mapstructure:"base_url"`
	Language string `mapstructure:"language"`
}

type inferenceResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Client transcribes audio with a self-hosted whisper.cpp style server.
type Client struct {
	client httpx.Client
	config Config
	logger *logrus.Logger
}

func NewClient(client httpx.Client, config Config, logger *logrus.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("whisper base url is required")
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{client: client, config: config, logger: logger}, nil
}

func (c *Client) Name() string { return "whisper" }

func (c *Client) Transcribe(ctx context.Context, path string) (moderation.Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return moderation.Transcript{}, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return moderation.Transcript{}, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return moderation.Transcript{}, fmt.Errorf("read audio: %w", err)
	}
	_ = writer.WriteField("response_format", "verbose_json")
	if c.config.Language != "" {
		_ = writer.WriteField("language", c.config.Language)
	}
	if err := writer.Close(); err != nil {
		return moderation.Transcript{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+inferencePath, body)
	if err != nil {
		return moderation.Transcript{}, fmt.Errorf("failed to create inference request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return moderation.Transcript{}, fmt.Errorf("whisper request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status_code", resp.StatusCode).Error("whisper server returned non-200 status")
		return moderation.Transcript{}, fmt.Errorf("%w: status %d", ErrFailedInferenceCall, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return moderation.Transcript{}, fmt.Errorf("failed to read whisper response: %w", err)
	}
	var parsed inferenceResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return moderation.Transcript{}, fmt.Errorf("failed to parse whisper response: %w", err)
	}

	tr := moderation.Transcript{Text: strings.TrimSpace(parsed.Text), Language: parsed.Language}
	for _, s := range parsed.Segments {
		tr.Segments = append(tr.Segments, moderation.TranscriptSegment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return tr, nil
}
