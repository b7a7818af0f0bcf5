package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/httpx"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring"
	"github.com/sirupsen/logrus"
)

const (
	defaultModerationEndpoint = "https://api.openai.com/v1/moderations"
	defaultModerationModel    = "omni-moderation-latest"
)

var ErrFailedModerationCall = errors.New("openai moderation call failed")

// DefaultNSFWCategories are the moderation categories reported as image detections.
var DefaultNSFWCategories = []string{"sexual", "sexual/minors", "violence/graphic"}

type ModerationConfig struct {
	APIKey         string   `mapstructure:"api_key"`
	Model          string   `mapstructure:"model"`
	NSFWCategories []string `mapstructure:"nsfw_categories"`
}

type moderationInput struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type moderationRequest struct {
	Model string            `json:"model"`
	Input []moderationInput `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged        bool               `json:"flagged"`
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

// ModerationClient scores text and images against the moderation endpoint.
type ModerationClient struct {
	client   httpx.Client
	endpoint string
	config   ModerationConfig
	logger   *logrus.Logger
}

func NewModerationClient(client httpx.Client, config ModerationConfig, logger *logrus.Logger) *ModerationClient {
	if config.Model == "" {
		config.Model = defaultModerationModel
	}
	if len(config.NSFWCategories) == 0 {
		config.NSFWCategories = DefaultNSFWCategories
	}
	return &ModerationClient{
		client:   client,
		endpoint: defaultModerationEndpoint,
		config:   config,
		logger:   logger,
	}
}

func (c *ModerationClient) SetEndpoint(endpoint string) {
	c.endpoint = endpoint
}

func (c *ModerationClient) Name() string { return "openai" }

func (c *ModerationClient) Toxicity(ctx context.Context, text string) ([]moderation.LabelScore, error) {
	scores, err := c.moderate(ctx, moderationInput{Type: "text", Text: text})
	if err != nil {
		return nil, err
	}
	out := make([]moderation.LabelScore, 0, len(scores))
	for label, v := range scores {
		out = append(out, moderation.LabelScore{Label: label, Score: moderation.Clamp01(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (c *ModerationClient) DetectNSFW(ctx context.Context, img image.Image) ([]moderation.Detection, error) {
	url, err := scoring.EncodeDataURL(img, scoring.DefaultUploadSide)
	if err != nil {
		return nil, err
	}
	scores, err := c.moderate(ctx, moderationInput{Type: "image_url", ImageURL: &imageURL{URL: url}})
	if err != nil {
		return nil, err
	}
	var out []moderation.Detection
	for _, category := range c.config.NSFWCategories {
		if v, ok := scores[category]; ok && v > 0 {
			out = append(out, moderation.Detection{Class: category, Score: moderation.Clamp01(v)})
		}
	}
	return out, nil
}

func (c *ModerationClient) moderate(ctx context.Context, input moderationInput) (map[string]float64, error) {
	apiKey := strings.TrimSpace(c.config.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	body, err := json.Marshal(moderationRequest{Model: c.config.Model, Input: []moderationInput{input}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal moderation request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create moderation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.WithError(err).Error("failed to call openai moderation")
		}
		return nil, fmt.Errorf("failed to call openai moderation: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("moderation response read error: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status_code", resp.StatusCode).Error("openai moderation returned non-200 status")
		return nil, fmt.Errorf("%w: status %d: %s", ErrFailedModerationCall, resp.StatusCode, string(raw))
	}

	var parsed moderationResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid moderation response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return nil, fmt.Errorf("%w: empty results", ErrFailedModerationCall)
	}
	return parsed.Results[0].CategoryScores, nil
}
