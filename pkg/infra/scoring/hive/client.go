package hive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/httpx"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring"
	"github.com/sirupsen/logrus"
)

const defaultEndpoint = "https://api.thehive.ai/api/v2/task/sync"

var (
	ErrFailedHiveCall = errors.New("hive classification call failed")

	// Sexual content classes of the visual moderation model.
	DefaultClasses = []string{
		"general_nsfw",
		"yes_realistic_nsfw",
		"yes_sexual_activity",
		"yes_sexual_intent",
		"yes_undressed",
		"yes_female_nudity",
		"yes_male_nudity",
	}
)

type Config struct {
	Endpoint string   `mapstructure:"endpoint"`
	Token    string   `mapstructure:"token"`
	Classes  []string `mapstructure:"classes"`
}

// schema: https://docs.thehive.ai/reference/classification
type classificationResponse struct {
	Status []struct {
		Response struct {
			Output []struct {
				Classes []struct {
					Class string  `json:"class"`
					Score float64 `json:"score"`
				} `json:"classes"`
			} `json:"output"`
		} `json:"response"`
	} `json:"status"`
}

// Client uploads images to a Hive visual classifier and reports the
// configured classes as NSFW detections.
type Client struct {
	client  httpx.Client
	config  Config
	classes map[string]struct{}
	logger  *logrus.Logger
}

func NewClient(client httpx.Client, config Config, logger *logrus.Logger) (*Client, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("hive api token is required")
	}
	if config.Endpoint == "" {
		config.Endpoint = defaultEndpoint
	}
	if len(config.Classes) == 0 {
		config.Classes = DefaultClasses
	}
	classes := make(map[string]struct{}, len(config.Classes))
	for _, c := range config.Classes {
		classes[c] = struct{}{}
	}
	return &Client{client: client, config: config, classes: classes, logger: logger}, nil
}

func (c *Client) Name() string { return "hive" }

func (c *Client) DetectNSFW(ctx context.Context, img image.Image) ([]moderation.Detection, error) {
	data, err := scoring.EncodeJPEG(img, scoring.DefaultUploadSide)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("media", "image.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create hive request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.config.Token)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hive request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status_code", resp.StatusCode).Error("hive returned non-200 status")
		return nil, fmt.Errorf("%w: status %d", ErrFailedHiveCall, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read hive response: %w", err)
	}
	var parsed classificationResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse hive response: %w", err)
	}
	return c.detections(parsed), nil
}

func (c *Client) detections(resp classificationResponse) []moderation.Detection {
	best := make(map[string]float64)
	for _, status := range resp.Status {
		for _, out := range status.Response.Output {
			for _, cls := range out.Classes {
				if _, ok := c.classes[cls.Class]; !ok {
					continue
				}
				if cls.Score > best[cls.Class] {
					best[cls.Class] = cls.Score
				}
			}
		}
	}
	var out []moderation.Detection
	for class, score := range best {
		out = append(out, moderation.Detection{Class: class, Score: moderation.Clamp01(score)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
