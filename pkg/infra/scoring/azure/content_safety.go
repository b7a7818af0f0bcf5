package azure

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/httpx"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring"
	"github.com/sirupsen/logrus"
)

const (
	apiVersion      = "2023-10-01"
	textPath        = "/contentsafety/text:analyze"
	imagePath       = "/contentsafety/image:analyze"
	cognitiveScope  = "https://cognitiveservices.azure.com/.default"
	eightLevelsMax  = 7.0
	fourLevelsMax   = 6.0
	outputEightText = "EightSeverityLevels"
	outputFourImage = "FourSeverityLevels"
)

var (
	ErrFailedContentSafetyCall = errors.New("azure content safety call failed")

	defaultCategories = []string{"Hate", "SelfHarm", "Sexual", "Violence"}
)

type Config struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	// ImageCategories restricts which categories count as NSFW detections.
	ImageCategories []string `mapstructure:"image_categories"`
}

type textRequest struct {
	Text       string   `json:"text"`
	Categories []string `json:"categories"`
	OutputType string   `json:"outputType"`
}

type imageRequest struct {
	Image      imageContent `json:"image"`
	Categories []string     `json:"categories"`
	OutputType string       `json:"outputType"`
}

type imageContent struct {
	Content string `json:"content"`
}

type analyzeResponse struct {
	CategoriesAnalysis []struct {
		Category string `json:"category"`
		Severity int    `json:"severity"`
	} `json:"categoriesAnalysis"`
}

// ContentSafetyClient scores text and images with Azure AI Content Safety.
// Severities are normalized to [0, 1]. Without an API key the client
// authenticates with the default Azure credential chain.
type ContentSafetyClient struct {
	client     httpx.Client
	config     Config
	credential azcore.TokenCredential
	logger     *logrus.Logger
}

func NewContentSafetyClient(client httpx.Client, config Config, logger *logrus.Logger) (*ContentSafetyClient, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("azure content safety endpoint is required")
	}
	config.Endpoint = strings.TrimRight(config.Endpoint, "/")
	if len(config.ImageCategories) == 0 {
		config.ImageCategories = []string{"Sexual"}
	}
	c := &ContentSafetyClient{client: client, config: config, logger: logger}
	if config.APIKey == "" {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create azure credential: %w", err)
		}
		c.credential = cred
	}
	return c, nil
}

// WithCredential overrides the token source used when no API key is set.
func (c *ContentSafetyClient) WithCredential(cred azcore.TokenCredential) *ContentSafetyClient {
	c.credential = cred
	return c
}

func (c *ContentSafetyClient) Name() string { return "azure-content-safety" }

func (c *ContentSafetyClient) Toxicity(ctx context.Context, text string) ([]moderation.LabelScore, error) {
	analysis, err := c.analyze(ctx, textPath, textRequest{
		Text:       text,
		Categories: defaultCategories,
		OutputType: outputEightText,
	})
	if err != nil {
		return nil, err
	}
	out := make([]moderation.LabelScore, 0, len(analysis.CategoriesAnalysis))
	for _, a := range analysis.CategoriesAnalysis {
		out = append(out, moderation.LabelScore{
			Label: strings.ToLower(a.Category),
			Score: moderation.Clamp01(float64(a.Severity) / eightLevelsMax),
		})
	}
	return out, nil
}

func (c *ContentSafetyClient) DetectNSFW(ctx context.Context, img image.Image) ([]moderation.Detection, error) {
	data, err := scoring.EncodeJPEG(img, scoring.DefaultUploadSide)
	if err != nil {
		return nil, err
	}
	analysis, err := c.analyze(ctx, imagePath, imageRequest{
		Image:      imageContent{Content: base64.StdEncoding.EncodeToString(data)},
		Categories: c.config.ImageCategories,
		OutputType: outputFourImage,
	})
	if err != nil {
		return nil, err
	}
	var out []moderation.Detection
	for _, a := range analysis.CategoriesAnalysis {
		if a.Severity == 0 {
			continue
		}
		out = append(out, moderation.Detection{
			Class: strings.ToLower(a.Category),
			Score: moderation.Clamp01(float64(a.Severity) / fourLevelsMax),
		})
	}
	return out, nil
}

func (c *ContentSafetyClient) analyze(ctx context.Context, path string, payload any) (*analyzeResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	url := fmt.Sprintf("%s%s?api-version=%s", c.config.Endpoint, path, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call azure content safety: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status_code", resp.StatusCode).Error("azure content safety returned non-200 status")
		return nil, fmt.Errorf("%w: status %d: %s", ErrFailedContentSafetyCall, resp.StatusCode, string(raw))
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid content safety response: %w", err)
	}
	return &parsed, nil
}

func (c *ContentSafetyClient) authorize(ctx context.Context, req *http.Request) error {
	if c.config.APIKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.config.APIKey)
		return nil
	}
	if c.credential == nil {
		return fmt.Errorf("azure content safety requires an api key or credential")
	}
	token, err := c.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{cognitiveScope}})
	if err != nil {
		return fmt.Errorf("failed to get azure token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)
	return nil
}
