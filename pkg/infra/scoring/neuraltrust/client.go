package neuraltrust

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/httpx"
	"github.com/sirupsen/logrus"
)

const toxicityPath = "/v1/toxicity"

var ErrFailedFirewallCall = errors.New("firewall service call failed")

type Credentials struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

type content struct {
	Input []string `json:"input"`
}

type toxicityResponse struct {
	Categories     map[string]float64 `json:"categories,omitempty"`
	CategoryScores map[string]float64 `json:"category_scores,omitempty"`
	Scores         map[string]float64 `json:"scores,omitempty"`
}

func (r toxicityResponse) scores() map[string]float64 {
	switch {
	case len(r.CategoryScores) > 0:
		return r.CategoryScores
	case len(r.Scores) > 0:
		return r.Scores
	}
	return r.Categories
}

// ToxicityClient scores text through the NeuralTrust firewall toxicity
// endpoint. Calls go through a circuit breaker.
type ToxicityClient struct {
	client         httpx.Client
	credentials    Credentials
	logger         *logrus.Logger
	circuitBreaker httpx.CircuitBreaker
}

func NewToxicityClient(
	client httpx.Client,
	credentials Credentials,
	logger *logrus.Logger,
	circuitBreaker httpx.CircuitBreaker,
) *ToxicityClient {
	return &ToxicityClient{
		client:         client,
		credentials:    credentials,
		logger:         logger,
		circuitBreaker: circuitBreaker,
	}
}

func (c *ToxicityClient) Name() string { return "neuraltrust" }

func (c *ToxicityClient) Toxicity(ctx context.Context, text string) ([]moderation.LabelScore, error) {
	var result []toxicityResponse
	err := c.circuitBreaker.Execute(func() error {
		var err error
		result, err = c.executeToxicityRequest(ctx, text)
		return err
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.WithError(err).Error("toxicity detection failed (circuit breaker)")
		}
		return nil, err
	}

	merged := make(map[string]float64)
	for _, r := range result {
		for label, v := range r.scores() {
			if v > merged[label] {
				merged[label] = v
			}
		}
	}
	out := make([]moderation.LabelScore, 0, len(merged))
	for label, v := range merged {
		out = append(out, moderation.LabelScore{Label: label, Score: moderation.Clamp01(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (c *ToxicityClient) executeToxicityRequest(ctx context.Context, text string) ([]toxicityResponse, error) {
	body, err := json.Marshal(content{Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.credentials.BaseURL+toxicityPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create toxicity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", c.credentials.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.WithError(err).WithField("error_type", fmt.Sprintf("%T", err)).Error("failed to call toxicity firewall")
		return nil, fmt.Errorf("failed to call toxicity firewall: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status_code", resp.StatusCode).Error("toxicity firewall returned non-200 status")
		return nil, fmt.Errorf("%w: status %d", ErrFailedFirewallCall, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("toxicity response read error: %w", err)
	}
	var parsed []toxicityResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		var single toxicityResponse
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return nil, fmt.Errorf("invalid toxicity response: %w", err)
		}
		parsed = []toxicityResponse{single}
	}
	return parsed, nil
}
