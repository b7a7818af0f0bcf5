package bedrock

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	bedrockpool "github.com/NeuralTrust/TrustModeration/pkg/infra/bedrock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type GuardrailConfig struct {
	Credentials bedrockpool.Credentials `mapstructure:"credentials"`
	ID          string                  `mapstructure:"id"`
	Version     string                  `mapstructure:"version"`
}

// Filter confidence levels mapped onto a score.
var confidenceScore = map[types.GuardrailContentFilterConfidence]float64{
	types.GuardrailContentFilterConfidenceNone:   0,
	types.GuardrailContentFilterConfidenceLow:    0.35,
	types.GuardrailContentFilterConfidenceMedium: 0.65,
	types.GuardrailContentFilterConfidenceHigh:   0.9,
}

type runtimeSource interface {
	Get(ctx context.Context, creds bedrockpool.Credentials) (bedrockpool.Runtime, error)
}

// GuardrailScorer reads content filter assessments from a Bedrock guardrail.
type GuardrailScorer struct {
	pool   runtimeSource
	config GuardrailConfig
}

func NewGuardrailScorer(pool *bedrockpool.Pool, config GuardrailConfig) (*GuardrailScorer, error) {
	if config.ID == "" || config.Version == "" {
		return nil, fmt.Errorf("guardrail id and version are required")
	}
	return &GuardrailScorer{pool: pool, config: config}, nil
}

func (s *GuardrailScorer) Name() string { return "bedrock-guardrail" }

func (s *GuardrailScorer) Toxicity(ctx context.Context, text string) ([]moderation.LabelScore, error) {
	rt, err := s.pool.Get(ctx, s.config.Credentials)
	if err != nil {
		return nil, err
	}
	out, err := rt.ApplyGuardrail(ctx, &bedrockruntime.ApplyGuardrailInput{
		Content: []types.GuardrailContentBlock{
			&types.GuardrailContentBlockMemberText{
				Value: types.GuardrailTextBlock{Text: aws.String(text)},
			},
		},
		GuardrailIdentifier: aws.String(s.config.ID),
		GuardrailVersion:    aws.String(s.config.Version),
		Source:              types.GuardrailContentSourceInput,
	})
	if err != nil {
		return nil, fmt.Errorf("apply guardrail: %w", err)
	}

	scores := make(map[string]float64)
	for _, assessment := range out.Assessments {
		if assessment.ContentPolicy == nil {
			continue
		}
		for _, f := range assessment.ContentPolicy.Filters {
			label := strings.ToLower(string(f.Type))
			v := confidenceScore[f.Confidence]
			if cur, ok := scores[label]; !ok || v > cur {
				scores[label] = v
			}
		}
	}
	labels := make([]moderation.LabelScore, 0, len(scores))
	for label, v := range scores {
		labels = append(labels, moderation.LabelScore{Label: label, Score: v})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Label < labels[j].Label })
	return labels, nil
}
