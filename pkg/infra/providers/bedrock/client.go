package bedrock

import (
	"context"
	"fmt"
	"time"

	bedrockpool "github.com/NeuralTrust/TrustModeration/pkg/infra/bedrock"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/providers"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type client struct {
	pool *bedrockpool.Pool
}

// NewBedrockClient answers prompts through the Converse API, so any chat
// model enabled in the account can act as a scorer.
func NewBedrockClient(pool *bedrockpool.Pool) providers.Client {
	return &client{pool: pool}
}

func (c *client) Ask(
	ctx context.Context,
	config *providers.Config,
	prompt string,
) (*providers.CompletionResponse, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	rt, err := c.pool.Get(ctx, config.Credentials.AWS)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bedrock client: %w", err)
	}

	text := prompt
	if len(config.Instructions) > 0 {
		text = providers.FormatInstructions(config.Instructions) + "\n" + prompt
	}
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(config.Model),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
		}},
	}
	if config.SystemPrompt != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: config.SystemPrompt}}
	}
	inference := &types.InferenceConfiguration{}
	if config.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(int32(config.MaxTokens))
	}
	if config.Temperature > 0 {
		inference.Temperature = aws.Float32(float32(config.Temperature))
	}
	input.InferenceConfig = inference

	out, err := rt.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock converse failed: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, fmt.Errorf("no completions returned")
	}
	var responseText string
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			responseText = t.Value
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("no text content returned")
	}

	resp := &providers.CompletionResponse{
		ID:       fmt.Sprintf("bedrock-%d", time.Now().UnixNano()),
		Model:    config.Model,
		Response: responseText,
	}
	if out.Usage != nil {
		resp.Usage = providers.Usage{
			PromptTokens:     int(aws.ToInt32(out.Usage.InputTokens)),
			CompletionTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}
	return resp, nil
}
