package providers

import (
	"context"

	"github.com/NeuralTrust/TrustModeration/pkg/infra/bedrock"
)

type Config struct {
	Credentials  Credentials `json:"credentials" mapstructure:"credentials"`
	Model        string      `json:"model" mapstructure:"model"`
	MaxTokens    int         `json:"max_tokens,omitempty" mapstructure:"max_tokens"`
	Temperature  float64     `json:"temperature,omitempty" mapstructure:"temperature"`
	SystemPrompt string      `json:"system_prompt,omitempty" mapstructure:"system_prompt"`
	Instructions []string    `json:"instructions,omitempty" mapstructure:"instructions"`
}

type Credentials struct {
	ApiKey string              `json:"api_key" mapstructure:"api_key"`
	AWS    bedrock.Credentials `json:"aws" mapstructure:"aws"`
}

//go:generate mockery --name=Client --dir=. --output=./mocks --filename=client_mock.go --case=underscore --with-expecter

type Client interface {
	Ask(ctx context.Context, config *Config, prompt string) (*CompletionResponse, error)
}

// CompletionResponse is the provider-neutral reply. Response holds the
// concatenated text parts.
type CompletionResponse struct {
	ID       string `json:"id"`
	Model    string `json:"model"`
	Response string `json:"response"`
	Usage    Usage  `json:"usage"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
