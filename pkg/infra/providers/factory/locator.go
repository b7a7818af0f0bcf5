package factory

import (
	"fmt"
	"sync"

	bedrockpool "github.com/NeuralTrust/TrustModeration/pkg/infra/bedrock"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/providers"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/providers/anthropic"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/providers/bedrock"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/providers/gemini"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/providers/openai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
)

//go:generate mockery --name=ProviderLocator --dir=. --output=./mocks --filename=provider_locator_mock.go --case=underscore --with-expecter

type ProviderLocator interface {
	Get(provider string) (providers.Client, error)
}

type providerLocator struct {
	bedrockPool *bedrockpool.Pool
	mu          sync.Mutex
	clients     map[string]providers.Client
}

func NewProviderLocator(bedrockPool *bedrockpool.Pool) ProviderLocator {
	return &providerLocator{
		bedrockPool: bedrockPool,
		clients:     make(map[string]providers.Client),
	}
}

func (f *providerLocator) Get(provider string) (providers.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[provider]; ok {
		return c, nil
	}
	var c providers.Client
	switch provider {
	case ProviderOpenAI:
		c = openai.NewOpenaiClient()
	case ProviderGemini:
		c = gemini.NewGeminiClient()
	case ProviderAnthropic:
		c = anthropic.NewAnthropicClient()
	case ProviderBedrock:
		if f.bedrockPool == nil {
			return nil, fmt.Errorf("bedrock provider requires a client pool")
		}
		c = bedrock.NewBedrockClient(f.bedrockPool)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	f.clients[provider] = c
	return c, nil
}
