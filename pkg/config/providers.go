package config

import (
	"time"

	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/factory"
	"github.com/spf13/viper"
)

// ProvidersConfig selects the scoring backend for each capability. It is
// read from providers.yaml so credentials can live apart from config.yaml.
type ProvidersConfig struct {
	HTTP          HTTPClientConfig       `mapstructure:"http"`
	Sentiment     factory.ProviderConfig `mapstructure:"sentiment"`
	Toxicity      factory.ProviderConfig `mapstructure:"toxicity"`
	NSFW          factory.ProviderConfig `mapstructure:"nsfw"`
	Transcription factory.ProviderConfig `mapstructure:"transcription"`
}

type HTTPClientConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxConnsPerHost int           `mapstructure:"max_conns_per_host"`
	UserAgent       string        `mapstructure:"user_agent"`
}

func setProviderDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.max_conns_per_host", 128)
	v.SetDefault("http.user_agent", "TrustModeration")
	v.SetDefault("sentiment.provider", factory.ProviderLexicon)
	v.SetDefault("toxicity.provider", factory.ProviderLexicon)
	v.SetDefault("transcription.provider", factory.ProviderNone)
}
