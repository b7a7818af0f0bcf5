package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/dsp"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	MetricsPort  int           `mapstructure:"metrics_port"`
	BodyLimitMB  int           `mapstructure:"body_limit_mb"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	TLS          *TLSConfig    `mapstructure:"tls"`
}

type LoggerConfig struct {
	Level     string `mapstructure:"level"`
	Component string `mapstructure:"component"`
}

type MetricsConfig struct {
	Enabled               bool `mapstructure:"enabled"`
	EnableLatency         bool `mapstructure:"enable_latency"`
	EnableProviderLatency bool `mapstructure:"enable_provider_latency"`
	EnableInflight        bool `mapstructure:"enable_inflight"`
}

type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TLS       bool          `mapstructure:"tls"`
	TTL       time.Duration `mapstructure:"ttl"`
	LocalTTL  time.Duration `mapstructure:"local_ttl"`
	Namespace string        `mapstructure:"namespace"`
}

type KafkaConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	Topic     string `mapstructure:"topic"`
	Workers   int    `mapstructure:"workers"`
	QueueSize int    `mapstructure:"queue_size"`
	Source    string `mapstructure:"source"`
}

type ModerationConfig struct {
	// Kinds lists the content kinds this instance serves.
	Kinds      []string              `mapstructure:"kinds"`
	Timeout    time.Duration         `mapstructure:"timeout"`
	ScratchDir string                `mapstructure:"scratch_dir"`
	Thresholds moderation.Thresholds `mapstructure:"thresholds"`
	Image      ImageConfig           `mapstructure:"image"`
	Audio      AudioConfig           `mapstructure:"audio"`
	Video      VideoConfig           `mapstructure:"video"`
	Limits     LimitsConfig          `mapstructure:"limits"`
}

type ImageConfig struct {
	MaxPixels int `mapstructure:"max_pixels"`
}

type AudioConfig struct {
	Strategy        string     `mapstructure:"strategy"`
	SampleRate      int        `mapstructure:"sample_rate"`
	SegmentAnalysis bool       `mapstructure:"segment_analysis"`
	SegmentWorkers  int        `mapstructure:"segment_workers"`
	FFmpegPath      string     `mapstructure:"ffmpeg_path"`
	Features        dsp.Config `mapstructure:"features"`
}

type VideoConfig struct {
	FrameStride int    `mapstructure:"frame_stride"`
	MaxFrames   int    `mapstructure:"max_frames"`
	Workers     int    `mapstructure:"workers"`
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path"`
}

type LimitsConfig struct {
	MaxContentMB   int                 `mapstructure:"max_content_mb"`
	MaxAudioMB     int                 `mapstructure:"max_audio_mb"`
	AllowedFormats map[string][]string `mapstructure:"allowed_formats"`
}

var globalConfig Config
var providerConfig ProvidersConfig

func Load(configPath string) error {
	cfg, err := LoadFrom(configPath)
	if err != nil {
		return err
	}
	globalConfig = *cfg
	providerConfig = cfg.Providers
	return nil
}

// LoadFrom reads config.yaml and providers.yaml from configPath without
// touching the process-wide config.
func LoadFrom(configPath string) (*Config, error) {
	var cfg Config
	if err := loadConfigFile(configPath, "config", setDefaultValues, &cfg); err != nil {
		return nil, fmt.Errorf("could not load main config file: %w", err)
	}

	var providers ProvidersConfig
	if err := loadConfigFile(configPath, "providers", setProviderDefaults, &providers); err != nil {
		return nil, fmt.Errorf("could not load providers config file: %w", err)
	}
	cfg.Providers = providers

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadConfigFile(configPath, fileName string, defaults func(*viper.Viper), out interface{}) error {
	v := viper.New()
	defaults(v)
	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
		}
		// defaults and environment variables still apply
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}
	return nil
}

func setDefaultValues(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.body_limit_mb", 140)
	v.SetDefault("server.read_timeout", 60*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.component", "moderator")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.enable_latency", true)
	v.SetDefault("metrics.enable_provider_latency", true)
	v.SetDefault("metrics.enable_inflight", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.ttl", time.Hour)
	v.SetDefault("redis.local_ttl", time.Minute)
	v.SetDefault("redis.namespace", "v1")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.tls", false)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.host", "")
	v.SetDefault("kafka.port", "9092")
	v.SetDefault("kafka.topic", "moderation-verdicts")
	v.SetDefault("kafka.workers", 2)
	v.SetDefault("kafka.queue_size", 1000)
	v.SetDefault("kafka.source", "trustmoderation")

	v.SetDefault("moderation.kinds", []string{"text", "image", "audio", "video"})
	v.SetDefault("moderation.timeout", 2*time.Minute)
	v.SetDefault("moderation.scratch_dir", "")

	t := moderation.DefaultThresholds()
	v.SetDefault("moderation.thresholds.toxicity", t.Toxicity)
	v.SetDefault("moderation.thresholds.nsfw", t.NSFW)
	v.SetDefault("moderation.thresholds.synthetic_text", t.SyntheticText)
	v.SetDefault("moderation.thresholds.synthetic_audio", t.SyntheticAudio)
	v.SetDefault("moderation.thresholds.edge_artifact", t.EdgeArtifact)
	v.SetDefault("moderation.thresholds.co_occurrence", t.CoOccurrence)
	v.SetDefault("moderation.thresholds.mirror_difference", t.MirrorDifference)
	v.SetDefault("moderation.thresholds.mfcc_std", t.MFCCStd)
	v.SetDefault("moderation.thresholds.rolloff_std", t.RolloffStd)
	v.SetDefault("moderation.thresholds.inappropriate_frame_ratio", t.InappropriateFrameRatio)
	v.SetDefault("moderation.thresholds.synthetic_frame_ratio", t.SyntheticFrameRatio)

	v.SetDefault("moderation.image.max_pixels", 40_000_000)

	f := dsp.DefaultConfig()
	v.SetDefault("moderation.audio.strategy", "features")
	v.SetDefault("moderation.audio.sample_rate", 22050)
	v.SetDefault("moderation.audio.segment_analysis", false)
	v.SetDefault("moderation.audio.segment_workers", 4)
	v.SetDefault("moderation.audio.features.frame_length", f.FrameLength)
	v.SetDefault("moderation.audio.features.hop_length", f.HopLength)
	v.SetDefault("moderation.audio.features.mel_bands", f.MelBands)
	v.SetDefault("moderation.audio.features.mfccs", f.MFCCs)
	v.SetDefault("moderation.audio.features.rolloff_percent", f.RolloffPercent)

	v.SetDefault("moderation.video.frame_stride", 10)
	v.SetDefault("moderation.video.max_frames", 100)
	v.SetDefault("moderation.video.workers", 4)

	v.SetDefault("moderation.limits.max_content_mb", 50)
	v.SetDefault("moderation.limits.max_audio_mb", 100)
	v.SetDefault("moderation.limits.allowed_formats", map[string][]string{
		"image": {"jpg", "jpeg", "png"},
		"audio": {"wav", "mp3", "m4a"},
		"video": {"mp4", "mov"},
	})
}

func (c *Config) Validate() error {
	if err := c.Moderation.Thresholds.Validate(); err != nil {
		return err
	}
	if len(c.Moderation.Kinds) == 0 {
		return errors.New("moderation.kinds must enable at least one kind")
	}
	for _, k := range c.Moderation.Kinds {
		if _, err := moderation.ParseKind(k); err != nil {
			return fmt.Errorf("moderation.kinds: %w", err)
		}
	}
	for k := range c.Moderation.Limits.AllowedFormats {
		if _, err := moderation.ParseKind(k); err != nil {
			return fmt.Errorf("moderation.limits.allowed_formats: %w", err)
		}
	}
	if c.Moderation.Limits.MaxContentMB <= 0 || c.Moderation.Limits.MaxAudioMB <= 0 {
		return errors.New("moderation.limits sizes must be positive")
	}
	if c.Moderation.Timeout < 0 {
		return errors.New("moderation.timeout must not be negative")
	}
	if c.Kafka.Enabled && (c.Kafka.Host == "" || c.Kafka.Topic == "") {
		return errors.New("kafka.host and kafka.topic are required when kafka is enabled")
	}
	return nil
}

// EnabledKinds returns the parsed moderation.kinds list.
func (c *Config) EnabledKinds() []moderation.Kind {
	kinds := make([]moderation.Kind, 0, len(c.Moderation.Kinds))
	for _, k := range c.Moderation.Kinds {
		if kind, err := moderation.ParseKind(k); err == nil {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

func GetConfig() *Config {
	return &globalConfig
}

func GetProvidersConfig() *ProvidersConfig {
	return &providerConfig
}
