package dependency_container

import (
	"context"
	"fmt"
	"strings"

	"github.com/NeuralTrust/TrustModeration/pkg/app/analyzer"
	appModeration "github.com/NeuralTrust/TrustModeration/pkg/app/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/config"
	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	handlers "github.com/NeuralTrust/TrustModeration/pkg/handlers/http"
	"github.com/NeuralTrust/TrustModeration/pkg/handlers/http/request"
	bedrockpool "github.com/NeuralTrust/TrustModeration/pkg/infra/bedrock"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/cache"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/events"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/events/kafka"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/httpx"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/media"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/prometheus"
	providerfactory "github.com/NeuralTrust/TrustModeration/pkg/infra/providers/factory"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scoring"
	scoringfactory "github.com/NeuralTrust/TrustModeration/pkg/infra/scoring/factory"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/scratch"
	"github.com/NeuralTrust/TrustModeration/pkg/server/middleware"
	"github.com/NeuralTrust/TrustModeration/pkg/server/router"
	"github.com/sirupsen/logrus"
)

const mb = 1024 * 1024

type Container struct {
	Orchestrator        appModeration.Orchestrator
	VerdictCache        cache.VerdictCache
	Publisher           events.Publisher
	HandlerTransport    handlers.HandlerTransport
	MiddlewareTransport *middleware.Transport
	Routers             []router.ServerRouter
	// Kinds lists the content kinds that ended up with an analyzer.
	Kinds []moderation.Kind
}

type ContainerDI struct {
	Cfg    *config.Config
	Logger *logrus.Logger
	// Tracker observes scratch files. Nil reports them to the inflight gauge.
	Tracker scratch.Tracker
}

func NewContainer(ctx context.Context, di ContainerDI) (*Container, error) {
	cfg := di.Cfg
	logger := di.Logger

	httpClient := httpx.NewFastHTTPClient(httpx.ClientConfig{
		Timeout:         cfg.Providers.HTTP.Timeout,
		MaxConnsPerHost: cfg.Providers.HTTP.MaxConnsPerHost,
		UserAgent:       cfg.Providers.HTTP.UserAgent,
	})
	bedrockPool := bedrockpool.NewPool(logger)
	scorersDI := scoringfactory.ScorersDI{
		Client:      httpClient,
		Locator:     providerfactory.NewProviderLocator(bedrockPool),
		BedrockPool: bedrockPool,
		Logger:      logger,
	}

	tracker := di.Tracker
	if tracker == nil {
		tracker = prometheus.ScratchFiles{}
	}
	scratchManager := scratch.NewManager(cfg.Moderation.ScratchDir, tracker, logger)

	analyzers, err := buildAnalyzers(ctx, cfg, logger, scorersDI, scratchManager)
	if err != nil {
		return nil, err
	}
	kinds := activeKinds(analyzers)
	if len(kinds) == 0 {
		return nil, fmt.Errorf("no content kind could be enabled")
	}

	orchestrator := appModeration.NewOrchestrator(
		logger,
		appModeration.Config{Timeout: cfg.Moderation.Timeout},
		analyzers,
		media.NewImageDecoder(cfg.Moderation.Image.MaxPixels),
	)

	var verdictCache cache.VerdictCache
	if cfg.Redis.Enabled {
		cacheConfig := cache.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TLS:      cfg.Redis.TLS,
			TTL:      cfg.Redis.TTL,
			LocalTTL: cfg.Redis.LocalTTL,
		}
		client, err := cache.NewClient(cacheConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
		verdictCache = cache.NewVerdictCache(client, cacheConfig, cfg.Redis.Namespace, logger)
	}

	var publisher events.Publisher
	if cfg.Kafka.Enabled {
		exporter, err := kafka.NewExporter(map[string]interface{}{
			"host":  cfg.Kafka.Host,
			"port":  cfg.Kafka.Port,
			"topic": cfg.Kafka.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize kafka exporter: %w", err)
		}
		publisher = events.NewPublisher(logger, events.Config{
			Enabled:   true,
			Workers:   cfg.Kafka.Workers,
			QueueSize: cfg.Kafka.QueueSize,
			Source:    cfg.Kafka.Source,
		}, exporter)
		publisher.StartWorkers(cfg.Kafka.Workers)
	}

	limits, err := buildLimits(cfg.Moderation.Limits)
	if err != nil {
		return nil, err
	}

	handlerTransport := &handlers.HandlerTransportDTO{
		ModerateHandler: handlers.NewModerateHandler(handlers.ModerateHandlerDeps{
			Logger:       logger,
			Orchestrator: orchestrator,
			Cache:        verdictCache,
			Publisher:    publisher,
			Limits:       limits,
		}),
		GetVersionHandler:      handlers.NewGetVersionHandler(logger, kinds, cfg.Moderation.Audio.Strategy),
		InvalidateCacheHandler: handlers.NewInvalidateCacheHandler(logger, verdictCache),
	}
	middlewareTransport := middleware.NewTransport(
		middleware.NewRequestLoggerMiddleware(logger),
	)

	logger.WithFields(logrus.Fields{
		"kinds":          kinds,
		"audio_strategy": cfg.Moderation.Audio.Strategy,
		"cache":          verdictCache != nil,
		"events":         publisher != nil,
	}).Info("moderation pipeline ready")

	return &Container{
		Orchestrator:        orchestrator,
		VerdictCache:        verdictCache,
		Publisher:           publisher,
		HandlerTransport:    handlerTransport,
		MiddlewareTransport: middlewareTransport,
		Routers: []router.ServerRouter{
			router.NewModerationRouter(middlewareTransport, handlerTransport),
		},
		Kinds: kinds,
	}, nil
}

// Close drains the event publisher. It is safe to call on a partially
// configured container.
func (c *Container) Close() {
	if c.Publisher != nil {
		c.Publisher.Shutdown()
	}
}

func buildAnalyzers(
	ctx context.Context,
	cfg *config.Config,
	logger *logrus.Logger,
	di scoringfactory.ScorersDI,
	scratchManager *scratch.Manager,
) (appModeration.Analyzers, error) {
	var analyzers appModeration.Analyzers
	enabled := make(map[moderation.Kind]bool)
	for _, k := range cfg.EnabledKinds() {
		enabled[k] = true
	}
	thresholds := cfg.Moderation.Thresholds
	providers := cfg.Providers

	strategy, err := analyzer.ParseAudioStrategy(cfg.Moderation.Audio.Strategy)
	if err != nil {
		return analyzers, err
	}
	needsText := enabled[moderation.KindText] ||
		(enabled[moderation.KindAudio] && strategy != analyzer.AudioStrategyFeatures)

	var text analyzer.TextAnalyzer
	if needsText {
		sentiment, err := scoringfactory.NewSentimentScorer(providers.Sentiment, di)
		if err != nil {
			return analyzers, fmt.Errorf("sentiment scorer: %w", err)
		}
		toxicity, err := scoringfactory.NewToxicityScorer(providers.Toxicity, di)
		if err != nil {
			return analyzers, fmt.Errorf("toxicity scorer: %w", err)
		}
		text = analyzer.NewTextAnalyzer(logger, sentiment, toxicity, thresholds)
		if enabled[moderation.KindText] {
			analyzers.Text = text
		}
	}

	if enabled[moderation.KindImage] || enabled[moderation.KindVideo] {
		var nsfw scoring.ImageScorer
		if name := strings.ToLower(strings.TrimSpace(providers.NSFW.Provider)); name != "" && name != scoringfactory.ProviderNone {
			nsfw, err = scoringfactory.NewImageScorer(providers.NSFW, di)
			if err != nil {
				return analyzers, fmt.Errorf("nsfw scorer: %w", err)
			}
		}
		if nsfw == nil {
			logger.Warn("no nsfw provider configured, image and video moderation disabled")
		} else {
			image := analyzer.NewImageAnalyzer(logger, nsfw, thresholds)
			if enabled[moderation.KindImage] {
				analyzers.Image = image
			}
			if enabled[moderation.KindVideo] {
				video := cfg.Moderation.Video
				analyzers.Video = analyzer.NewVideoAnalyzer(
					logger,
					analyzer.VideoConfig{
						FrameStride: video.FrameStride,
						MaxFrames:   video.MaxFrames,
						Workers:     video.Workers,
					},
					media.NewVideoDecoder(media.VideoConfig{
						MaxFrames: video.MaxFrames,
						FFmpeg: media.FFmpegConfig{
							FFmpegPath:  video.FFmpegPath,
							FFprobePath: video.FFprobePath,
						},
					}, scratchManager, logger),
					image,
					thresholds,
				)
			}
		}
	}

	if enabled[moderation.KindAudio] {
		audio := cfg.Moderation.Audio
		var (
			decoder     media.AudioDecoder
			features    scoring.AudioFeatureExtractor
			transcriber scoring.AudioTranscriber
		)
		if strategy != analyzer.AudioStrategyTranscript {
			decoder = media.NewAudioDecoder(media.AudioConfig{
				SampleRate: audio.SampleRate,
				FFmpeg:     media.FFmpegConfig{FFmpegPath: audio.FFmpegPath},
			}, scratchManager, logger)
			features, err = scoringfactory.NewFeatureExtractor(audio.Features)
			if err != nil {
				return analyzers, fmt.Errorf("audio features: %w", err)
			}
		}
		if strategy != analyzer.AudioStrategyFeatures {
			transcriber, err = scoringfactory.NewTranscriber(ctx, providers.Transcription, di)
			if err != nil {
				return analyzers, fmt.Errorf("transcriber: %w", err)
			}
		}
		analyzers.Audio, err = analyzer.NewAudioAnalyzer(
			logger,
			analyzer.AudioConfig{
				Strategy:        strategy,
				SegmentAnalysis: audio.SegmentAnalysis,
				SegmentWorkers:  audio.SegmentWorkers,
			},
			decoder,
			features,
			transcriber,
			text,
			scratchManager,
			thresholds,
		)
		if err != nil {
			return analyzers, err
		}
	}

	return analyzers, nil
}

func activeKinds(a appModeration.Analyzers) []moderation.Kind {
	var kinds []moderation.Kind
	if a.Text != nil {
		kinds = append(kinds, moderation.KindText)
	}
	if a.Image != nil {
		kinds = append(kinds, moderation.KindImage)
	}
	if a.Audio != nil {
		kinds = append(kinds, moderation.KindAudio)
	}
	if a.Video != nil {
		kinds = append(kinds, moderation.KindVideo)
	}
	return kinds
}

func buildLimits(cfg config.LimitsConfig) (request.Limits, error) {
	limits := request.Limits{
		MaxContentBytes: int64(cfg.MaxContentMB) * mb,
		MaxAudioBytes:   int64(cfg.MaxAudioMB) * mb,
		AllowedFormats:  make(map[moderation.Kind][]string, len(cfg.AllowedFormats)),
	}
	for k, formats := range cfg.AllowedFormats {
		kind, err := moderation.ParseKind(k)
		if err != nil {
			return limits, fmt.Errorf("allowed formats: %w", err)
		}
		limits.AllowedFormats[kind] = formats
	}
	return limits, nil
}
