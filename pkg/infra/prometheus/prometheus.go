package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Latency buckets in milliseconds. Video analysis sits at the long tail.
	latencyBuckets = []float64{
		5, 10, 25,
		50, 100, 250,
		500, 1000, 2500,
		5000, 10000, 30000, 60000,
	}

	VerdictsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustmoderation_verdicts_total",
			Help: "Total number of moderation verdicts by kind and outcome",
		},
		[]string{"kind", "inappropriate", "synthetic"},
	)

	FailuresTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustmoderation_failures_total",
			Help: "Moderation requests that ended in an error or a recovered failure",
		},
		[]string{"kind", "reason"},
	)

	AnalysisLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trustmoderation_analysis_latency_ms",
			Help:    "End to end analysis latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"kind"},
	)

	ProviderLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trustmoderation_provider_latency_ms",
			Help:    "Scoring provider call latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"provider", "capability", "status"},
	)

	InflightUnits = promauto.With(registerer).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trustmoderation_inflight_units",
			Help: "Frames or segments currently being scored",
		},
		[]string{"unit"},
	)
)

type MetricsConfig struct {
	EnableLatency         bool `mapstructure:"enable_latency"`
	EnableProviderLatency bool `mapstructure:"enable_provider_latency"`
	EnableInflight        bool `mapstructure:"enable_inflight"`
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		EnableLatency:         true,
		EnableProviderLatency: true,
		EnableInflight:        false,
	}
}

var Config MetricsConfig

func Initialize(cfg MetricsConfig) {
	Config = cfg
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func RecordVerdict(kind string, inappropriate, synthetic bool, elapsed time.Duration) {
	VerdictsTotal.WithLabelValues(kind, strconv.FormatBool(inappropriate), strconv.FormatBool(synthetic)).Inc()
	if Config.EnableLatency {
		AnalysisLatency.WithLabelValues(kind).Observe(float64(elapsed.Milliseconds()))
	}
}

func RecordFailure(kind, reason string) {
	FailuresTotal.WithLabelValues(kind, reason).Inc()
}

func RecordProviderCall(provider, capability string, err error, elapsed time.Duration) {
	if !Config.EnableProviderLatency {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	ProviderLatency.WithLabelValues(provider, capability, status).Observe(float64(elapsed.Milliseconds()))
}

// TrackInflight increments the gauge for unit and returns the matching decrement.
func TrackInflight(unit string) func() {
	if !Config.EnableInflight {
		return func() {}
	}
	g := InflightUnits.WithLabelValues(unit)
	g.Inc()
	return g.Dec
}

// ScratchFiles reports scratch files held on disk under the "scratch_file"
// inflight unit. It satisfies scratch.Tracker.
type ScratchFiles struct{}

func (ScratchFiles) Acquired(string) {
	if Config.EnableInflight {
		InflightUnits.WithLabelValues("scratch_file").Inc()
	}
}

func (ScratchFiles) Released(string) {
	if Config.EnableInflight {
		InflightUnits.WithLabelValues("scratch_file").Dec()
	}
}
