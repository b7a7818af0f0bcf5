package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordVerdict(t *testing.T) {
	Config = DefaultMetricsConfig()
	before := testutil.ToFloat64(VerdictsTotal.WithLabelValues("text", "true", "false"))

	RecordVerdict("text", true, false, 20*time.Millisecond)

	after := testutil.ToFloat64(VerdictsTotal.WithLabelValues("text", "true", "false"))
	assert.Equal(t, before+1, after)
}

func TestRecordFailure(t *testing.T) {
	before := testutil.ToFloat64(FailuresTotal.WithLabelValues("video", "aggregation"))
	RecordFailure("video", "aggregation")
	assert.Equal(t, before+1, testutil.ToFloat64(FailuresTotal.WithLabelValues("video", "aggregation")))
}

func TestTrackInflight(t *testing.T) {
	Config = MetricsConfig{EnableInflight: true}
	defer func() { Config = DefaultMetricsConfig() }()

	done := TrackInflight("video_frame")
	assert.Equal(t, 1.0, testutil.ToFloat64(InflightUnits.WithLabelValues("video_frame")))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(InflightUnits.WithLabelValues("video_frame")))
}

func TestRecordProviderCall_Disabled(t *testing.T) {
	Config = MetricsConfig{}
	defer func() { Config = DefaultMetricsConfig() }()
	assert.NotPanics(t, func() {
		RecordProviderCall("hive", "nsfw", errors.New("boom"), time.Second)
	})
}

func TestScratchFiles(t *testing.T) {
	Config = MetricsConfig{EnableInflight: true}
	defer func() { Config = DefaultMetricsConfig() }()
	g := InflightUnits.WithLabelValues("scratch_file")
	before := testutil.ToFloat64(g)

	ScratchFiles{}.Acquired("/tmp/a.wav")
	ScratchFiles{}.Acquired("/tmp/b.mp4")
	assert.Equal(t, before+2, testutil.ToFloat64(g))
	ScratchFiles{}.Released("/tmp/a.wav")
	assert.Equal(t, before+1, testutil.ToFloat64(g))
}
