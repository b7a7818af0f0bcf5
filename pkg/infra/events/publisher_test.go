package events_test

import (
	"errors"
	"testing"
	"time"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/events"
	"github.com/NeuralTrust/TrustModeration/pkg/infra/events/mocks"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func verdict(kind moderation.Kind) *moderation.Response {
	synthetic := false
	return &moderation.Response{
		ID:              uuid.New(),
		Kind:            kind,
		IsInappropriate: true,
		IsSynthetic:     &synthetic,
		Scores:          moderation.NewScoreSet(moderation.ScoreEntry{Name: moderation.SignalToxicity, Value: 0.8}),
		Details: &moderation.Details{
			Warnings: []string{"fallback"},
			Failure:  &moderation.Failure{Reason: "transcription_failed"},
		},
		ElapsedMS: 42,
	}
}

func TestNewVerdictEvent(t *testing.T) {
	resp := verdict(moderation.KindAudio)
	evt := events.NewVerdictEvent(resp, "api", "digest", time.Unix(100, 0))

	assert.Equal(t, events.VerdictEventType, evt.Type)
	assert.Equal(t, resp.ID, evt.ID)
	assert.Equal(t, moderation.KindAudio, evt.Kind)
	assert.Equal(t, "digest", evt.ContentDigest)
	assert.Equal(t, "transcription_failed", evt.FailureReason)
	assert.Equal(t, []string{"fallback"}, evt.Warnings)
	assert.InDelta(t, 0.8, evt.Scores[moderation.SignalToxicity], 1e-9)
	assert.Equal(t, int64(42), evt.Latency)
	assert.Equal(t, int64(100), evt.Timestamp)
	if assert.NotNil(t, evt.IsSynthetic) {
		assert.False(t, *evt.IsSynthetic)
	}
}

func TestPublisher_DeliversToEveryExporter(t *testing.T) {
	ok := &mocks.MockExporter{}
	broken := &mocks.MockExporter{}
	resp := verdict(moderation.KindText)

	delivered := make(chan struct{}, 2)
	matchID := mock.MatchedBy(func(evt *events.Event) bool { return evt.ID == resp.ID })
	ok.On("Name").Return("ok").Maybe()
	ok.On("Handle", mock.Anything, matchID).Return(nil).Run(func(mock.Arguments) { delivered <- struct{}{} })
	ok.On("Close").Return().Once()
	broken.On("Name").Return("broken")
	broken.On("Handle", mock.Anything, matchID).Return(errors.New("down")).Run(func(mock.Arguments) { delivered <- struct{}{} })
	broken.On("Close").Return().Once()

	p := events.NewPublisher(quietLogger(), events.Config{Source: "test"}, ok, broken)
	p.StartWorkers(1)
	p.Publish(resp, "digest")

	for i := 0; i < 2; i++ {
		select {
		case <-delivered:
		case <-time.After(time.Second):
			t.Fatal("event was not delivered")
		}
	}
	p.Shutdown()
	p.Shutdown()

	ok.AssertExpectations(t)
	broken.AssertExpectations(t)
}

func TestPublisher_DropsWhenQueueFull(t *testing.T) {
	exp := &mocks.MockExporter{}
	exp.On("Close").Return()

	p := events.NewPublisher(quietLogger(), events.Config{QueueSize: 1}, exp)
	p.Publish(verdict(moderation.KindImage), "a")
	p.Publish(verdict(moderation.KindImage), "b")
	p.Shutdown()

	exp.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestPublisher_IgnoredAfterShutdownOrWithoutExporters(t *testing.T) {
	p := events.NewPublisher(quietLogger(), events.Config{})
	p.StartWorkers(2)
	p.Publish(verdict(moderation.KindText), "x")
	p.Shutdown()

	exp := &mocks.MockExporter{}
	exp.On("Close").Return()
	p = events.NewPublisher(quietLogger(), events.Config{}, exp)
	p.Shutdown()
	p.Publish(verdict(moderation.KindText), "x")
	exp.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}
