package events

import (
	"context"
	"sync"
	"time"

	"github.com/NeuralTrust/TrustModeration/pkg/domain/moderation"
	"github.com/sirupsen/logrus"
)

const (
	defaultQueueSize = 1000
	defaultTimeout   = 5 * time.Second
)

type Config struct {
	Enabled   bool          `mapstructure:"enabled"`
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Source    string        `mapstructure:"source"`
}

// Publisher fans verdict events out to exporters from a bounded queue.
// Publish never blocks the request path: when the queue is full the event
// is dropped and logged.
//
//go:generate mockery --name=Publisher --dir=. --output=./mocks --filename=publisher_mock.go --case=underscore --with-expecter
type Publisher interface {
	Publish(resp *moderation.Response, digest string)
	StartWorkers(n int)
	Shutdown()
}

type publisher struct {
	logger    *logrus.Logger
	exporters []Exporter
	config    Config
	taskChan  chan *Event
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
	now       func() time.Time
}

func NewPublisher(logger *logrus.Logger, config Config, exporters ...Exporter) Publisher {
	if config.QueueSize <= 0 {
		config.QueueSize = defaultQueueSize
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &publisher{
		logger:    logger,
		exporters: exporters,
		config:    config,
		taskChan:  make(chan *Event, config.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}
}

func (p *publisher) Publish(resp *moderation.Response, digest string) {
	if resp == nil || len(p.exporters) == 0 {
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	evt := NewVerdictEvent(resp, p.config.Source, digest, p.now())
	select {
	case p.taskChan <- evt:
	default:
		p.logger.WithFields(logrus.Fields{
			"kind": resp.Kind,
			"id":   resp.ID,
		}).Warn("event queue is full, dropping verdict event")
	}
}

func (p *publisher) StartWorkers(n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case evt, ok := <-p.taskChan:
					if !ok {
						return
					}
					p.export(evt)
				case <-p.ctx.Done():
					return
				}
			}
		}()
	}
}

// Shutdown drains queued events, stops the workers and closes every exporter.
func (p *publisher) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.taskChan)
	p.mu.Unlock()

	p.logger.Info("shutting down event workers")
	p.wg.Wait()
	p.cancel()
	for _, exporter := range p.exporters {
		exporter.Close()
	}
	p.logger.Info("event workers stopped")
}

func (p *publisher) export(evt *Event) {
	var failed []string
	for _, exporter := range p.exporters {
		ctx, cancel := context.WithTimeout(p.ctx, p.config.Timeout)
		err := exporter.Handle(ctx, evt)
		cancel()
		if err != nil {
			p.logger.WithFields(logrus.Fields{
				"exporter": exporter.Name(),
				"event_id": evt.ID,
			}).WithError(err).Error("exporter failed")
			failed = append(failed, exporter.Name())
		}
	}
	if len(failed) > 0 {
		p.logger.WithField("failedExporters", failed).
			Warnf("%d exporters failed to handle verdict event", len(failed))
	}
}
