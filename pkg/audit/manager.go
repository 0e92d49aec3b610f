package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sentry-vision/management-server/pkg/metrics"
)

// Recorder is the narrow interface the rest of the server depends on.
// Record never blocks the caller: delivery happens on a background worker.
type Recorder interface {
	Record(event *Event)
}

// defaultQueueSize bounds the in-flight event queue. When the queue is
// full, new events are dropped and counted rather than stalling the
// request path.
const defaultQueueSize = 1024

// Manager fans audit events out to its sinks from a single dispatch
// goroutine.
type Manager struct {
	sinks  []Sink
	queue  chan *Event
	logger *zap.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewManager creates a manager delivering to the given sinks and starts
// its dispatch worker. Call Close during shutdown to flush the queue.
func NewManager(logger *zap.Logger, sinks ...Sink) *Manager {
	m := &Manager{
		sinks:  sinks,
		queue:  make(chan *Event, defaultQueueSize),
		logger: logger.Named("audit"),
	}

	m.wg.Add(1)
	go m.dispatch()

	return m
}

// Record enqueues an event for delivery. Full queue drops the event.
func (m *Manager) Record(event *Event) {
	select {
	case m.queue <- event:
	default:
		metrics.AuditEventsDropped.Inc()
		m.logger.Warn("audit queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("source_ip", event.SourceIP))
	}
}

// Close drains the queue and closes all sinks.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.queue)
	})
	m.wg.Wait()

	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) dispatch() {
	defer m.wg.Done()

	for event := range m.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		for _, s := range m.sinks {
			if err := s.Write(ctx, event); err != nil {
				m.logger.Warn("audit sink write failed",
					zap.String("sink", s.Name()),
					zap.String("event_id", event.ID),
					zap.Error(err))
			}
		}
		cancel()
	}
}

// NopRecorder discards all events. Useful in tests and as a default when
// no audit trail is configured.
type NopRecorder struct{}

// Record discards the event.
func (NopRecorder) Record(*Event) {}
