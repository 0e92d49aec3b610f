package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sentry-vision/management-server/pkg/metrics"
)

// KafkaSinkConfig configures a KafkaSink.
type KafkaSinkConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string

	// Topic is the Kafka topic to write audit events to.
	Topic string

	// BatchTimeout is the maximum time to wait before flushing a batch.
	// Default: 1 second.
	BatchTimeout time.Duration

	// WriteTimeout is the timeout for writing messages.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// Async enables fire-and-forget writes. Default: false.
	Async bool
}

// KafkaSink writes audit events to a Kafka topic.
type KafkaSink struct {
	writer *kafka.Writer
	logger *zap.Logger
	mu     sync.Mutex
	closed bool
}

// NewKafkaSink creates a new KafkaSink.
func NewKafkaSink(cfg KafkaSinkConfig, logger *zap.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("Kafka topic is required")
	}

	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        cfg.Async,
		Compression:  kafka.Snappy,
	}

	return &KafkaSink{
		writer: writer,
		logger: logger.Named("kafka-audit"),
	}, nil
}

// Write serializes the event as JSON and publishes it, keyed by source IP
// so events about one client stay ordered within a partition.
func (s *KafkaSink) Write(ctx context.Context, event *Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("kafka sink is closed")
	}
	s.mu.Unlock()

	payload, err := json.Marshal(event)
	if err != nil {
		metrics.AuditEventsWritten.WithLabelValues(s.Name(), "error").Inc()
		return fmt.Errorf("marshaling audit event %s: %w", event.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.SourceIP),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "severity", Value: []byte(event.Severity)},
		},
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		metrics.AuditEventsWritten.WithLabelValues(s.Name(), "error").Inc()
		s.logger.Warn("failed to publish audit event",
			zap.String("event_id", event.ID),
			zap.Error(err))
		return fmt.Errorf("writing audit event %s to kafka: %w", event.ID, err)
	}

	metrics.AuditEventsWritten.WithLabelValues(s.Name(), "success").Inc()
	return nil
}

// Close flushes pending batches and closes the underlying writer.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.writer.Close()
}

// Name returns the sink's identifier.
func (s *KafkaSink) Name() string { return "kafka" }
