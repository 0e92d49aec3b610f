package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/sentry-vision/management-server/pkg/metrics"
)

// Sink defines the interface for audit event destinations.
type Sink interface {
	// Write sends an audit event to the sink.
	Write(ctx context.Context, event *Event) error

	// Close releases any resources held by the sink.
	Close() error

	// Name returns the sink's identifier.
	Name() string
}

// LogSink writes audit events to a structured logger. It is always
// installed, so the trail survives even when no Kafka cluster is
// configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

// Write logs the audit event.
func (s *LogSink) Write(_ context.Context, event *Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("severity", string(event.Severity)),
		zap.Time("timestamp", event.Timestamp),
	}
	if event.SourceIP != "" {
		fields = append(fields, zap.String("source_ip", event.SourceIP))
	}
	if event.Actor != "" {
		fields = append(fields, zap.String("actor", event.Actor))
	}
	if event.Path != "" {
		fields = append(fields, zap.String("path", event.Path))
	}
	for k, v := range event.Detail {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	switch event.Severity {
	case SeverityCritical:
		s.logger.Error("SECURITY: "+string(event.Type), fields...)
	case SeverityWarning:
		s.logger.Warn("SECURITY: "+string(event.Type), fields...)
	default:
		s.logger.Info(string(event.Type), fields...)
	}

	metrics.AuditEventsWritten.WithLabelValues(s.Name(), "success").Inc()
	return nil
}

// Close is a no-op for the log sink.
func (s *LogSink) Close() error { return nil }

// Name returns the sink's identifier.
func (s *LogSink) Name() string { return "log" }
