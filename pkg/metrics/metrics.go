package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Gate metrics
	GateDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentry_gate_decisions_total",
		Help: "Total number of gate decisions by terminal outcome",
	}, []string{"outcome"})
	GateBansIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentry_gate_bans_issued_total",
		Help: "Total number of temporary IP bans issued by the gate",
	})
	GateFailedAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentry_gate_failed_attempts_total",
		Help: "Total number of invalid API key attempts seen by the gate",
	})

	// Session auth metrics
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentry_login_attempts_total",
		Help: "Total number of login attempts by result",
	}, []string{"result"})

	// Alert metrics
	AlertsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentry_alerts_created_total",
		Help: "Total number of alerts persisted, by alert type",
	}, []string{"alert_type"})
	AlertsAcknowledged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentry_alerts_acknowledged_total",
		Help: "Total number of alerts acknowledged",
	})

	// Live stream metrics
	StreamClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentry_stream_clients",
		Help: "Number of currently connected live-alert websocket clients",
	})
	StreamDroppedClients = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentry_stream_dropped_clients_total",
		Help: "Total number of websocket clients dropped for not keeping up",
	})

	// Audit metrics
	AuditEventsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentry_audit_events_written_total",
		Help: "Total number of audit events written, by sink and result",
	}, []string{"sink", "result"})
	AuditEventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentry_audit_events_dropped_total",
		Help: "Total number of audit events dropped due to a full queue",
	})
)

func init() {
	prometheus.MustRegister(GateDecisions)
	prometheus.MustRegister(GateBansIssued)
	prometheus.MustRegister(GateFailedAttempts)
	prometheus.MustRegister(LoginAttempts)
	prometheus.MustRegister(AlertsCreated)
	prometheus.MustRegister(AlertsAcknowledged)
	prometheus.MustRegister(StreamClients)
	prometheus.MustRegister(StreamDroppedClients)
	prometheus.MustRegister(AuditEventsWritten)
	prometheus.MustRegister(AuditEventsDropped)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
