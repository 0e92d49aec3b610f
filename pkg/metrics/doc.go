// Package metrics defines Prometheus metrics for the management server,
// covering gate decisions, session auth, alert persistence, the live alert
// stream and audit delivery.
package metrics
