// Package audit provides the security audit trail for the management
// server, capturing gate and authentication events and forwarding them to
// configurable sinks (structured log, Kafka) with queued delivery.
package audit
