package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of security event being recorded.
type EventType string

const (
	// Gate events
	EventKeyInvalid  EventType = "gate.key_invalid"
	EventIPBanned    EventType = "gate.ip_banned"
	EventRateLimited EventType = "gate.rate_limited"

	// Session auth events
	EventLogin          EventType = "auth.login"
	EventLoginFailed    EventType = "auth.login_failed"
	EventUserRegistered EventType = "auth.user_registered"
)

// Severity indicates how urgent an event is for a security reviewer.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is a single entry in the audit trail.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Severity  Severity          `json:"severity"`
	Timestamp time.Time         `json:"timestamp"`
	SourceIP  string            `json:"sourceIP,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Path      string            `json:"path,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// NewEvent creates an event with a fresh ID and the current timestamp.
func NewEvent(eventType EventType, severity Severity) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Severity:  severity,
		Timestamp: time.Now().UTC(),
	}
}

// WithSource sets the client address the event originated from.
func (e *Event) WithSource(ip string) *Event {
	e.SourceIP = ip
	return e
}

// WithActor sets the acting principal, when one is known.
func (e *Event) WithActor(actor string) *Event {
	e.Actor = actor
	return e
}

// WithPath sets the request path the event relates to.
func (e *Event) WithPath(path string) *Event {
	e.Path = path
	return e
}

// WithDetail adds one key/value pair of free-form context.
func (e *Event) WithDetail(key, value string) *Event {
	if e.Detail == nil {
		e.Detail = make(map[string]string)
	}
	e.Detail[key] = value
	return e
}
