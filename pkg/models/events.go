package models

import "time"

type EventType string

const (
	EventTypeMetricCollected EventType = "metric_collected"
	EventTypeDirectiveIssued EventType = "directive_issued"
	EventTypeScalingStarted  EventType = "scaling_started"
	EventTypeScalingComplete EventType = "scaling_complete"
	EventTypeScalingFailed   EventType = "scaling_failed"
	EventTypeCooldownBlocked EventType = "cooldown_blocked"
	EventTypeSourceDegraded  EventType = "source_degraded"
	EventTypeAlert           EventType = "alert"
	EventTypeError           EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal system event
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	Service   string        `json:"service,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
}

func NewEvent(eventType EventType, service, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		Service:   service,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}
