package events

import (
	"context"

	"github.com/OldStager01/fleet-autoscaler/internal/logger"
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

// EventLogger drains a bus subscription into the structured log so every
// event is visible even with no websocket client attached.
type EventLogger struct {
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewEventLogger(eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (l *EventLogger) Start() {
	go l.run()
}

func (l *EventLogger) Stop() {
	l.cancel()
}

func (l *EventLogger) run() {
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.logEvent(event)
		}
	}
}

func (l *EventLogger) logEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"service":    event.Service,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}
}
