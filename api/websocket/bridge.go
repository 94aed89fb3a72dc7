package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/OldStager01/fleet-autoscaler/internal/logger"
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

// EventBridge forwards control loop events to WebSocket clients.
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewEventBridge(hub *Hub, eventsChan <-chan *models.Event) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:        hub,
		eventsChan: eventsChan,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.Info("WebSocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.cancel()
	logger.Info("WebSocket event bridge stopped")
}

func (b *EventBridge) run() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventsChan:
			if !ok {
				logger.Info("Event channel closed, stopping bridge")
				return
			}
			b.forwardEvent(event)
		}
	}
}

func (b *EventBridge) forwardEvent(event *models.Event) {
	wsMessage := b.convertToWSMessage(event)
	if wsMessage == nil {
		return
	}

	data, err := json.Marshal(wsMessage)
	if err != nil {
		logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	if event.Service != "" {
		b.hub.BroadcastToService(event.Service, data)
	} else {
		b.hub.Broadcast(data)
	}
}

// WebSocketEvent is the message format sent to WebSocket clients.
type WebSocketEvent struct {
	Type      string      `json:"type"`
	Service   string      `json:"service,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func (b *EventBridge) convertToWSMessage(event *models.Event) *WebSocketEvent {
	wsType := mapEventType(event.Type)
	if wsType == "" {
		return nil
	}

	return &WebSocketEvent{
		Type:      wsType,
		Service:   event.Service,
		Timestamp: event.Timestamp,
		Severity:  string(event.Severity),
		Message:   event.Message,
		Data:      event.Data,
	}
}

func mapEventType(eventType models.EventType) string {
	switch eventType {
	case models.EventTypeDirectiveIssued:
		return "directive"
	case models.EventTypeScalingStarted:
		return "scaling_started"
	case models.EventTypeScalingComplete:
		return "scaling_event"
	case models.EventTypeScalingFailed:
		return "scaling_failed"
	case models.EventTypeCooldownBlocked:
		return "cooldown_blocked"
	case models.EventTypeSourceDegraded:
		return "source_degraded"
	case models.EventTypeAlert:
		return "alert"
	case models.EventTypeError:
		return "error"
	default:
		// Skip metric_collected and other high-volume internal events
		return ""
	}
}
