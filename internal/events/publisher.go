package events

import (
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) MetricCollected(metrics *models.SystemMetrics) {
	event := models.NewEvent(models.EventTypeMetricCollected, "", "Metrics collected").
		WithData(metrics)
	p.publish(event)
}

func (p *Publisher) DirectiveIssued(directive models.Directive) {
	msg := "Scaling directive: " + string(directive.Direction)
	event := models.NewEvent(models.EventTypeDirectiveIssued, directive.Service, msg).
		WithData(directive)
	p.publish(event)
}

func (p *Publisher) ScalingStarted(service string, directive models.Directive) {
	msg := "Scaling started: " + string(directive.Direction)
	event := models.NewEvent(models.EventTypeScalingStarted, service, msg).
		WithData(directive)
	p.publish(event)
}

func (p *Publisher) ScalingComplete(scalingEvent *models.ScalingEvent) {
	msg := "Scaling complete: " + string(scalingEvent.Action)
	event := models.NewEvent(models.EventTypeScalingComplete, scalingEvent.Service, msg).
		WithData(scalingEvent)
	p.publish(event)
}

func (p *Publisher) ScalingFailed(service, reason string, err error) {
	msg := "Scaling failed: " + reason
	event := models.NewEvent(models.EventTypeScalingFailed, service, msg).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"reason": reason,
			"error":  err.Error(),
		})
	p.publish(event)
}

func (p *Publisher) CooldownBlocked(service string, remainingSeconds float64) {
	event := models.NewEvent(models.EventTypeCooldownBlocked, service, "Scaling blocked by cooldown").
		WithData(map[string]interface{}{
			"remaining_seconds": remainingSeconds,
		})
	p.publish(event)
}

func (p *Publisher) SourceDegraded(source string) {
	event := models.NewEvent(models.EventTypeSourceDegraded, "", "Metric source degraded: "+source).
		WithSeverity(models.SeverityWarning).
		WithData(map[string]interface{}{
			"source": source,
		})
	p.publish(event)
}

func (p *Publisher) Alert(service string, severity models.EventSeverity, message string, data interface{}) {
	event := models.NewEvent(models.EventTypeAlert, service, message).
		WithSeverity(severity).
		WithData(data)
	p.publish(event)
}

func (p *Publisher) Error(service string, message string, err error) {
	event := models.NewEvent(models.EventTypeError, service, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}
