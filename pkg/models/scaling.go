package models

import "time"

type ScaleDirection string

const (
	ScaleUp   ScaleDirection = "UP"
	ScaleDown ScaleDirection = "DOWN"
	ScaleNone ScaleDirection = "NONE"
)

// Directive is the decision engine's per-service output for one tick.
type Directive struct {
	Service   string         `json:"service"`
	Direction ScaleDirection `json:"direction"`
	Reason    string         `json:"reason"`
}

func (d Directive) ShouldExecute() bool {
	return d.Direction == ScaleUp || d.Direction == ScaleDown
}

// ScalingEvent records one executed scaling action. Created only by the
// reconciler after the orchestration call succeeded; never mutated.
type ScalingEvent struct {
	ID              string         `json:"id"`
	Service         string         `json:"service"`
	Action          ScaleDirection `json:"action"`
	InstancesBefore int            `json:"instances_before"`
	InstancesAfter  int            `json:"instances_after"`
	Timestamp       time.Time      `json:"timestamp"`
	Reason          string         `json:"reason"`
	Metrics         SystemMetrics  `json:"metrics"`
}

func NewScalingEvent(service string, action ScaleDirection, before, after int, reason string, metrics SystemMetrics) *ScalingEvent {
	return &ScalingEvent{
		ID:              NewUUID(),
		Service:         service,
		Action:          action,
		InstancesBefore: before,
		InstancesAfter:  after,
		Timestamp:       time.Now(),
		Reason:          reason,
		Metrics:         metrics,
	}
}
