package decision

import (
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

// Engine maps one metrics snapshot plus the current threshold policy to a
// per-service scale directive. It holds no mutable state and performs no
// I/O; cooldown enforcement and bounds re-validation against live counts
// belong to the gate and the reconciler.
type Engine struct {
	services []string
}

func NewEngine(services []string) *Engine {
	return &Engine{services: services}
}

func (e *Engine) Services() []string {
	return e.services
}

// Analyze returns a directive for every managed service. Unknown instance
// counts are treated as MinInstances so a blind tick can still scale up
// but never scales below the floor.
func (e *Engine) Analyze(
	metrics *models.SystemMetrics,
	thresholds models.MetricThresholds,
	currentInstances map[string]int,
) map[string]models.Directive {
	directives := make(map[string]models.Directive, len(e.services))

	up, upReason := upPressure(metrics, thresholds)
	down := downPressure(metrics, thresholds)

	for _, service := range e.services {
		count, known := currentInstances[service]
		if !known {
			count = thresholds.MinInstances
		}

		directive := models.Directive{Service: service, Direction: models.ScaleNone}

		switch {
		case up && count < thresholds.MaxInstances:
			directive.Direction = models.ScaleUp
			directive.Reason = upReason
		case down && count > thresholds.MinInstances:
			directive.Direction = models.ScaleDown
			directive.Reason = "joint_low_cpu_memory"
		}

		directives[service] = directive
	}

	return directives
}

// upPressure reports whether any single metric strictly exceeds its
// scale-up threshold. Multiple simultaneous signals do not stack; the
// first match names the reason.
func upPressure(m *models.SystemMetrics, t models.MetricThresholds) (bool, string) {
	switch {
	case m.CPUUsage > t.CPUScaleUp:
		return true, "cpu_above_threshold"
	case m.MemoryUsage > t.MemoryScaleUp:
		return true, "memory_above_threshold"
	case m.ResponseTimeAvg > t.ResponseTimeScaleUp:
		return true, "response_time_above_threshold"
	case m.ErrorRate > t.ErrorRateScaleUp:
		return true, "error_rate_above_threshold"
	case m.QueueLength > t.QueueLengthScaleUp:
		return true, "queue_length_above_threshold"
	}
	return false, ""
}

// downPressure requires joint low pressure on both primary resources so a
// single noisy metric cannot trigger scale-down flapping.
func downPressure(m *models.SystemMetrics, t models.MetricThresholds) bool {
	return m.CPUUsage < t.CPUScaleDown && m.MemoryUsage < t.MemoryScaleDown
}
