package config

import "github.com/OldStager01/fleet-autoscaler/pkg/models"

// Thresholds converts the scaling section into the initial threshold
// snapshot published to the hot-reloadable store.
func (s ScalingConfig) Thresholds() models.MetricThresholds {
	return models.MetricThresholds{
		CPUScaleUp:          s.CPUScaleUp,
		CPUScaleDown:        s.CPUScaleDown,
		MemoryScaleUp:       s.MemoryScaleUp,
		MemoryScaleDown:     s.MemoryScaleDown,
		ResponseTimeScaleUp: s.ResponseTimeScaleUp,
		ErrorRateScaleUp:    s.ErrorRateScaleUp,
		QueueLengthScaleUp:  s.QueueLengthScaleUp,
		MinInstances:        s.MinInstances,
		MaxInstances:        s.MaxInstances,
		ScaleCooldown:       s.ScaleCooldown,
	}
}
