package models

import (
	"errors"
	"fmt"
	"time"
)

// MetricThresholds is the per-metric scaling policy plus instance bounds.
// Instances are immutable once published; updates go through the threshold
// store which validates and swaps a whole new snapshot.
type MetricThresholds struct {
	CPUScaleUp          float64 `json:"cpu_scale_up"`
	CPUScaleDown        float64 `json:"cpu_scale_down"`
	MemoryScaleUp       float64 `json:"memory_scale_up"`
	MemoryScaleDown     float64 `json:"memory_scale_down"`
	ResponseTimeScaleUp float64 `json:"response_time_scale_up"`
	ErrorRateScaleUp    float64 `json:"error_rate_scale_up"`
	QueueLengthScaleUp  int     `json:"queue_length_scale_up"`
	MinInstances        int     `json:"min_instances"`
	MaxInstances        int     `json:"max_instances"`
	ScaleCooldown       int     `json:"scale_cooldown_seconds"`
}

// DefaultThresholds returns the policy used when nothing is configured.
func DefaultThresholds() MetricThresholds {
	return MetricThresholds{
		CPUScaleUp:          80.0,
		CPUScaleDown:        30.0,
		MemoryScaleUp:       85.0,
		MemoryScaleDown:     40.0,
		ResponseTimeScaleUp: 2000.0,
		ErrorRateScaleUp:    5.0,
		QueueLengthScaleUp:  100,
		MinInstances:        1,
		MaxInstances:        10,
		ScaleCooldown:       300,
	}
}

func (t MetricThresholds) CooldownDuration() time.Duration {
	return time.Duration(t.ScaleCooldown) * time.Second
}

// Validate rejects malformed threshold sets before they can be published.
func (t MetricThresholds) Validate() error {
	var errs []error

	if t.MinInstances < 1 {
		errs = append(errs, errors.New("min_instances must be at least 1"))
	}
	if t.MaxInstances < t.MinInstances {
		errs = append(errs, errors.New("max_instances must be >= min_instances"))
	}
	if t.ScaleCooldown < 0 {
		errs = append(errs, errors.New("scale_cooldown_seconds must not be negative"))
	}

	percentFields := map[string]float64{
		"cpu_scale_up":      t.CPUScaleUp,
		"cpu_scale_down":    t.CPUScaleDown,
		"memory_scale_up":   t.MemoryScaleUp,
		"memory_scale_down": t.MemoryScaleDown,
		"error_rate_scale_up": t.ErrorRateScaleUp,
	}
	for name, v := range percentFields {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("%s must be between 0 and 100", name))
		}
	}

	if t.CPUScaleUp <= t.CPUScaleDown {
		errs = append(errs, errors.New("cpu_scale_up must be greater than cpu_scale_down"))
	}
	if t.MemoryScaleUp <= t.MemoryScaleDown {
		errs = append(errs, errors.New("memory_scale_up must be greater than memory_scale_down"))
	}
	if t.ResponseTimeScaleUp < 0 {
		errs = append(errs, errors.New("response_time_scale_up must not be negative"))
	}
	if t.QueueLengthScaleUp < 0 {
		errs = append(errs, errors.New("queue_length_scale_up must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("threshold validation failed: %v", errs)
	}
	return nil
}
