package thresholds

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/OldStager01/fleet-autoscaler/internal/logger"
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

var ErrUnknownField = errors.New("unknown threshold field")

// Store publishes an immutable threshold snapshot behind an atomic
// pointer. Readers always observe one consistent set; updates validate a
// candidate copy and swap the whole snapshot or reject it entirely.
type Store struct {
	current atomic.Pointer[models.MetricThresholds]
}

func NewStore(initial models.MetricThresholds) (*Store, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	s := &Store{}
	s.current.Store(&initial)
	return s, nil
}

// Snapshot returns the current threshold set. The returned value is a
// copy; callers may hold it across a full tick.
func (s *Store) Snapshot() models.MetricThresholds {
	return *s.current.Load()
}

// Update applies a partial field map on top of the current snapshot. The
// merged candidate is validated before the swap, so a reader never sees a
// half-applied or invalid set.
func (s *Store) Update(fields map[string]interface{}) (models.MetricThresholds, error) {
	candidate := s.Snapshot()

	for name, raw := range fields {
		if err := applyField(&candidate, name, raw); err != nil {
			return models.MetricThresholds{}, err
		}
	}

	if err := candidate.Validate(); err != nil {
		return models.MetricThresholds{}, err
	}

	s.current.Store(&candidate)
	logger.WithField("fields", fields).Info("Thresholds updated")
	return candidate, nil
}

func applyField(t *models.MetricThresholds, name string, raw interface{}) error {
	switch name {
	case "cpu_scale_up":
		return setFloat(&t.CPUScaleUp, name, raw)
	case "cpu_scale_down":
		return setFloat(&t.CPUScaleDown, name, raw)
	case "memory_scale_up":
		return setFloat(&t.MemoryScaleUp, name, raw)
	case "memory_scale_down":
		return setFloat(&t.MemoryScaleDown, name, raw)
	case "response_time_scale_up":
		return setFloat(&t.ResponseTimeScaleUp, name, raw)
	case "error_rate_scale_up":
		return setFloat(&t.ErrorRateScaleUp, name, raw)
	case "queue_length_scale_up":
		return setInt(&t.QueueLengthScaleUp, name, raw)
	case "min_instances":
		return setInt(&t.MinInstances, name, raw)
	case "max_instances":
		return setInt(&t.MaxInstances, name, raw)
	case "scale_cooldown_seconds":
		return setInt(&t.ScaleCooldown, name, raw)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
}

func setFloat(dst *float64, name string, raw interface{}) error {
	switch v := raw.(type) {
	case float64:
		*dst = v
	case int:
		*dst = float64(v)
	default:
		return fmt.Errorf("%s must be a number", name)
	}
	return nil
}

func setInt(dst *int, name string, raw interface{}) error {
	switch v := raw.(type) {
	case int:
		*dst = v
	case float64:
		// JSON numbers decode as float64
		if v != float64(int(v)) {
			return fmt.Errorf("%s must be an integer", name)
		}
		*dst = int(v)
	default:
		return fmt.Errorf("%s must be an integer", name)
	}
	return nil
}
