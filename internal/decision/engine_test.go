package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

func testPolicy() models.MetricThresholds {
	return models.MetricThresholds{
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

func snapshot(cpu, mem float64) *models.SystemMetrics {
	m := models.NewSystemMetrics()
	m.CPUUsage = cpu
	m.MemoryUsage = mem
	return m
}

func TestEngine_Analyze(t *testing.T) {
	tests := []struct {
		name              string
		metrics           *models.SystemMetrics
		instances         int
		expectedDirection models.ScaleDirection
		expectedReason    string
	}{
		{
			name:              "scale up on high cpu",
			metrics:           snapshot(85.0, 50.0),
			instances:         3,
			expectedDirection: models.ScaleUp,
			expectedReason:    "cpu_above_threshold",
		},
		{
			name:              "scale up on high memory",
			metrics:           snapshot(50.0, 90.0),
			instances:         3,
			expectedDirection: models.ScaleUp,
			expectedReason:    "memory_above_threshold",
		},
		{
			name: "scale up on high error rate",
			metrics: func() *models.SystemMetrics {
				m := snapshot(50.0, 50.0)
				m.ErrorRate = 7.5
				return m
			}(),
			instances:         3,
			expectedDirection: models.ScaleUp,
			expectedReason:    "error_rate_above_threshold",
		},
		{
			name: "scale up on deep queue",
			metrics: func() *models.SystemMetrics {
				m := snapshot(50.0, 50.0)
				m.QueueLength = 150
				return m
			}(),
			instances:         3,
			expectedDirection: models.ScaleUp,
			expectedReason:    "queue_length_above_threshold",
		},
		{
			name:              "cpu names the reason when both cpu and memory are high",
			metrics:           snapshot(90.0, 95.0),
			instances:         3,
			expectedDirection: models.ScaleUp,
			expectedReason:    "cpu_above_threshold",
		},
		{
			name:              "no action at exact threshold",
			metrics:           snapshot(80.0, 85.0),
			instances:         3,
			expectedDirection: models.ScaleNone,
		},
		{
			name:              "scale down on joint low cpu and memory",
			metrics:           snapshot(15.0, 20.0),
			instances:         3,
			expectedDirection: models.ScaleDown,
			expectedReason:    "joint_low_cpu_memory",
		},
		{
			name:              "no scale down on low cpu alone",
			metrics:           snapshot(15.0, 60.0),
			instances:         3,
			expectedDirection: models.ScaleNone,
		},
		{
			name:              "no scale down on low memory alone",
			metrics:           snapshot(60.0, 20.0),
			instances:         3,
			expectedDirection: models.ScaleNone,
		},
		{
			name:              "no scale up at max instances",
			metrics:           snapshot(95.0, 50.0),
			instances:         10,
			expectedDirection: models.ScaleNone,
		},
		{
			name:              "no scale down at min instances",
			metrics:           snapshot(15.0, 20.0),
			instances:         1,
			expectedDirection: models.ScaleNone,
		},
		{
			name:              "idle band produces no action",
			metrics:           snapshot(50.0, 60.0),
			instances:         3,
			expectedDirection: models.ScaleNone,
		},
	}

	engine := NewEngine([]string{"api"})
	policy := testPolicy()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			directives := engine.Analyze(tt.metrics, policy, map[string]int{"api": tt.instances})

			directive, ok := directives["api"]
			assert.True(t, ok)
			assert.Equal(t, tt.expectedDirection, directive.Direction)
			if tt.expectedReason != "" {
				assert.Equal(t, tt.expectedReason, directive.Reason)
			}
		})
	}
}

func TestEngine_Analyze_PerService(t *testing.T) {
	engine := NewEngine([]string{"api", "worker", "edge"})
	policy := testPolicy()

	directives := engine.Analyze(snapshot(85.0, 50.0), policy, map[string]int{
		"api":    3,
		"worker": 10,
		"edge":   5,
	})

	assert.Len(t, directives, 3)
	assert.Equal(t, models.ScaleUp, directives["api"].Direction)
	assert.Equal(t, models.ScaleNone, directives["worker"].Direction, "service at max must not scale up")
	assert.Equal(t, models.ScaleUp, directives["edge"].Direction)
}

func TestEngine_Analyze_UnknownCountUsesFloor(t *testing.T) {
	engine := NewEngine([]string{"api"})
	policy := testPolicy()

	// Unknown count may still scale up but never below the floor.
	up := engine.Analyze(snapshot(85.0, 50.0), policy, map[string]int{})
	assert.Equal(t, models.ScaleUp, up["api"].Direction)

	down := engine.Analyze(snapshot(15.0, 20.0), policy, map[string]int{})
	assert.Equal(t, models.ScaleNone, down["api"].Direction)
}

func TestEngine_Analyze_ZeroedMetricsAtFloor(t *testing.T) {
	engine := NewEngine([]string{"api"})
	policy := testPolicy()

	// A fully degraded collection yields zeroed metrics. Joint-low pressure
	// holds, but a service at the floor must stay put.
	directives := engine.Analyze(models.NewSystemMetrics(), policy, map[string]int{"api": 1})
	assert.Equal(t, models.ScaleNone, directives["api"].Direction)
}
