package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

// Metrics holds the Prometheus instruments for the control loop. Source
// health gauges are the operator's first signal that a dependency is down
// while the ledger stays quiet.
type Metrics struct {
	TicksTotal         prometheus.Counter
	TickDuration       prometheus.Histogram
	CollectionErrors   *prometheus.CounterVec
	SourceHealthy      *prometheus.GaugeVec
	SystemCPU          prometheus.Gauge
	SystemMemory       prometheus.Gauge
	SystemDisk         prometheus.Gauge
	ActiveConnections  prometheus.Gauge
	ServiceInstances   *prometheus.GaugeVec
	DirectivesTotal    *prometheus.CounterVec
	ScalingEventsTotal *prometheus.CounterVec
	BreakerState       *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		TicksTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "autoscaler_ticks_total",
			Help: "Total number of control loop ticks.",
		}),
		TickDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "autoscaler_tick_duration_seconds",
			Help:    "Histogram of full tick latencies.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		CollectionErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "autoscaler_collection_errors_total",
			Help: "Total metric source failures by source.",
		}, []string{"source"}),
		SourceHealthy: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "autoscaler_source_healthy",
			Help: "Whether a metric source answered on the last tick (1=healthy).",
		}, []string{"source"}),
		SystemCPU: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "autoscaler_system_cpu_percent",
			Help: "Last collected CPU usage.",
		}),
		SystemMemory: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "autoscaler_system_memory_percent",
			Help: "Last collected memory usage.",
		}),
		SystemDisk: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "autoscaler_system_disk_percent",
			Help: "Last collected disk usage.",
		}),
		ActiveConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "autoscaler_active_connections",
			Help: "Last collected active connection total across shards.",
		}),
		ServiceInstances: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "autoscaler_service_instances",
			Help: "Last observed instance count per service.",
		}, []string{"service"}),
		DirectivesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "autoscaler_directives_total",
			Help: "Decision engine output by service and direction.",
		}, []string{"service", "direction"}),
		ScalingEventsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "autoscaler_scaling_events_total",
			Help: "Executed scaling events by service and action.",
		}, []string{"service", "action"}),
		BreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "autoscaler_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		}, []string{"name"}),
	}
}

// ObserveSnapshot updates the system gauges from one metrics snapshot.
func (m *Metrics) ObserveSnapshot(snap *models.SystemMetrics) {
	m.SystemCPU.Set(snap.CPUUsage)
	m.SystemMemory.Set(snap.MemoryUsage)
	m.SystemDisk.Set(snap.DiskUsage)
	m.ActiveConnections.Set(float64(snap.ActiveConnections))
}

// ObserveSourceHealth updates the per-source gauges and failure counters.
func (m *Metrics) ObserveSourceHealth(health map[string]bool) {
	for source, healthy := range health {
		if healthy {
			m.SourceHealthy.WithLabelValues(source).Set(1)
		} else {
			m.SourceHealthy.WithLabelValues(source).Set(0)
			m.CollectionErrors.WithLabelValues(source).Inc()
		}
	}
}
