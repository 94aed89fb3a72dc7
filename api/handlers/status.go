package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/fleet-autoscaler/internal/collector"
	"github.com/OldStager01/fleet-autoscaler/internal/cooldown"
	"github.com/OldStager01/fleet-autoscaler/internal/ledger"
	"github.com/OldStager01/fleet-autoscaler/internal/reconciler"
	"github.com/OldStager01/fleet-autoscaler/internal/resilience"
	"github.com/OldStager01/fleet-autoscaler/internal/thresholds"
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

type StatusHandler struct {
	loop       LoopStatus
	collector  *collector.Collector
	reconciler *reconciler.Reconciler
	gate       *cooldown.Gate
	store      *thresholds.Store
	ledger     *ledger.Ledger
	breaker    *resilience.CircuitBreaker
	services   []string
}

func NewStatusHandler(
	loop LoopStatus,
	coll *collector.Collector,
	rec *reconciler.Reconciler,
	gate *cooldown.Gate,
	store *thresholds.Store,
	l *ledger.Ledger,
	breaker *resilience.CircuitBreaker,
	services []string,
) *StatusHandler {
	return &StatusHandler{
		loop:       loop,
		collector:  coll,
		reconciler: rec,
		gate:       gate,
		store:      store,
		ledger:     l,
		breaker:    breaker,
		services:   services,
	}
}

type BreakerStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

type ServiceStatus struct {
	Instances        int                  `json:"instances"`
	CountKnown       bool                 `json:"count_known"`
	CooldownSeconds  float64              `json:"cooldown_seconds"`
	LastScalingEvent *models.ScalingEvent `json:"last_scaling_event,omitempty"`
}

type StatusResponse struct {
	Running      bool                     `json:"running"`
	Timestamp    string                   `json:"timestamp"`
	Thresholds   models.MetricThresholds  `json:"thresholds"`
	SourceHealth map[string]bool          `json:"source_health"`
	Services     map[string]ServiceStatus `json:"services"`
	Breaker      *BreakerStatus           `json:"circuit_breaker,omitempty"`
	EventsTotal  int64                    `json:"events_total"`
}

func (h *StatusHandler) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	now := time.Now()
	counts := h.reconciler.Counts(ctx, h.services)

	services := make(map[string]ServiceStatus, len(h.services))
	for _, service := range h.services {
		count, known := counts[service]
		services[service] = ServiceStatus{
			Instances:        count,
			CountKnown:       known,
			CooldownSeconds:  h.gate.Remaining(service, now).Seconds(),
			LastScalingEvent: h.ledger.LastFor(service),
		}
	}

	var breaker *BreakerStatus
	if h.breaker != nil {
		breaker = &BreakerStatus{
			Name:  h.breaker.Name(),
			State: h.breaker.State().String(),
		}
	}

	c.JSON(http.StatusOK, StatusResponse{
		Running:      h.loop.IsRunning(),
		Timestamp:    now.UTC().Format(time.RFC3339),
		Thresholds:   h.store.Snapshot(),
		SourceHealth: h.collector.SourceHealth(),
		Services:     services,
		Breaker:      breaker,
		EventsTotal:  h.ledger.Total(),
	})
}
