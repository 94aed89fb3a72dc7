package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/fleet-autoscaler/internal/ledger"
	"github.com/OldStager01/fleet-autoscaler/pkg/config"
	"github.com/OldStager01/fleet-autoscaler/pkg/database/queries"
)

type EventsHandler struct {
	ledger *ledger.Ledger
	repo   *queries.ScalingEventRepository
	cfg    config.APIConfig
}

// NewEventsHandler serves recent events from the in-memory ledger and
// historical queries from the repository when one is configured.
func NewEventsHandler(l *ledger.Ledger, repo *queries.ScalingEventRepository, cfg config.APIConfig) *EventsHandler {
	return &EventsHandler{ledger: l, repo: repo, cfg: cfg}
}

func (h *EventsHandler) limitParam(c *gin.Context) int {
	limit := h.cfg.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return -1
		}
		limit = parsed
	}
	if h.cfg.MaxLimit > 0 && limit > h.cfg.MaxLimit {
		limit = h.cfg.MaxLimit
	}
	return limit
}

func (h *EventsHandler) GetRecent(c *gin.Context) {
	limit := h.limitParam(c)
	if limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	events := h.ledger.Recent(limit)
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
		"total":  h.ledger.Total(),
	})
}

// GetHistory reads from the database instead of the in-memory ring, so
// it sees events that outlived the ledger's capacity.
func (h *EventsHandler) GetHistory(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "event persistence is disabled"})
		return
	}

	limit := h.limitParam(c)
	if limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	events, err := h.repo.GetRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

func (h *EventsHandler) GetByService(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "event persistence is disabled"})
		return
	}

	limit := h.limitParam(c)
	if limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	service := c.Param("service")
	from, to, err := timeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.repo.GetByService(c.Request.Context(), service, from, to, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

func (h *EventsHandler) GetStats(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "event persistence is disabled"})
		return
	}

	service := c.Param("service")
	from, to, err := timeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stats, err := h.repo.GetStats(c.Request.Context(), service, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func timeRange(c *gin.Context) (time.Time, time.Time, error) {
	to := time.Now()
	from := to.Add(-24 * time.Hour)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, err
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, err
		}
		to = parsed
	}

	return from, to, nil
}
