package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/fleet-autoscaler/api/middleware"
	"github.com/OldStager01/fleet-autoscaler/internal/logger"
	"github.com/OldStager01/fleet-autoscaler/internal/thresholds"
)

type ThresholdsHandler struct {
	store *thresholds.Store
}

func NewThresholdsHandler(store *thresholds.Store) *ThresholdsHandler {
	return &ThresholdsHandler{store: store}
}

func (h *ThresholdsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}

// Update applies a partial threshold change. The store validates the
// merged result before swapping, so a rejected request leaves the
// active policy untouched.
func (h *ThresholdsHandler) Update(c *gin.Context) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	updated, err := h.store.Update(fields)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, thresholds.ErrUnknownField) {
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(status, gin.H{"error": "validation failed: " + err.Error()})
		return
	}

	logger.WithFields(map[string]interface{}{
		"username": middleware.GetUsername(c),
		"fields":   fields,
	}).Info("Thresholds updated")

	c.JSON(http.StatusOK, updated)
}
