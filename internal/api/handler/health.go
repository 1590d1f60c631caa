package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RecordCounter reports how many fingerprints are loaded.
type RecordCounter interface {
	Len() int
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store RecordCounter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store RecordCounter) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.store != nil {
		resp["fingerprints"] = h.store.Len()
	}
	c.JSON(http.StatusOK, resp)
}
