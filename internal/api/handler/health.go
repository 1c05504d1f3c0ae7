package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gxPan1006/meme/internal/service"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	searchService *service.SearchService
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(searchService *service.SearchService) *HealthHandler {
	return &HealthHandler{
		searchService: searchService,
	}
}

// Health returns the service status together with the serving index state.
// A process with a broken index still reports ok here; the index block
// carries the load error so probes can tell the difference.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"index":  h.searchService.Stats(c.Request.Context()),
	})
}
