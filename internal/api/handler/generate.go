package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gxPan1006/meme/internal/logger"
	"github.com/gxPan1006/meme/internal/service"
)

// GenerateHandler handles meme generation requests.
type GenerateHandler struct {
	searchService *service.SearchService
}

// NewGenerateHandler creates a new generate handler.
// Parameters:
//   - searchService: search service instance driving the generation chain.
//
// Returns:
//   - *GenerateHandler: initialized handler.
func NewGenerateHandler(searchService *service.SearchService) *GenerateHandler {
	return &GenerateHandler{
		searchService: searchService,
	}
}

// Generate handles POST /api/v1/generate. The chain's failure points map to
// distinct statuses: nothing matched 404, matched but no design inspiration
// 422, provider failure 502.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *GenerateHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	var req service.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	result, err := h.searchService.Generate(ctx, &req)
	if err != nil {
		logger.CtxWarn(ctx, "Generation failed: url=%s, error=%v", req.URL, err)
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
