package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gxPan1006/meme/internal/service"
)

// writeServiceError maps retrieval and generation failures to their HTTP
// contract: no match 404, no inspiration 422, provider failure 502, broken
// serving index and everything else 500.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoMatch):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "no_match",
			"message": err.Error(),
		})
	case errors.Is(err, service.ErrNoInspiration):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "no_inspiration",
			"message": err.Error(),
		})
	case errors.Is(err, service.ErrIndexUnavailable):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "index_not_ready",
			"message": err.Error(),
		})
	default:
		if apiErr, ok := service.AsAPIError(err); ok {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "provider_error",
				"message": apiErr.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
	}
}
