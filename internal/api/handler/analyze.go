package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gxPan1006/meme/internal/logger"
	"github.com/gxPan1006/meme/internal/service"
)

// AnalyzeConfig holds the defaults applied when an analyze request leaves
// fields unset.
type AnalyzeConfig struct {
	// KeyConfigured reports whether a provider key is available from
	// configuration. Requests may still supply their own.
	KeyConfigured bool
	// ImageMode is the default submission mode, "remote" or "data".
	ImageMode string
	// DownloadTimeout bounds data-mode downloads.
	DownloadTimeout time.Duration
}

// AnalyzeHandler handles single-image analysis requests.
type AnalyzeHandler struct {
	analyzeService *service.AnalyzeService

	keyConfigured   bool
	imageMode       string
	downloadTimeout time.Duration
}

// NewAnalyzeHandler creates a new analyze handler.
// Parameters:
//   - analyzeService: analysis service instance.
//   - cfg: request defaults; nil uses remote mode with a 15s download timeout.
//
// Returns:
//   - *AnalyzeHandler: initialized handler.
func NewAnalyzeHandler(analyzeService *service.AnalyzeService, cfg *AnalyzeConfig) *AnalyzeHandler {
	h := &AnalyzeHandler{
		analyzeService:  analyzeService,
		imageMode:       "remote",
		downloadTimeout: 15 * time.Second,
	}
	if cfg != nil {
		h.keyConfigured = cfg.KeyConfigured
		if cfg.ImageMode != "" {
			h.imageMode = cfg.ImageMode
		}
		if cfg.DownloadTimeout > 0 {
			h.downloadTimeout = cfg.DownloadTimeout
		}
	}
	return h
}

// AnalyzeRequest represents the analyze API request.
type AnalyzeRequest struct {
	URL             string  `json:"url"`
	ImageMode       string  `json:"image_mode"`
	DownloadTimeout float64 `json:"download_timeout"` // seconds
	APIKey          string  `json:"api_key"`
	Prompt          string  `json:"prompt"`
	ExtraText       string  `json:"extra_text"`
}

// Analyze handles POST /api/v1/analyze. The error contract is fixed: bad
// bodies get 400 with "invalid json" or "missing or invalid 'url' field",
// a missing provider key gets 500 "configuration_error", any analysis
// failure gets 500 "analysis_failed".
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "url" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid 'url' field"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid 'url' field"})
		return
	}

	if !h.keyConfigured && req.APIKey == "" {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "configuration_error",
			"message": "ark.api_key is not configured; set ARK_API_KEY or pass api_key in the request",
		})
		return
	}

	imageMode := req.ImageMode
	if imageMode == "" {
		imageMode = h.imageMode
	}
	timeout := h.downloadTimeout
	if req.DownloadTimeout > 0 {
		timeout = time.Duration(req.DownloadTimeout * float64(time.Second))
	}

	var opts *service.AnalyzeOptions
	if req.APIKey != "" || req.Prompt != "" || req.ExtraText != "" {
		opts = &service.AnalyzeOptions{
			Prompt:    req.Prompt,
			ExtraText: req.ExtraText,
			APIKey:    req.APIKey,
		}
	}

	analysis, err := h.analyzeService.AnalyzeOne(ctx, req.URL, imageMode, timeout, opts)
	if err != nil {
		logger.CtxError(ctx, "Analysis failed: url=%s, error=%v", req.URL, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "analysis_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}
