package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gxPan1006/meme/internal/domain"
	"github.com/gxPan1006/meme/internal/logger"
	"github.com/gxPan1006/meme/internal/service"
)

// AdminHandler handles admin operations. One index build runs at a time;
// concurrent requests are rejected with a conflict.
type AdminHandler struct {
	searchService    *service.SearchService
	defaultIndexPath string
	logger           *logger.Logger

	mu  sync.Mutex
	job *domain.IndexJob // nil until the first build
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - searchService: search service owning index builds.
//   - defaultIndexPath: artifact destination when a request omits output_path.
//   - log: logger instance.
//
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(searchService *service.SearchService, defaultIndexPath string, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		searchService:    searchService,
		defaultIndexPath: defaultIndexPath,
		logger:           log,
	}
}

// BuildIndexRequest represents the index build API request.
type BuildIndexRequest struct {
	AnalysisPath string `json:"analysis_path" binding:"required"`
	OutputPath   string `json:"output_path"`
}

// BuildIndexResponse represents the index build API response.
type BuildIndexResponse struct {
	Message    string `json:"message"`
	Count      int    `json:"count"`
	OutputPath string `json:"output_path"`
}

// BuildStatusResponse represents the build job state together with the
// serving index.
type BuildStatusResponse struct {
	IsRunning bool                `json:"is_running"`
	LastJob   *domain.IndexJob    `json:"last_job,omitempty"`
	Index     *service.IndexStats `json:"index"`
}

// BuildIndex handles POST /api/v1/admin/index/build. The build runs in the
// request goroutine; the artifact it writes is picked up on the next process
// start, the serving index is left alone.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *AdminHandler) BuildIndex(c *gin.Context) {
	ctx := c.Request.Context()

	var req BuildIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.CtxWarn(ctx, "Invalid build request: client_ip=%s, error=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}
	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = h.defaultIndexPath
	}

	started := time.Now()
	h.mu.Lock()
	if h.job != nil && h.job.Status == domain.JobStatusRunning {
		h.mu.Unlock()
		logger.CtxWarn(ctx, "Build request rejected: already running, client_ip=%s", c.ClientIP())
		c.JSON(http.StatusConflict, gin.H{
			"error":   "build_in_progress",
			"message": "an index build is already running",
		})
		return
	}
	job := &domain.IndexJob{
		Status:       domain.JobStatusRunning,
		AnalysisPath: req.AnalysisPath,
		OutputPath:   outputPath,
		StartedAt:    &started,
	}
	h.job = job
	h.mu.Unlock()

	logger.CtxInfo(ctx, "Starting index build: analysis_path=%s, output_path=%s, client_ip=%s",
		req.AnalysisPath, outputPath, c.ClientIP())

	// Embedding the whole catalog outlives most client timeouts, so the build
	// runs on a background context carrying its own job ID.
	buildCtx := h.logger.WithContext(context.Background())
	buildCtx = logger.WithFields(buildCtx, logger.Fields{
		logger.FieldJobID:     uuid.New().String(),
		logger.FieldComponent: "index-build",
	})

	count, err := h.searchService.BuildIndex(buildCtx, req.AnalysisPath, outputPath)
	completed := time.Now()
	duration := completed.Sub(started)

	h.mu.Lock()
	job.IndexedCount = count
	job.CompletedAt = &completed
	if err != nil {
		job.Status = domain.JobStatusFailed
		job.Error = err.Error()
	} else {
		job.Status = domain.JobStatusCompleted
	}
	h.mu.Unlock()

	if err != nil {
		logger.With(logger.Fields{
			logger.FieldDurationMs: duration.Milliseconds(),
		}).Error(ctx, "Index build failed: analysis_path=%s, error=%v", req.AnalysisPath, err)
		writeServiceError(c, err)
		return
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: duration.Milliseconds(),
		logger.FieldCount:      count,
	}).Info(ctx, "Index build completed: output_path=%s", outputPath)

	c.JSON(http.StatusOK, BuildIndexResponse{
		Message:    "Index build completed successfully",
		Count:      count,
		OutputPath: outputPath,
	})
}

// BuildStatus handles GET /api/v1/admin/index/status.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *AdminHandler) BuildStatus(c *gin.Context) {
	h.mu.Lock()
	var last *domain.IndexJob
	if h.job != nil {
		snapshot := *h.job
		last = &snapshot
	}
	h.mu.Unlock()

	c.JSON(http.StatusOK, BuildStatusResponse{
		IsRunning: last != nil && last.Status == domain.JobStatusRunning,
		LastJob:   last,
		Index:     h.searchService.Stats(c.Request.Context()),
	})
}
