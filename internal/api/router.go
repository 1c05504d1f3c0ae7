package api

import (
	"github.com/gin-gonic/gin"
	"github.com/gxPan1006/meme/internal/api/handler"
	"github.com/gxPan1006/meme/internal/api/middleware"
	"github.com/gxPan1006/meme/internal/logger"
	"github.com/gxPan1006/meme/internal/service"
)

// Config collects what the router needs beyond the services themselves.
type Config struct {
	Mode      string
	CORS      middleware.CORSConfig
	Analyze   *handler.AnalyzeConfig
	IndexPath string
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	searchService *service.SearchService,
	analyzeService *service.AnalyzeService,
	log *logger.Logger,
	cfg *Config,
) *gin.Engine {
	if cfg == nil {
		cfg = &Config{}
	}

	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(cfg.CORS))

	// Create handlers
	healthHandler := handler.NewHealthHandler(searchService)
	searchHandler := handler.NewSearchHandler(searchService)
	analyzeHandler := handler.NewAnalyzeHandler(analyzeService, cfg.Analyze)
	generateHandler := handler.NewGenerateHandler(searchService)
	adminHandler := handler.NewAdminHandler(searchService, cfg.IndexPath, log)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.POST("/search", searchHandler.TextSearch)
		v1.POST("/match", searchHandler.Match)
		v1.POST("/analyze", analyzeHandler.Analyze)
		v1.POST("/generate", generateHandler.Generate)

		// Admin
		admin := v1.Group("/admin")
		{
			admin.POST("/index/build", adminHandler.BuildIndex)
			admin.GET("/index/status", adminHandler.BuildStatus)
		}
	}

	return r
}
