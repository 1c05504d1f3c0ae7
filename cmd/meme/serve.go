package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gxPan1006/meme/internal/api"
	"github.com/gxPan1006/meme/internal/api/handler"
	"github.com/gxPan1006/meme/internal/api/middleware"
	"github.com/gxPan1006/meme/internal/logger"
	"github.com/spf13/cobra"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server exposing analysis, search, match and
generation endpoints plus admin index rebuild. The vector index is
loaded lazily on the first request that needs it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "host to bind to (defaults to server.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (defaults to server.port)")
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	host := cfg.Server.Host
	if cmd.Flags().Changed("host") {
		host = serveHost
	}
	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port = servePort
	}

	log := logger.GetDefault()

	searchService, err := newSearchService(cfg, log)
	if err != nil {
		return fmt.Errorf("init search service: %w", err)
	}
	analyzeService := newAnalyzeService(cfg, log)

	router := api.SetupRouter(searchService, analyzeService, log, &api.Config{
		Mode: cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		Analyze: &handler.AnalyzeConfig{
			KeyConfigured:   cfg.Ark.APIKey != "",
			ImageMode:       cfg.Analysis.ImageMode,
			DownloadTimeout: time.Duration(cfg.Analysis.DownloadTimeoutSeconds) * time.Second,
		},
		IndexPath: cfg.Index.Path,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logger.Fields{
			"host": host,
			"port": port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited")
	return nil
}
