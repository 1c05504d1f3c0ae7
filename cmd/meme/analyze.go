package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gxPan1006/meme/internal/logger"
	"github.com/gxPan1006/meme/internal/service"
	"github.com/spf13/cobra"
)

var (
	analyzeAPIKey          string
	analyzeSleep           float64
	analyzeLimit           int
	analyzeResume          bool
	analyzeImageMode       string
	analyzeDownloadTimeout float64
	analyzePrompt          string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <catalog.json> <output.json>",
	Short: "Analyze catalog images with the vision-language model",
	Long: `Run every catalog entry through the vision-language model and write
the tagged records to the output file. The output is rewritten after
each item, so an interrupted run loses at most the item in flight and
--resume picks up where it stopped. Provider failures are recorded as
error-marked entries and never abort the run.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, args[0], args[1])
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "API key (defaults to ARK_API_KEY env var)")
	analyzeCmd.Flags().Float64Var(&analyzeSleep, "sleep", 0, "sleep seconds between requests")
	analyzeCmd.Flags().IntVar(&analyzeLimit, "limit", 0, "limit number of items to process (default: all)")
	analyzeCmd.Flags().BoolVar(&analyzeResume, "resume", false, "skip items already in the output file")
	analyzeCmd.Flags().StringVar(&analyzeImageMode, "image-mode", "remote", "use remote URL or embed as base64 data URL (remote or data)")
	analyzeCmd.Flags().Float64Var(&analyzeDownloadTimeout, "download-timeout", 15, "timeout for image download in seconds")
	analyzeCmd.Flags().StringVar(&analyzePrompt, "prompt", "", "analysis prompt override")
}

func runAnalyze(cmd *cobra.Command, inputPath, outputPath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags override config only when set explicitly.
	imageMode := cfg.Analysis.ImageMode
	if cmd.Flags().Changed("image-mode") {
		imageMode = analyzeImageMode
	}
	downloadTimeout := time.Duration(cfg.Analysis.DownloadTimeoutSeconds) * time.Second
	if cmd.Flags().Changed("download-timeout") {
		downloadTimeout = time.Duration(analyzeDownloadTimeout * float64(time.Second))
	}
	sleep := time.Duration(cfg.Analysis.SleepSeconds * float64(time.Second))
	if cmd.Flags().Changed("sleep") {
		sleep = time.Duration(analyzeSleep * float64(time.Second))
	}

	if cfg.Ark.APIKey == "" && analyzeAPIKey == "" {
		return fmt.Errorf("ark.api_key is not configured; set ARK_API_KEY or pass --api-key")
	}

	log := logger.GetDefault()
	analyzeService := newAnalyzeService(cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	stats, err := analyzeService.AnalyzeBatch(ctx, inputPath, outputPath, &service.BatchOptions{
		Limit:           analyzeLimit,
		Resume:          analyzeResume,
		ImageMode:       imageMode,
		DownloadTimeout: downloadTimeout,
		Sleep:           sleep,
		Prompt:          analyzePrompt,
		APIKey:          analyzeAPIKey,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Analyzed %d of %d items (skipped %d, failed %d) -> %s\n",
		stats.ProcessedItems, stats.TotalItems, stats.SkippedItems, stats.FailedItems, outputPath)
	return nil
}
