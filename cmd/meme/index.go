package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gxPan1006/meme/internal/logger"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <analysis.json> [output]",
	Short: "Build the vector index from analysis results",
	Long: `Embed every analyzed record and persist the vector index next to its
sidecar metadata file. Error-marked records and records with no usable
analysis text are left out. The output defaults to index.path from the
config.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(args)
	},
}

func runIndex(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	outputPath := cfg.Index.Path
	if len(args) > 1 {
		outputPath = args[1]
	}

	log := logger.GetDefault()
	searchService, err := newSearchService(cfg, log)
	if err != nil {
		return fmt.Errorf("init search service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	count, err := searchService.BuildIndex(ctx, args[0], outputPath)
	if err != nil {
		return err
	}

	fmt.Printf("Built index with %d memes -> %s\n", count, outputPath)
	return nil
}
