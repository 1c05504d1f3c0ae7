package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gxPan1006/meme/internal/logger"
	"github.com/gxPan1006/meme/internal/service"
	"github.com/spf13/cobra"
)

var (
	searchIndexPath string
	searchTopK      int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the meme index by text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args[0])
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchIndexPath, "index", "", "index file path (defaults to index.path)")
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 3, "number of results to return")
}

func runSearch(cmd *cobra.Command, query string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("index") {
		cfg.Index.Path = searchIndexPath
	}

	searchService, err := newSearchService(cfg, logger.GetDefault())
	if err != nil {
		return fmt.Errorf("init search service: %w", err)
	}

	resp, err := searchService.TextSearch(context.Background(), &service.SearchRequest{
		Query: query,
		TopK:  searchTopK,
	})
	if err != nil {
		return err
	}

	for i, result := range resp.Results {
		fmt.Printf("\n[%d] %s (score: %.4f)\n", i+1, result.Name, result.Score)
		fmt.Printf("    URL: %s\n", result.URL)
		fmt.Printf("    情绪: %s\n", emotionPreview(result.Analysis.Emotion))
	}
	return nil
}

// emotionPreview renders the emotion tags for terminal output, truncated
// so one oversized analysis does not flood the result list.
func emotionPreview(emotion []string) string {
	s := strings.Join(emotion, "、")
	runes := []rune(s)
	if len(runes) > 100 {
		return string(runes[:100]) + "..."
	}
	return s
}
