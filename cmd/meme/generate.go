package main

import (
	"context"
	"fmt"

	"github.com/gxPan1006/meme/internal/logger"
	"github.com/gxPan1006/meme/internal/service"
	"github.com/spf13/cobra"
)

var (
	generateText          string
	generateNeedReference bool
	generateSize          string
)

var generateCmd = &cobra.Command{
	Use:   "generate <image-url>",
	Short: "Generate a meme in the style of the closest match",
	Long: `Analyze the input image, find the closest indexed meme and feed its
design inspiration to the image generator. With --need-reference the
matched meme image is passed alongside the input as a style reference,
otherwise the inspiration text alone drives the prompt.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(args[0])
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateText, "text", "", "extra requirement forwarded to the analysis prompt")
	generateCmd.Flags().BoolVar(&generateNeedReference, "need-reference", false, "pass the matched meme image as a style reference")
	generateCmd.Flags().StringVar(&generateSize, "size", "", "generated image size (defaults to generation.size)")
}

func runGenerate(imageURL string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Ark.APIKey == "" {
		return fmt.Errorf("ark.api_key is not configured; set ARK_API_KEY")
	}

	searchService, err := newSearchService(cfg, logger.GetDefault())
	if err != nil {
		return fmt.Errorf("init search service: %w", err)
	}

	resp, err := searchService.Generate(context.Background(), &service.GenerateRequest{
		URL:           imageURL,
		Text:          generateText,
		NeedReference: generateNeedReference,
		Size:          generateSize,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Matched: %s (score: %.4f)\n", resp.Matched.Name, resp.Score)
	fmt.Printf("Generated: %s\n", resp.GeneratedImageURL)
	return nil
}
