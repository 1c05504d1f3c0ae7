package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gxPan1006/meme/internal/config"
	"github.com/gxPan1006/meme/internal/index"
	"github.com/gxPan1006/meme/internal/logger"
	"github.com/gxPan1006/meme/internal/service"
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "meme",
	Short: "Meme tagging, retrieval and generation toolkit",
	Long: `meme is a pipeline for building a searchable meme library:
catalog images from a source, filter out animated entries, tag each
image with a vision-language model, build a vector index over the tags,
then search the index by text or generate new memes from a reference
image. The serve command exposes the same operations over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (defaults to ./configs/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(generateCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func newAnalyzeService(cfg *config.Config, log *logger.Logger) *service.AnalyzeService {
	vlm := service.NewVLMService(&service.VLMConfig{
		APIKey:  cfg.Ark.APIKey,
		APIURL:  cfg.Ark.APIURL,
		Model:   cfg.Ark.Model,
		Prompt:  cfg.Ark.Prompt,
		Timeout: time.Duration(cfg.Ark.TimeoutSeconds) * time.Second,
	}, log)
	fetcher := service.NewImageFetcher(time.Duration(cfg.Analysis.DownloadTimeoutSeconds) * time.Second)
	return service.NewAnalyzeService(vlm, fetcher, log)
}

func newImageGenService(cfg *config.Config, log *logger.Logger) *service.ImageGenService {
	return service.NewImageGenService(&service.ImageGenConfig{
		APIKey:    cfg.Ark.APIKey,
		APIURL:    cfg.Generation.APIURL,
		Model:     cfg.Generation.Model,
		Size:      cfg.Generation.Size,
		Watermark: cfg.Generation.Watermark,
		Timeout:   time.Duration(cfg.Generation.TimeoutSeconds) * time.Second,
	}, log)
}

// newSearchService wires the full retrieval stack. The serving index is
// loaded lazily from cfg.Index.Path on first use.
func newSearchService(cfg *config.Config, log *logger.Logger) (*service.SearchService, error) {
	embedder, err := service.NewEmbeddingProviderFromConfig(&cfg.Embedding)
	if err != nil {
		return nil, err
	}
	return service.NewSearchService(
		index.New(embedder),
		embedder,
		newAnalyzeService(cfg, log),
		newImageGenService(cfg, log),
		log,
		&service.SearchConfig{
			IndexPath:       cfg.Index.Path,
			ImageMode:       cfg.Analysis.ImageMode,
			DownloadTimeout: time.Duration(cfg.Analysis.DownloadTimeoutSeconds) * time.Second,
			InstructPrompt:  cfg.Ark.InstructPrompt,
		},
	), nil
}

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}
