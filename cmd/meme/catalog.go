package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gxPan1006/meme/internal/repository"
	"github.com/gxPan1006/meme/internal/source"
	"github.com/gxPan1006/meme/internal/source/chinesebqb"
	"github.com/gxPan1006/meme/internal/source/file"
	"github.com/gxPan1006/meme/internal/source/staging"
	"github.com/spf13/cobra"
)

var (
	catalogSource string
	catalogFrom   string
	catalogLimit  int
)

var catalogCmd = &cobra.Command{
	Use:   "catalog <output.json>",
	Short: "Build a meme catalog from a data source",
	Long: `Walk a data source and write its images as a catalog JSON file, one
record per image with name, category and URL. Sources:

  chinesebqb    a ChineseBQB repository checkout (sources.chinesebqb.repo_path)
  staging:<id>  a crawler staging directory (requires --from)
  file          an existing catalog or results JSON file (requires --from)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalog(args[0])
	},
}

func init() {
	catalogCmd.Flags().StringVar(&catalogSource, "source", "chinesebqb", "data source: chinesebqb, staging:<id> or file")
	catalogCmd.Flags().StringVar(&catalogFrom, "from", "", "source path (repo checkout, staging dir or JSON file)")
	catalogCmd.Flags().IntVar(&catalogLimit, "limit", 0, "maximum number of entries (default: all)")
}

func runCatalog(outputPath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var src source.Source
	switch {
	case catalogSource == "chinesebqb":
		repoPath := cfg.Sources.ChineseBQB.RepoPath
		if catalogFrom != "" {
			repoPath = catalogFrom
		}
		src = chinesebqb.NewAdapter(repoPath, cfg.Sources.ChineseBQB.BaseURL)
	case strings.HasPrefix(catalogSource, "staging:"):
		if catalogFrom == "" {
			return fmt.Errorf("--from is required for source %q", catalogSource)
		}
		src = staging.NewAdapter(catalogFrom, strings.TrimPrefix(catalogSource, "staging:"))
	case catalogSource == "file":
		if catalogFrom == "" {
			return fmt.Errorf("--from is required for source %q", catalogSource)
		}
		src = file.NewAdapter(catalogFrom)
	default:
		return fmt.Errorf("unknown source type: %s", catalogSource)
	}

	records, err := src.Fetch(context.Background(), catalogLimit)
	if err != nil {
		return fmt.Errorf("fetch from %s: %w", src.GetSourceID(), err)
	}
	if err := repository.WriteJSON(outputPath, records); err != nil {
		return err
	}

	fmt.Printf("Wrote %d entries from %s to %s\n", len(records), src.GetDisplayName(), outputPath)
	return nil
}
