package main

import (
	"fmt"

	"github.com/gxPan1006/meme/internal/service"
	"github.com/spf13/cobra"
)

var filterCmd = &cobra.Command{
	Use:   "filter <input.json> <output.json>",
	Short: "Filter GIF entries from a meme catalog",
	Long: `Read a catalog JSON file and write a copy with every animated entry
removed, judged by the .gif extension on the name or URL field. Entries
that cannot be parsed are kept as-is.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := service.FilterStaticMemes(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d static entries to %s\n", stats.Kept, args[1])
		return nil
	},
}
