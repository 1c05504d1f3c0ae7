package staging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gxPan1006/meme/internal/domain"
)

const (
	// ManifestFileName is the JSONL manifest file name in staging sources.
	ManifestFileName = "manifest.jsonl"
	// ImagesDir is the directory name for staged images.
	ImagesDir = "images"
)

// ManifestItem represents one line of a crawler manifest.
type ManifestItem struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Category  string `json:"category"`
	SourceURL string `json:"source_url"`
	Format    string `json:"format"`
	CrawledAt string `json:"crawled_at"`
}

// Adapter implements the Source interface for a crawler staging directory:
// basePath/<sourceID>/manifest.jsonl next to basePath/<sourceID>/images.
type Adapter struct {
	basePath string
	sourceID string
}

// NewAdapter creates a new staging adapter.
// Parameters:
//   - basePath: base path to the staging directory.
//   - sourceID: identifier of the crawler subdirectory.
// Returns:
//   - *Adapter: initialized staging adapter.
func NewAdapter(basePath, sourceID string) *Adapter {
	return &Adapter{
		basePath: basePath,
		sourceID: sourceID,
	}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return "staging:" + a.sourceID
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	return fmt.Sprintf("Staging (%s)", a.sourceID)
}

// Fetch reads the manifest and returns one catalog record per staged image,
// sorted by name. Malformed manifest lines and entries whose image file is
// missing are skipped.
func (a *Adapter) Fetch(ctx context.Context, limit int) ([]domain.MemeRecord, error) {
	stagingPath := filepath.Join(a.basePath, a.sourceID)
	manifestPath := filepath.Join(stagingPath, ManifestFileName)
	imagesPath := filepath.Join(stagingPath, ImagesDir)

	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("manifest file not found: %s. Run the crawler first to populate staging", manifestPath)
	}
	file, err := os.Open(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()

	var records []domain.MemeRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item ManifestItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			// Skip malformed lines
			continue
		}
		if item.Filename == "" {
			continue
		}

		localPath := filepath.Join(imagesPath, item.Filename)
		url := item.SourceURL
		if url == "" {
			url = localPath
		}
		if _, err := os.Stat(localPath); os.IsNotExist(err) {
			// Skip if the staged image never landed
			continue
		}

		records = append(records, domain.MemeRecord{
			Name:     item.Filename,
			Category: item.Category,
			URL:      url,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
