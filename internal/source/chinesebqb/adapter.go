package chinesebqb

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gxPan1006/meme/internal/domain"
)

const (
	SourceID   = "chinesebqb"
	SourceName = "ChineseBQB"
)

// Adapter implements the Source interface over a local checkout of the
// ChineseBQB repository. Every image file becomes one catalog record, with
// the category taken from its parent directory.
type Adapter struct {
	repoPath string
	baseURL  string
}

// NewAdapter creates a new ChineseBQB adapter. When baseURL is non-empty,
// record URLs point at the hosted copy of the repository instead of the
// local files.
func NewAdapter(repoPath, baseURL string) *Adapter {
	return &Adapter{
		repoPath: repoPath,
		baseURL:  baseURL,
	}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return SourceID
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	return SourceName
}

// Fetch walks the repository and returns catalog records sorted by category
// and name.
func (a *Adapter) Fetch(ctx context.Context, limit int) ([]domain.MemeRecord, error) {
	if _, err := os.Stat(a.repoPath); err != nil {
		return nil, fmt.Errorf("repository path: %w", err)
	}

	var records []domain.MemeRecord
	err := filepath.Walk(a.repoPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := info.Name()
		if info.IsDir() {
			if strings.HasPrefix(name, ".") && path != a.repoPath {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !isImageFile(name) {
			return nil
		}

		// Category comes from the parent directory; files sitting at the
		// repository root fall into 未分类.
		category := filepath.Base(filepath.Dir(path))
		if category == filepath.Base(a.repoPath) {
			category = "未分类"
		}

		relPath, err := filepath.Rel(a.repoPath, path)
		if err != nil {
			return err
		}
		records = append(records, domain.MemeRecord{
			Name:     name,
			Category: category,
			URL:      a.recordURL(path, relPath),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk repository: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Category != records[j].Category {
			return records[i].Category < records[j].Category
		}
		return records[i].Name < records[j].Name
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Count returns the total number of records the repository would yield.
func (a *Adapter) Count(ctx context.Context) (int, error) {
	records, err := a.Fetch(ctx, 0)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (a *Adapter) recordURL(absPath, relPath string) string {
	if a.baseURL == "" {
		return absPath
	}
	segments := strings.Split(filepath.ToSlash(relPath), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(a.baseURL, "/") + "/" + strings.Join(segments, "/")
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}
