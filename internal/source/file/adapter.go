package file

import (
	"context"

	"github.com/gxPan1006/meme/internal/domain"
	"github.com/gxPan1006/meme/internal/repository"
)

const (
	SourceID   = "file"
	SourceName = "JSON catalog file"
)

// Adapter implements the Source interface over an existing catalog JSON
// file, either a bare array or a {data: [...]} wrapper. It is the passthrough
// source for catalogs produced by crawlers outside this pipeline.
type Adapter struct {
	path string
}

// NewAdapter creates a new file adapter for the given catalog path.
func NewAdapter(path string) *Adapter {
	return &Adapter{path: path}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return SourceID
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	return SourceName
}

// Fetch reads the catalog file and returns its records in file order.
func (a *Adapter) Fetch(ctx context.Context, limit int) ([]domain.MemeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := repository.LoadCatalog(a.path)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
