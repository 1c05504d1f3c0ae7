package source

import (
	"context"

	"github.com/gxPan1006/meme/internal/domain"
)

// Source defines the interface for meme catalog sources. A source turns some
// external collection (a repository checkout, a crawler staging area) into
// catalog records ready for analysis.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	// Parameters: none.
	// Returns:
	//   - string: stable source identifier.
	GetSourceID() string

	// GetDisplayName returns a human-readable name for this source.
	// Parameters: none.
	// Returns:
	//   - string: display-friendly source name.
	GetDisplayName() string

	// Fetch returns catalog records from this source in a stable order.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - limit: maximum number of records, or <= 0 for all.
	// Returns:
	//   - []domain.MemeRecord: catalog records with empty analysis fields.
	//   - error: non-nil if the source cannot be read.
	Fetch(ctx context.Context, limit int) ([]domain.MemeRecord, error)
}
