// Package index implements the in-process vector index over analyzed meme
// records: one-shot build from analysis output, dot-product nearest-neighbor
// search and paired-file persistence (records JSON next to a compressed
// vector container).
package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/gxPan1006/meme/internal/domain"
)

// Embedder is the slice of the embedding provider the index needs. Batch
// embedding is used at build time, single-query embedding at search time.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex holds parallel slices of records, their normalized query texts
// and one embedding row per record. LoadRecords+Build and LoadFile are the
// two initializers; after either succeeds the index is read-only and safe
// for concurrent Search.
//
// Scores are plain dot products. Providers are expected to return normalized
// vectors, in which case the dot product equals cosine similarity; the index
// assumes this and does not re-normalize.
type VectorIndex struct {
	embedder Embedder

	records []domain.MemeRecord
	texts   []string
	matrix  [][]float32
}

// New returns an empty index backed by the given embedder.
func New(embedder Embedder) *VectorIndex {
	return &VectorIndex{embedder: embedder}
}

// LoadRecords replaces the index contents with the indexable subset of
// records: analyses carrying an error marker or normalizing to empty text
// are dropped here and can never surface in search results. Any previously
// built matrix is discarded.
func (vi *VectorIndex) LoadRecords(records []domain.MemeRecord) {
	vi.records = nil
	vi.texts = nil
	vi.matrix = nil
	for _, rec := range records {
		if rec.Analysis.IsError() {
			continue
		}
		text := rec.Analysis.QueryText()
		if text == "" {
			continue
		}
		vi.records = append(vi.records, rec)
		vi.texts = append(vi.texts, text)
	}
}

// Count reports how many records are loaded.
func (vi *VectorIndex) Count() int {
	return len(vi.records)
}

// Dimensions reports the embedding width, or 0 before Build/LoadFile.
func (vi *VectorIndex) Dimensions() int {
	if len(vi.matrix) == 0 {
		return 0
	}
	return len(vi.matrix[0])
}

// Ready reports whether the index holds an embedding matrix and can serve
// searches.
func (vi *VectorIndex) Ready() bool {
	return vi.matrix != nil
}

// Build embeds all loaded texts as one ordered batch and stores the matrix.
// Row i corresponds to record i.
func (vi *VectorIndex) Build(ctx context.Context) error {
	if len(vi.texts) == 0 {
		return fmt.Errorf("build: %w", ErrNoRecords)
	}
	matrix, err := vi.embedder.EmbedBatch(ctx, vi.texts)
	if err != nil {
		return fmt.Errorf("build: embed %d texts: %w", len(vi.texts), err)
	}
	if len(matrix) != len(vi.texts) {
		return fmt.Errorf("build: provider returned %d rows for %d texts", len(matrix), len(vi.texts))
	}
	vi.matrix = matrix
	return nil
}

// Search embeds the query, scores it against every row and returns the topK
// best records in descending score order. Equal scores keep their insertion
// order. topK larger than the record count returns everything; topK <= 0
// returns no results.
func (vi *VectorIndex) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if vi.matrix == nil {
		return nil, fmt.Errorf("search: %w", ErrNotBuilt)
	}
	if topK <= 0 {
		return []domain.SearchResult{}, nil
	}
	qv, err := vi.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}
	if len(qv) != vi.Dimensions() {
		return nil, fmt.Errorf("search: query dimension %d does not match index dimension %d", len(qv), vi.Dimensions())
	}

	scores := make([]float32, len(vi.matrix))
	for i, row := range vi.matrix {
		scores[i] = dot(row, qv)
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topK > len(order) {
		topK = len(order)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, i := range order[:topK] {
		results = append(results, domain.SearchResult{
			MemeRecord: vi.records[i],
			Score:      scores[i],
		})
	}
	return results, nil
}

// FindSimilarFromAnalysis searches with the normalized text of an analysis.
// An analysis that normalizes to empty text yields no results and never
// reaches the embedder.
func (vi *VectorIndex) FindSimilarFromAnalysis(ctx context.Context, analysis domain.Analysis, topK int) ([]domain.SearchResult, error) {
	query := analysis.QueryText()
	if query == "" {
		return []domain.SearchResult{}, nil
	}
	return vi.Search(ctx, query, topK)
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
