package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gxPan1006/meme/internal/domain"
	"github.com/gxPan1006/meme/internal/index"
	"github.com/gxPan1006/meme/internal/logger"
	"github.com/gxPan1006/meme/internal/prompts"
	"github.com/gxPan1006/meme/internal/repository"
)

// SearchConfig holds configuration for the retrieval service.
type SearchConfig struct {
	IndexPath       string        // persisted index artifact served to queries
	ImageMode       string        // "remote" or "data" for submitted images
	DownloadTimeout time.Duration // bound for data-mode downloads
	InstructPrompt  string        // analysis prompt used by the generation chain
	DefaultTopK     int           // applied when a request leaves top_k unset
	MaxTopK         int           // ceiling for any request
}

// SearchService serves text and image retrieval over the vector index and
// drives the meme generation chain. The serving index is loaded lazily from
// the configured path on first use; a failed load sticks until restart.
type SearchService struct {
	index    *index.VectorIndex
	embedder EmbeddingProvider
	analyze  *AnalyzeService
	imageGen *ImageGenService
	logger   *logger.Logger

	indexPath       string
	imageMode       string
	downloadTimeout time.Duration
	instructPrompt  string
	defaultTopK     int
	maxTopK         int

	loadOnce sync.Once
	loadErr  error
}

// NewSearchService creates a new retrieval service.
// Parameters:
//   - idx: serving vector index, usually empty until the lazy load.
//   - embedding: embedding provider, used when rebuilding indexes.
//   - analyze: analysis service for submitted images.
//   - imageGen: image generation client.
//   - log: logger instance.
//   - cfg: retrieval configuration settings.
//
// Returns:
//   - *SearchService: initialized retrieval service.
func NewSearchService(
	idx *index.VectorIndex,
	embedding EmbeddingProvider,
	analyze *AnalyzeService,
	imageGen *ImageGenService,
	log *logger.Logger,
	cfg *SearchConfig,
) *SearchService {
	s := &SearchService{
		index:       idx,
		embedder:    embedding,
		analyze:     analyze,
		imageGen:    imageGen,
		logger:      log,
		imageMode:   "remote",
		defaultTopK: 3,
		maxTopK:     50,
	}
	if cfg != nil {
		s.indexPath = cfg.IndexPath
		s.downloadTimeout = cfg.DownloadTimeout
		s.instructPrompt = cfg.InstructPrompt
		if cfg.ImageMode != "" {
			s.imageMode = cfg.ImageMode
		}
		if cfg.DefaultTopK > 0 {
			s.defaultTopK = cfg.DefaultTopK
		}
		if cfg.MaxTopK > 0 {
			s.maxTopK = cfg.MaxTopK
		}
	}
	if s.instructPrompt == "" {
		s.instructPrompt = prompts.DefaultInstructPrompt
	}
	return s
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *SearchService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// ensureIndex loads the serving index from the configured path on first use.
// The load happens exactly once; its error, if any, is returned to every
// caller afterwards.
func (s *SearchService) ensureIndex(ctx context.Context) error {
	s.loadOnce.Do(func() {
		if s.index.Ready() {
			return
		}
		if err := s.index.LoadFile(s.indexPath); err != nil {
			s.loadErr = fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
			s.log(ctx).WithFields(logger.Fields{
				"path":  s.indexPath,
				"error": err.Error(),
			}).Warn("Serving index unavailable")
			return
		}
		s.log(ctx).WithFields(logger.Fields{
			"path":       s.indexPath,
			"count":      s.index.Count(),
			"dimensions": s.index.Dimensions(),
		}).Info("Serving index loaded")
	})
	return s.loadErr
}

func (s *SearchService) clampTopK(topK int) int {
	if topK <= 0 {
		return s.defaultTopK
	}
	if topK > s.maxTopK {
		return s.maxTopK
	}
	return topK
}

// SearchRequest represents a text search request.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

// SearchResponse represents ranked text search results.
type SearchResponse struct {
	Results []domain.SearchResult `json:"results"`
	Total   int                   `json:"total"`
	Query   string                `json:"query"`
}

// TextSearch ranks indexed memes against a free-text query.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: search request parameters.
//
// Returns:
//   - *SearchResponse: ranked results, best first.
//   - error: non-nil if the index is unavailable or embedding fails.
func (s *SearchService) TextSearch(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}
	topK := s.clampTopK(req.TopK)

	logger.CtxInfo(ctx, "Performing text search: query=%q, top_k=%d", req.Query, topK)
	results, err := s.index.Search(ctx, req.Query, topK)
	if err != nil {
		return nil, err
	}
	return &SearchResponse{
		Results: results,
		Total:   len(results),
		Query:   req.Query,
	}, nil
}

// MatchRequest represents an image match request.
type MatchRequest struct {
	URL             string  `json:"url" binding:"required"`
	TopK            int     `json:"top_k"`
	ImageMode       string  `json:"image_mode"`
	DownloadTimeout float64 `json:"download_timeout"` // seconds
}

// MatchResponse carries the intermediate analysis together with the ranked
// matches it produced.
type MatchResponse struct {
	Analysis domain.Analysis       `json:"analysis"`
	Results  []domain.SearchResult `json:"results"`
	Total    int                   `json:"total"`
}

// MatchFromImage analyzes a submitted image and ranks indexed memes against
// the resulting analysis text.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: match request parameters.
//
// Returns:
//   - *MatchResponse: the analysis and its ranked matches. An analysis that
//     normalizes to empty text yields zero matches, not an error.
//   - error: non-nil if the index, the download or the provider fails.
func (s *SearchService) MatchFromImage(ctx context.Context, req *MatchRequest) (*MatchResponse, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}
	analysis, err := s.analyzeSubmitted(ctx, req.URL, req.ImageMode, req.DownloadTimeout, nil)
	if err != nil {
		return nil, err
	}

	topK := s.clampTopK(req.TopK)
	results, err := s.index.FindSimilarFromAnalysis(ctx, analysis, topK)
	if err != nil {
		return nil, err
	}
	return &MatchResponse{
		Analysis: analysis,
		Results:  results,
		Total:    len(results),
	}, nil
}

// GenerateRequest represents a meme generation request.
type GenerateRequest struct {
	URL             string  `json:"url" binding:"required"`
	Text            string  `json:"text"`
	NeedReference   bool    `json:"need_reference"`
	Size            string  `json:"size"`
	ImageMode       string  `json:"image_mode"`
	DownloadTimeout float64 `json:"download_timeout"` // seconds
}

// GenerateResponse carries the generated image and the library meme whose
// design inspiration drove it.
type GenerateResponse struct {
	GeneratedImageURL string            `json:"generated_image_url"`
	Score             float32           `json:"score"`
	Matched           domain.MemeRecord `json:"matched"`
}

// Generate runs the full generation chain: analyze the submitted image, find
// the closest indexed meme, take its design inspiration and drive the image
// generator with it. With need_reference set the matched meme image is sent
// along as a style reference.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: generation request parameters.
//
// Returns:
//   - *GenerateResponse: generated image URL plus the match it was based on.
//   - error: ErrNoMatch when nothing matches, ErrNoInspiration when the match
//     carries no design inspiration, an APIError when a provider fails.
func (s *SearchService) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}

	opts := &AnalyzeOptions{
		Prompt:    s.instructPrompt,
		ExtraText: req.Text,
	}
	analysis, err := s.analyzeSubmitted(ctx, req.URL, req.ImageMode, req.DownloadTimeout, opts)
	if err != nil {
		return nil, err
	}

	matches, err := s.index.FindSimilarFromAnalysis(ctx, analysis, 1)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNoMatch
	}
	matched := matches[0]

	inspiration := inspirationText(matched.Analysis.DesignInspiration)
	if inspiration == "" {
		return nil, fmt.Errorf("matched %q: %w", matched.Name, ErrNoInspiration)
	}

	prompt := prompts.InspirationPrompt(inspiration)
	images := []string{req.URL}
	if req.NeedReference {
		prompt = prompts.ReferencePrompt(inspiration)
		images = []string{matched.URL, req.URL}
	}

	logger.CtxInfo(ctx, "Generating meme: matched=%q, score=%.4f, need_reference=%v",
		matched.Name, matched.Score, req.NeedReference)

	generatedURL, err := s.imageGen.Generate(ctx, prompt, images, req.Size)
	if err != nil {
		return nil, err
	}
	return &GenerateResponse{
		GeneratedImageURL: generatedURL,
		Score:             matched.Score,
		Matched:           matched.MemeRecord,
	}, nil
}

// analyzeSubmitted analyzes one submitted image, applying the service image
// mode and download timeout unless the request overrides them.
func (s *SearchService) analyzeSubmitted(ctx context.Context, rawURL, mode string, timeoutSeconds float64, opts *AnalyzeOptions) (domain.Analysis, error) {
	if mode == "" {
		mode = s.imageMode
	}
	timeout := s.downloadTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds * float64(time.Second))
	}
	return s.analyze.AnalyzeOne(ctx, rawURL, mode, timeout, opts)
}

// inspirationText joins the design inspiration elements into one prompt
// fragment, skipping blanks.
func inspirationText(inspiration domain.StringList) string {
	var parts []string
	for _, p := range inspiration {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "；")
}

// BuildIndex builds a fresh index from an analysis results file and saves the
// paired artifacts. The serving index is not swapped; a rebuilt artifact is
// picked up on the next process start.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - analysisPath: analysis results JSON file.
//   - outputPath: vector container destination.
//
// Returns:
//   - int: number of records indexed.
//   - error: non-nil if loading, embedding or saving fails.
func (s *SearchService) BuildIndex(ctx context.Context, analysisPath, outputPath string) (int, error) {
	records, err := repository.LoadResults(analysisPath)
	if err != nil {
		return 0, err
	}

	idx := index.New(s.embedder)
	idx.LoadRecords(records)
	logger.CtxInfo(ctx, "Building index: source=%s, indexable=%d of %d",
		analysisPath, idx.Count(), len(records))

	if err := idx.Build(ctx); err != nil {
		return 0, err
	}
	if err := idx.Save(outputPath); err != nil {
		return 0, err
	}
	logger.CtxInfo(ctx, "Index built: path=%s, count=%d, dimensions=%d",
		outputPath, idx.Count(), idx.Dimensions())
	return idx.Count(), nil
}

// IndexStats describes the serving index.
type IndexStats struct {
	Path       string `json:"path"`
	Ready      bool   `json:"ready"`
	Count      int    `json:"count"`
	Dimensions int    `json:"dimensions"`
	LoadError  string `json:"load_error,omitempty"`
}

// Stats reports the serving index state, triggering the lazy load so the
// numbers reflect what queries would actually see.
func (s *SearchService) Stats(ctx context.Context) *IndexStats {
	err := s.ensureIndex(ctx)
	st := &IndexStats{
		Path:       s.indexPath,
		Ready:      s.index.Ready(),
		Count:      s.index.Count(),
		Dimensions: s.index.Dimensions(),
	}
	if err != nil {
		st.LoadError = err.Error()
	}
	return st
}
