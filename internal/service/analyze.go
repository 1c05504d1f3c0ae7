package service

import (
	"context"
	"time"

	"github.com/gxPan1006/meme/internal/domain"
	"github.com/gxPan1006/meme/internal/logger"
	"github.com/gxPan1006/meme/internal/repository"
)

// AnalyzeService runs the analysis pipeline: single images on demand and
// whole catalogs in sequential batches. Batch runs rewrite the output file
// after every item so an interrupted run loses at most the item in flight.
type AnalyzeService struct {
	vlm     *VLMService
	fetcher *ImageFetcher
	logger  *logger.Logger
}

// NewAnalyzeService creates a new analyze service.
func NewAnalyzeService(vlm *VLMService, fetcher *ImageFetcher, log *logger.Logger) *AnalyzeService {
	return &AnalyzeService{
		vlm:     vlm,
		fetcher: fetcher,
		logger:  log,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *AnalyzeService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// AnalyzeOne analyzes a single image URL. In data mode the image is first
// downloaded and inlined as a data URL, bounded by downloadTimeout.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rawURL: image URL to analyze.
//   - imageMode: "remote" to send the URL as is, "data" to inline it.
//   - downloadTimeout: bound for the download in data mode, 0 for none.
//   - opts: optional prompt and API key overrides, may be nil.
//
// Returns:
//   - domain.Analysis: extracted analysis, possibly error-marked.
//   - error: non-nil if the download or the provider call fails.
func (s *AnalyzeService) AnalyzeOne(ctx context.Context, rawURL, imageMode string, downloadTimeout time.Duration, opts *AnalyzeOptions) (domain.Analysis, error) {
	imageURL := rawURL
	if imageMode == "data" {
		fetchCtx := ctx
		if downloadTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, downloadTimeout)
			defer cancel()
		}
		dataURL, err := s.fetcher.FetchAsDataURL(fetchCtx, rawURL)
		if err != nil {
			return domain.Analysis{}, err
		}
		imageURL = dataURL
	}
	return s.vlm.AnalyzeImage(ctx, imageURL, opts)
}

// BatchOptions holds options for a batch analysis run.
type BatchOptions struct {
	Limit           int           // process at most this many catalog items, <= 0 for all
	Resume          bool          // keep existing output and skip already analyzed names
	ImageMode       string        // "remote" sends URLs, "data" inlines downloads
	DownloadTimeout time.Duration // bound for data-mode downloads, 0 for none
	Sleep           time.Duration // pause between provider calls
	Prompt          string        // analysis prompt override, empty for the configured one
	APIKey          string        // provider key override, empty for the configured one
}

// BatchStats holds statistics for a batch analysis run.
type BatchStats struct {
	TotalItems     int
	ProcessedItems int
	SkippedItems   int
	FailedItems    int
	StartTime      time.Time
	EndTime        time.Time
}

// AnalyzeBatch analyzes every catalog item and persists results to
// outputPath after each one. Provider failures are recorded as error-marked
// analyses and never abort the run; only an unreadable catalog or an
// unwritable output file does.
// Parameters:
//   - ctx: context for cancellation; a cancelled context stops the run
//     after the item in flight.
//   - inputPath: catalog JSON file.
//   - outputPath: analysis result file, rewritten after every item.
//   - opts: batch options, may be nil for defaults.
//
// Returns:
//   - *BatchStats: counts for the run, also on early stop.
//   - error: non-nil if the catalog or the output file is unusable.
func (s *AnalyzeService) AnalyzeBatch(ctx context.Context, inputPath, outputPath string, opts *BatchOptions) (*BatchStats, error) {
	if opts == nil {
		opts = &BatchOptions{}
	}
	stats := &BatchStats{StartTime: time.Now()}

	items, err := repository.LoadCatalog(inputPath)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	stats.TotalItems = len(items)

	var output []domain.MemeRecord
	byName := map[string]domain.MemeRecord{}
	if opts.Resume {
		existing, err := repository.LoadExisting(outputPath)
		if err != nil {
			return nil, err
		}
		byName = repository.ExistingByName(existing)
		output = existing
	}

	s.log(ctx).WithFields(logger.Fields{
		"input":      inputPath,
		"output":     outputPath,
		"total":      stats.TotalItems,
		"resume":     opts.Resume,
		"image_mode": opts.ImageMode,
	}).Info("Starting batch analysis")

	var analyzeOpts *AnalyzeOptions
	if opts.Prompt != "" || opts.APIKey != "" {
		analyzeOpts = &AnalyzeOptions{
			Prompt: opts.Prompt,
			APIKey: opts.APIKey,
		}
	}

	for idx, item := range items {
		if ctx.Err() != nil {
			s.log(ctx).WithField("index", idx).Warn("Batch analysis interrupted")
			break
		}
		if opts.Resume && item.Name != "" {
			if _, ok := byName[item.Name]; ok {
				stats.SkippedItems++
				continue
			}
		}

		record := domain.MemeRecord{
			Name:     item.Name,
			Category: item.Category,
			URL:      item.URL,
		}
		if item.URL == "" {
			record.Analysis = domain.Analysis{Error: "missing url"}
		} else {
			analysis, err := s.AnalyzeOne(ctx, item.URL, opts.ImageMode, opts.DownloadTimeout, analyzeOpts)
			if err != nil {
				analysis = domain.Analysis{Error: err.Error()}
			}
			record.Analysis = analysis
		}

		output = append(output, record)
		stats.ProcessedItems++
		if record.Analysis.IsError() {
			stats.FailedItems++
		}

		if err := repository.SaveResults(outputPath, output); err != nil {
			stats.EndTime = time.Now()
			return stats, err
		}

		s.log(ctx).WithFields(logger.Fields{
			logger.FieldItem: item.Name,
			"index":          idx + 1,
			"total":          len(items),
			"failed":         record.Analysis.IsError(),
		}).Info("Analyzed item")

		if opts.Sleep > 0 && item.URL != "" {
			select {
			case <-time.After(opts.Sleep):
			case <-ctx.Done():
			}
		}
	}

	stats.EndTime = time.Now()
	s.log(ctx).WithFields(logger.Fields{
		"total":     stats.TotalItems,
		"processed": stats.ProcessedItems,
		"skipped":   stats.SkippedItems,
		"failed":    stats.FailedItems,
		"duration":  stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Batch analysis completed")
	return stats, nil
}
