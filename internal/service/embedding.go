package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gxPan1006/meme/internal/config"
)

// EmbeddingProvider generates text embeddings for indexing and querying.
// Implementations are expected to return normalized vectors so that dot
// products over them behave like cosine similarity.
type EmbeddingProvider interface {
	// EmbedBatch embeds texts for indexing, one row per input in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// GetModel returns the model identifier in use.
	GetModel() string

	// GetDimensions returns the configured embedding width, 0 if provider default.
	GetDimensions() int
}

// EmbeddingProviderConfig holds configuration for creating an embedding
// provider.
type EmbeddingProviderConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	Timeout    time.Duration
}

// NewEmbeddingProvider creates an embedding provider for the configured
// backend.
// Parameters:
//   - cfg: provider selection plus model, credentials and dimensions.
//
// Returns:
//   - EmbeddingProvider: ready-to-use provider.
//   - error: non-nil for an unknown provider name.
func NewEmbeddingProvider(cfg *EmbeddingProviderConfig) (EmbeddingProvider, error) {
	switch cfg.Provider {
	case "jina", "":
		return NewJinaEmbedding(cfg), nil
	case "ark", "openai-compatible":
		return NewOpenAIEmbedding(cfg), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// NewEmbeddingProviderFromConfig builds a provider from the application
// embedding configuration, resolving environment variables first.
func NewEmbeddingProviderFromConfig(cfg *config.EmbeddingConfig) (EmbeddingProvider, error) {
	resolved := *cfg
	resolved.ResolveEnvVars()
	if err := resolved.ValidateWithAPIKey(); err != nil {
		return nil, err
	}
	return NewEmbeddingProvider(&EmbeddingProviderConfig{
		Provider:   resolved.Provider,
		Model:      resolved.Model,
		APIKey:     resolved.APIKey,
		BaseURL:    resolved.BaseURL,
		Dimensions: resolved.Dimensions,
		Timeout:    time.Duration(resolved.TimeoutSeconds) * time.Second,
	})
}
