package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultOpenAIBaseURL = "https://ark.cn-beijing.volces.com/api/v3"

// OpenAIEmbedding calls any OpenAI-compatible embeddings endpoint, which
// covers Ark and self-hosted gateways. Unlike Jina there is no task split:
// passages and queries go through the same call.
type OpenAIEmbedding struct {
	client     *resty.Client
	endpoint   string
	provider   string
	model      string
	dimensions int
}

// NewOpenAIEmbedding creates an OpenAI-compatible embedding provider.
func NewOpenAIEmbedding(cfg *EmbeddingProviderConfig) *OpenAIEmbedding {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client.SetTimeout(timeout)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai-compatible"
	}

	return &OpenAIEmbedding{
		client:     client,
		endpoint:   baseURL + "/embeddings",
		provider:   provider,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// GetModel returns the model name being used.
func (s *OpenAIEmbedding) GetModel() string {
	return s.model
}

// GetDimensions returns the configured embedding width.
func (s *OpenAIEmbedding) GetDimensions() int {
	return s.dimensions
}

type openAIEmbeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	Dimensions     int      `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// EmbedBatch generates embeddings for multiple texts in index order.
func (s *OpenAIEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := s.post(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("unexpected number of embeddings: got %d, expected %d", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}
	return embeddings, nil
}

// EmbedQuery generates an embedding for a single query text.
func (s *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	resp, err := s.post(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

func (s *OpenAIEmbedding) post(ctx context.Context, input []string) (*openAIEmbeddingResponse, error) {
	req := openAIEmbeddingRequest{
		Model:          s.model,
		Input:          input,
		Dimensions:     s.dimensions,
		EncodingFormat: "float",
	}

	var resp openAIEmbeddingResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s embeddings API: %w", s.provider, err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		var message string
		if resp.Error != nil {
			message = resp.Error.Message
		}
		return nil, &APIError{
			Provider:   s.provider,
			StatusCode: httpResp.StatusCode(),
			Message:    message,
			RawBody:    string(httpResp.Body()),
		}
	}
	if resp.Error != nil {
		return nil, &APIError{
			Provider: s.provider,
			Message:  resp.Error.Message,
			RawBody:  string(httpResp.Body()),
		}
	}
	return &resp, nil
}
