package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gxPan1006/meme/internal/domain"
	"github.com/gxPan1006/meme/internal/logger"
	"github.com/gxPan1006/meme/internal/prompts"
)

// VLMService analyzes meme images with a vision language model through the
// OpenAI-compatible chat completions API.
type VLMService struct {
	client *resty.Client
	apiURL string
	model  string
	apiKey string
	prompt string
	logger *logger.Logger
}

// VLMConfig holds configuration for the VLM service.
type VLMConfig struct {
	APIKey  string
	APIURL  string
	Model   string
	Prompt  string
	Timeout time.Duration
}

// NewVLMService creates a new VLM service.
// Parameters:
//   - cfg: API endpoint, credentials, model and default prompt.
//   - log: logger instance.
//
// Returns:
//   - *VLMService: initialized VLM client wrapper.
func NewVLMService(cfg *VLMConfig, log *logger.Logger) *VLMService {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client.SetTimeout(timeout)

	prompt := cfg.Prompt
	if prompt == "" {
		prompt = prompts.DefaultAnalysisPrompt
	}

	return &VLMService{
		client: client,
		apiURL: cfg.APIURL,
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		prompt: prompt,
		logger: log,
	}
}

// GetModel returns the model name being used.
func (s *VLMService) GetModel() string {
	return s.model
}

func (s *VLMService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// AnalyzeOptions carries per-request overrides for image analysis.
type AnalyzeOptions struct {
	// Prompt replaces the configured analysis prompt when non-empty.
	Prompt string
	// ExtraText is appended as a second text part, prefixed as a user
	// requirement.
	ExtraText string
	// APIKey replaces the configured key for this request when non-empty.
	APIKey string
}

// OpenAI-compatible Chat Completion API request/response structures
type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string        `json:"role"`
	Content []interface{} `json:"content"`
}

type openAITextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIImageContent struct {
	Type     string         `json:"type"`
	ImageURL openAIImageURL `json:"image_url"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// AnalyzeImage sends an image to the model and extracts the structured
// analysis from its reply. Transport failures, non-2xx statuses and
// undecodable bodies are errors; a degenerate model reply still comes back
// as an error-marked analysis, not an error.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageURL: remote URL or data URL of the image.
//   - opts: optional per-request overrides, may be nil.
//
// Returns:
//   - domain.Analysis: structured, raw-text or error-marked analysis.
//   - error: non-nil if the API request itself fails.
func (s *VLMService) AnalyzeImage(ctx context.Context, imageURL string, opts *AnalyzeOptions) (domain.Analysis, error) {
	if opts == nil {
		opts = &AnalyzeOptions{}
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = s.prompt
	}
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = s.apiKey
	}

	content := []interface{}{
		openAIImageContent{
			Type:     "image_url",
			ImageURL: openAIImageURL{URL: imageURL},
		},
		openAITextContent{
			Type: "text",
			Text: prompt,
		},
	}
	if opts.ExtraText != "" {
		content = append(content, openAITextContent{
			Type: "text",
			Text: prompts.ExtraTextPrefix + opts.ExtraText,
		})
	}

	req := openAIRequest{
		Model: s.model,
		Messages: []openAIMessage{
			{Role: "user", Content: content},
		},
	}

	var resp openAIResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		SetBody(req).
		SetResult(&resp).
		Post(s.apiURL)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("failed to call VLM API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		var message string
		if resp.Error != nil {
			message = resp.Error.Message
		}
		return domain.Analysis{}, &APIError{
			Provider:   "ark",
			StatusCode: httpResp.StatusCode(),
			Message:    message,
			RawBody:    string(httpResp.Body()),
		}
	}
	if resp.Error != nil {
		return domain.Analysis{}, &APIError{
			Provider: "ark",
			Message:  resp.Error.Message,
			RawBody:  string(httpResp.Body()),
		}
	}

	analysis := extractAnalysis(&resp, httpResp.Body())
	s.log(ctx).WithFields(logger.Fields{
		"model":     s.model,
		"has_error": analysis.IsError(),
	}).Debug("Image analysis extracted")
	return analysis, nil
}

// extractAnalysis turns a chat completion reply into an analysis value.
// A reply without choices is marked as an error with the raw body attached.
// Message content that parses as a JSON object becomes the structured
// analysis; anything else is kept verbatim in the raw field.
func extractAnalysis(resp *openAIResponse, body []byte) domain.Analysis {
	if len(resp.Choices) == 0 {
		return domain.Analysis{
			Error: "missing choices",
			Raw:   string(body),
		}
	}
	content := resp.Choices[0].Message.Content

	var analysis domain.Analysis
	if err := json.Unmarshal([]byte(content), &analysis); err == nil {
		return analysis
	}
	return domain.Analysis{Raw: content}
}
