package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gxPan1006/meme/internal/logger"
)

// ImageGenService generates meme images through the Ark image generation
// API.
type ImageGenService struct {
	client    *resty.Client
	apiURL    string
	model     string
	apiKey    string
	size      string
	watermark bool
	logger    *logger.Logger
}

// ImageGenConfig holds configuration for the image generation service.
type ImageGenConfig struct {
	APIKey    string
	APIURL    string
	Model     string
	Size      string
	Watermark bool
	Timeout   time.Duration
}

// NewImageGenService creates a new image generation service.
func NewImageGenService(cfg *ImageGenConfig, log *logger.Logger) *ImageGenService {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	client.SetTimeout(timeout)

	size := cfg.Size
	if size == "" {
		size = "1920x1920"
	}

	return &ImageGenService{
		client:    client,
		apiURL:    cfg.APIURL,
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		size:      size,
		watermark: cfg.Watermark,
		logger:    log,
	}
}

func (s *ImageGenService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

type imageGenRequest struct {
	Model            string      `json:"model"`
	Prompt           string      `json:"prompt"`
	SequentialImages string      `json:"sequential_image_generation"`
	ResponseFormat   string      `json:"response_format"`
	Size             string      `json:"size"`
	Stream           bool        `json:"stream"`
	Watermark        bool        `json:"watermark"`
	Image            interface{} `json:"image,omitempty"`
}

type imageGenResponse struct {
	Model string `json:"model"`
	Data  []struct {
		URL  string `json:"url"`
		Size string `json:"size"`
	} `json:"data"`
	Usage struct {
		GeneratedImages int `json:"generated_images"`
	} `json:"usage"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate produces one image for the prompt and returns its URL. A single
// reference image is sent as a plain string, several as a list, matching
// what the generation endpoint expects.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - prompt: generation instruction.
//   - images: zero or more reference image URLs or data URLs.
//   - size: output size override, empty for the configured default.
//
// Returns:
//   - string: URL of the generated image.
//   - error: non-nil if the provider call fails or returns no image.
func (s *ImageGenService) Generate(ctx context.Context, prompt string, images []string, size string) (string, error) {
	if size == "" {
		size = s.size
	}

	req := imageGenRequest{
		Model:            s.model,
		Prompt:           prompt,
		SequentialImages: "disabled",
		ResponseFormat:   "url",
		Size:             size,
		Stream:           false,
		Watermark:        s.watermark,
	}
	switch len(images) {
	case 0:
	case 1:
		req.Image = images[0]
	default:
		req.Image = images
	}

	start := time.Now()
	var resp imageGenResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.apiKey).
		SetBody(req).
		SetResult(&resp).
		Post(s.apiURL)
	if err != nil {
		return "", fmt.Errorf("failed to call image generation API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		var message string
		if resp.Error != nil {
			message = resp.Error.Message
		}
		return "", &APIError{
			Provider:   "ark",
			StatusCode: httpResp.StatusCode(),
			Message:    message,
			RawBody:    string(httpResp.Body()),
		}
	}
	if resp.Error != nil {
		return "", &APIError{
			Provider: "ark",
			Message:  resp.Error.Message,
			RawBody:  string(httpResp.Body()),
		}
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", &APIError{
			Provider: "ark",
			Message:  "no image in response",
			RawBody:  string(httpResp.Body()),
		}
	}

	s.log(ctx).WithFields(logger.Fields{
		"model":       s.model,
		"size":        size,
		"ref_images":  len(images),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Image generated")
	return resp.Data[0].URL, nil
}
