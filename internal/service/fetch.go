package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	_ "golang.org/x/image/webp"
)

// ImageFetcher downloads images and packages them as base64 data URLs so
// they can be inlined into model requests. Catalog URLs frequently carry
// unescaped multibyte filenames, so every URL is sanitized before fetching.
type ImageFetcher struct {
	client *resty.Client
}

// NewImageFetcher creates a fetcher with the given download timeout.
func NewImageFetcher(timeout time.Duration) *ImageFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0")
	return &ImageFetcher{client: client}
}

// FetchAsDataURL downloads the image and returns it as a data URL. The MIME
// type comes from the Content-Type header, then from sniffing the bytes,
// then from the URL extension.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rawURL: image URL, possibly with unescaped characters.
//
// Returns:
//   - string: data:<mime>;base64,<payload> form of the image.
//   - error: non-nil if the download fails.
func (f *ImageFetcher) FetchAsDataURL(ctx context.Context, rawURL string) (string, error) {
	safeURL := SanitizeURL(rawURL)

	resp, err := f.client.R().
		SetContext(ctx).
		Get(safeURL)
	if err != nil {
		return "", fmt.Errorf("fetch image %s: %w", rawURL, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", fmt.Errorf("fetch image %s: status %d", rawURL, resp.StatusCode())
	}

	body := resp.Body()
	mimeType := headerMIME(resp.Header().Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		if sniffed := sniffImageMIME(body); sniffed != "" {
			mimeType = sniffed
		}
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = guessMIMEType(rawURL)
	}

	encoded := base64.StdEncoding.EncodeToString(body)
	return fmt.Sprintf("data:%s;base64,%s", mimeType, encoded), nil
}

// SanitizeURL re-encodes a URL so multibyte path characters and stray spaces
// become legal. Unparseable input is returned unchanged.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = strings.ReplaceAll(u.RawQuery, " ", "%20")
	return u.String()
}

func headerMIME(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mediaType
}

func sniffImageMIME(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	}
	return ""
}

func guessMIMEType(rawURL string) string {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	}
	return "image/jpeg"
}
