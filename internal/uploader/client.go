// Package uploader posts images to the configured HTTP endpoint as multipart
// form uploads.
package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"snapship/internal/config"
	"snapship/internal/services"
)

const (
	defaultFieldName     = "imageFile"
	defaultUploadTimeout = 2 * time.Minute
	maxBodySnippet       = 512
)

// HTTPClient uploads files to a fixed URL. Success is any 2xx response; the
// client never retries.
type HTTPClient struct {
	url       string
	fieldName string
	http      *http.Client
}

// Option customizes a client.
type Option func(*HTTPClient)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.http = client
		}
	}
}

// WithFieldName overrides the multipart form field carrying the file.
func WithFieldName(name string) Option {
	return func(c *HTTPClient) {
		if strings.TrimSpace(name) != "" {
			c.fieldName = strings.TrimSpace(name)
		}
	}
}

// WithTimeout overrides the per-request deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *HTTPClient) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// New constructs a client posting to url.
func New(url string, opts ...Option) *HTTPClient {
	client := &HTTPClient{
		url:       strings.TrimSpace(url),
		fieldName: defaultFieldName,
		http: &http.Client{
			Timeout: defaultUploadTimeout,
		},
	}

	for _, opt := range opts {
		opt(client)
	}
	return client
}

// NewFromConfig constructs a client from the upload section of the config.
func NewFromConfig(cfg *config.Config) *HTTPClient {
	return New(
		cfg.Upload.URL,
		WithFieldName(cfg.Upload.FieldName),
		WithTimeout(cfg.UploadTimeout()),
	)
}

// Upload posts the file at path as one multipart request. A nil error means
// the endpoint acknowledged the upload with a 2xx status.
func (c *HTTPClient) Upload(ctx context.Context, path string) error {
	if c == nil {
		return fmt.Errorf("uploader: nil client")
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("uploader: empty file path")
	}
	if c.url == "" {
		return fmt.Errorf("uploader: missing upload url")
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrFileVanished, "uploader", "open file", "File disappeared before upload", err)
		}
		return fmt.Errorf("uploader: open file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	field, err := writer.CreateFormFile(c.fieldName, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("uploader: create form file: %w", err)
	}
	if _, err := io.Copy(field, file); err != nil {
		return fmt.Errorf("uploader: read file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("uploader: close multipart writer: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return fmt.Errorf("uploader: build request: %w", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(request)
	if err != nil {
		return fmt.Errorf("uploader: http request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippet+1))
	if err != nil {
		payload = nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("uploader: unexpected status %d: %s", resp.StatusCode, bodySnippet(payload))
	}
	return nil
}

func bodySnippet(payload []byte) string {
	snippet := strings.TrimSpace(string(payload))
	if len(snippet) > maxBodySnippet {
		snippet = snippet[:maxBodySnippet] + "..."
	}
	if snippet == "" {
		return "(empty body)"
	}
	return snippet
}
