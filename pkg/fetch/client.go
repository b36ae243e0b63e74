// Package fetch is the byte fetcher used for asset downloads and for the
// http page engine: one GET per call, bounded by a timeout, no retries.
package fetch

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

// MaxBodySize caps how much of a response is read into memory
const MaxBodySize = 64 << 20

// Response is a fetched body together with where it finally came from
type Response struct {
	Body        []byte
	ContentType string
	// FinalURL is the URL after redirects
	FinalURL *url.URL
}

// Client fetches URLs with a fixed header set
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	maxBody    int64
	logger     logger.Logger
}

// NewClient creates a fetcher whose requests time out after timeout
func NewClient(timeout time.Duration, userAgent string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	headers := map[string]string{
		"Accept":          "image/avif,image/webp,image/apng,image/*,text/html;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
	if userAgent != "" {
		headers["User-Agent"] = userAgent
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers:    headers,
		maxBody:    MaxBodySize,
		logger:     log,
	}
}

// SetMaxBodySize changes the response size limit. Larger bodies fail
// instead of being truncated.
func (c *Client) SetMaxBodySize(n int64) {
	c.maxBody = n
}

// Get fetches rawURL. Non-2xx statuses are returned as download errors
// carrying the status code. data: URLs are decoded in place.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURL(rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeDownload, "invalid request", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"url":      rawURL,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.New(errors.ErrorTypeDownload, "network error", err)
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      rawURL,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeDownload,
			Message: fmt.Sprintf("unexpected status %s", resp.Status),
			Code:    resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, errors.New(errors.ErrorTypeDownload, "failed to read body", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, errors.New(errors.ErrorTypeDownload,
			fmt.Sprintf("response body exceeds %d bytes", c.maxBody), nil)
	}

	return &Response{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL,
	}, nil
}

// Bytes fetches rawURL and returns only the body
func (c *Client) Bytes(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// decodeDataURL handles data:[<mediatype>][;base64],<data>
func decodeDataURL(raw string) (*Response, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return nil, errors.New(errors.ErrorTypeDownload, "malformed data URL", nil)
	}

	var (
		body []byte
		err  error
	)
	if strings.HasSuffix(meta, ";base64") {
		meta = strings.TrimSuffix(meta, ";base64")
		body, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			body, err = base64.RawStdEncoding.DecodeString(payload)
		}
	} else {
		var s string
		s, err = url.PathUnescape(payload)
		body = []byte(s)
	}
	if err != nil {
		return nil, errors.New(errors.ErrorTypeDownload, "malformed data URL", err)
	}

	u, _ := url.Parse("data:")
	return &Response{Body: body, ContentType: meta, FinalURL: u}, nil
}
