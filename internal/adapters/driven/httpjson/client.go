// Package httpjson is the JSON-over-HTTP transport shared by the provider
// adapters. Every failure comes back as a *domain.ProviderError so the
// retry wrapper can tell transient from fatal errors.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

const maxErrorBody = 4096

// Client calls one provider's API.
type Client struct {
	Provider string
	BaseURL  string
	HTTP     *http.Client

	// Header is added to every request (auth, API version).
	Header http.Header
}

// New creates a client with the given timeout.
func New(provider, baseURL string, timeout time.Duration, header http.Header) *Client {
	if header == nil {
		header = http.Header{}
	}
	return &Client{
		Provider: provider,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		HTTP:     &http.Client{Timeout: timeout},
		Header:   header,
	}
}

// Post sends body as JSON to path and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return &domain.ProviderError{Provider: c.Provider, Err: fmt.Errorf("marshal request: %w", err)}
	}
	return c.Do(ctx, http.MethodPost, path, bytes.NewReader(data), out)
}

// Get fetches path and decodes the response into out, which may be nil.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, http.NoBody, out)
}

// Do runs one request.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return &domain.ProviderError{Provider: c.Provider, Err: fmt.Errorf("create request: %w", err)}
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return domain.NewTransportError(c.Provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		pe := domain.NewProviderError(c.Provider, resp.StatusCode, errors.New(errorMessage(raw)))
		pe.RetryAfter = retryAfter(resp.Header.Get("Retry-After"))
		return pe
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewTransportError(c.Provider, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// errorMessage extracts {"error":{"message":...}} or {"error":"..."} bodies,
// falling back to the raw text.
func errorMessage(raw []byte) string {
	var structured struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &structured) == nil && len(structured.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(structured.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if json.Unmarshal(structured.Error, &plain) == nil && plain != "" {
			return plain
		}
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "empty response body"
	}
	return text
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
