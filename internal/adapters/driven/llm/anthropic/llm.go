// Package anthropic provides a generation adapter using the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/codexai/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// Ensure GenerationService implements the interface.
var _ driven.GenerationService = (*GenerationService)(nil)

const providerName = "anthropic"

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 2000
	apiVersion       = "2023-06-01"
)

// Config holds configuration for the Anthropic generation service.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GenerationService produces text with the Messages API.
type GenerationService struct {
	api   *httpjson.Client
	model string
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewGenerationService creates a new Anthropic generation service.
func NewGenerationService(cfg Config) (*GenerationService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	header := http.Header{
		"X-Api-Key":         {cfg.APIKey},
		"Anthropic-Version": {apiVersion},
	}
	return &GenerationService{
		api:   httpjson.New(providerName, cfg.BaseURL, cfg.Timeout, header),
		model: cfg.Model,
	}, nil
}

// Generate runs one message exchange. max_tokens is mandatory for this API.
func (s *GenerationService) Generate(ctx context.Context, req driven.GenerationRequest) (*driven.GenerationResult, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var resp messagesResponse
	err := s.api.Post(ctx, "/v1/messages", messagesRequest{
		Model:       s.model,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		System:      req.System,
		Temperature: req.Temperature,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.StopReason == "refusal" {
		return nil, &domain.ProviderError{Provider: providerName, Err: errors.New("request refused by content policy")}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &domain.ProviderError{Provider: providerName, Err: errors.New("no text content returned")}
	}

	model := resp.Model
	if model == "" {
		model = s.model
	}
	return &driven.GenerationResult{
		Text:             strings.TrimSpace(text.String()),
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		Model:            model,
	}, nil
}

// ModelName returns the configured model.
func (s *GenerationService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models.
func (s *GenerationService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/v1/models", nil)
}

// Close releases idle connections.
func (s *GenerationService) Close() error {
	s.api.HTTP.CloseIdleConnections()
	return nil
}
