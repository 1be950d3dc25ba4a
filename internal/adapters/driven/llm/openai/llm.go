// Package openai provides a generation adapter using OpenAI chat completions.
package openai

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

const providerName = "openai"

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the OpenAI generation service.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GenerationService produces text with the chat completions API.
type GenerationService struct {
	api   *httpjson.Client
	model string
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// NewGenerationService creates a new OpenAI generation service.
func NewGenerationService(cfg Config) (*GenerationService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
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
	header := http.Header{"Authorization": {"Bearer " + cfg.APIKey}}
	return &GenerationService{
		api:   httpjson.New(providerName, cfg.BaseURL, cfg.Timeout, header),
		model: cfg.Model,
	}, nil
}

// Generate runs one chat completion.
func (s *GenerationService) Generate(ctx context.Context, req driven.GenerationRequest) (*driven.GenerationResult, error) {
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	var resp chatResponse
	err := s.api.Post(ctx, "/chat/completions", chatRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, &domain.ProviderError{Provider: providerName, Err: errors.New("no choices returned")}
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return nil, &domain.ProviderError{Provider: providerName, Err: errors.New("response blocked by content filter")}
	}

	model := resp.Model
	if model == "" {
		model = s.model
	}
	return &driven.GenerationResult{
		Text:             strings.TrimSpace(choice.Message.Content),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Model:            model,
	}, nil
}

// ModelName returns the configured model.
func (s *GenerationService) ModelName() string {
	return s.model
}

// Ping validates the API key against the /models endpoint.
func (s *GenerationService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/models", nil)
}

// Close releases idle connections.
func (s *GenerationService) Close() error {
	s.api.HTTP.CloseIdleConnections()
	return nil
}
