// Package ollama provides a generation adapter using a local Ollama server.
package ollama

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/custodia-labs/codexai/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// Ensure GenerationService implements the interface.
var _ driven.GenerationService = (*GenerationService)(nil)

const providerName = "ollama"

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama generation service.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GenerationService produces text with Ollama's non-streaming chat endpoint.
type GenerationService struct {
	api   *httpjson.Client
	model string
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options"`
}

type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// NewGenerationService creates a new Ollama generation service.
func NewGenerationService(cfg Config) *GenerationService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &GenerationService{
		api:   httpjson.New(providerName, cfg.BaseURL, cfg.Timeout, nil),
		model: cfg.Model,
	}
}

// Generate runs one chat exchange.
func (s *GenerationService) Generate(ctx context.Context, req driven.GenerationRequest) (*driven.GenerationResult, error) {
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	var resp chatResponse
	err := s.api.Post(ctx, "/api/chat", chatRequest{
		Model:    s.model,
		Messages: messages,
		Options:  options{NumPredict: req.MaxTokens, Temperature: req.Temperature},
	}, &resp)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return nil, &domain.ProviderError{Provider: providerName, Err: errors.New("empty response")}
	}

	model := resp.Model
	if model == "" {
		model = s.model
	}
	return &driven.GenerationResult{
		Text:             text,
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		Model:            model,
	}, nil
}

// ModelName returns the configured model.
func (s *GenerationService) ModelName() string {
	return s.model
}

// Ping checks the server is up by listing local models.
func (s *GenerationService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/api/tags", nil)
}

// Close releases idle connections.
func (s *GenerationService) Close() error {
	s.api.HTTP.CloseIdleConnections()
	return nil
}
