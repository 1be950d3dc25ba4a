package driven

import "context"

// GenerationService produces text from a prompt.
//
// Failures should be returned as *domain.ProviderError: retryable for rate
// limits and transient network trouble, fatal for invalid input, rejected
// credentials or content policy refusals.
//
// Implementations may include:
//   - OpenAI (chat completions)
//   - Anthropic (messages)
//   - Ollama (local models)
type GenerationService interface {
	// Generate runs one completion.
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerationRequest is the input of one completion.
type GenerationRequest struct {
	// System is the instruction preamble.
	System string

	// Prompt is the user message.
	Prompt string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// GenerationResult is the output of one completion.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	Model            string
}
