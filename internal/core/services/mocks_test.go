package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// ==================== Embedding ====================

// mockEmbedder returns a constant vector per text unless embedFn is set.
type mockEmbedder struct {
	mu      sync.Mutex
	dims    int
	calls   int
	texts   [][]string
	embedFn func(call int, texts []string) ([][]float32, error)
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dims: 3}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.texts = append(m.texts, texts)
	fn := m.embedFn
	m.mu.Unlock()

	if fn != nil {
		return fn(call, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (m *mockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbedder) Dimensions() int          { return m.dims }
func (m *mockEmbedder) ModelName() string        { return "mock-embed" }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error             { return nil }

// ==================== Generation ====================

type mockGenerator struct {
	mu       sync.Mutex
	calls    int
	requests []driven.GenerationRequest
	err      []error
	text     string
}

var _ driven.GenerationService = (*mockGenerator)(nil)

func (m *mockGenerator) Generate(_ context.Context, req driven.GenerationRequest) (*driven.GenerationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.requests = append(m.requests, req)
	if len(m.err) > 0 {
		err := m.err[0]
		m.err = m.err[1:]
		if err != nil {
			return nil, err
		}
	}
	text := m.text
	if text == "" {
		text = "# Documentation\n"
	}
	return &driven.GenerationResult{Text: text, PromptTokens: 120, CompletionTokens: 30, Model: "mock-gen"}, nil
}

func (m *mockGenerator) ModelName() string        { return "mock-gen" }
func (m *mockGenerator) Ping(context.Context) error { return nil }
func (m *mockGenerator) Close() error             { return nil }

// ==================== Prompts ====================

type mockPromptStore struct {
	prompts map[string]string
}

var _ driven.PromptStore = (*mockPromptStore)(nil)

func newMockPromptStore() *mockPromptStore {
	return &mockPromptStore{prompts: map[string]string{
		driven.PromptReference: "Write reference documentation.",
		driven.PromptTutorial:  "Write a tutorial.",
		driven.PromptOverview:  "Write an overview.",
	}}
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// ==================== Vector index ====================

// failingIndex wraps an index and fails Upsert for chosen paths, and
// CountFile when countErr is set.
type failingIndex struct {
	driven.VectorIndex
	failPaths map[string]bool
	countErr  error
}

func (f *failingIndex) CountFile(ctx context.Context, projectID, filePath string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.VectorIndex.CountFile(ctx, projectID, filePath)
}

func (f *failingIndex) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if f.failPaths[c.FilePath] {
			return fmt.Errorf("%w: disk full", domain.ErrIndexUnavailable)
		}
	}
	return f.VectorIndex.Upsert(ctx, chunks)
}

// ==================== Errors ====================

func transientErr() error {
	return domain.NewProviderError("mock", 503, errors.New("service unavailable"))
}

func fatalErr() error {
	return domain.NewProviderError("mock", 400, errors.New("bad request"))
}

// fastRetry retries three times without waiting.
var fastRetry = domain.RetryPolicy{MaxRetries: 3, Multiplier: 2}
