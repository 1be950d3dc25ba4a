// Package ai builds the embedding, generation and vector index adapters
// selected by the application settings.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/codexai/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/codexai/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/codexai/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/codexai/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/codexai/internal/adapters/driven/llm/openai"
	memoryindex "github.com/custodia-labs/codexai/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/codexai/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Services holds the adapters built from settings. Either provider may be
// nil when it is not configured; commands that need it report that.
type Services struct {
	Embedding  driven.EmbeddingService
	Generation driven.GenerationService
	Index      driven.VectorIndex
}

// Close releases all resources held by the services.
func (s *Services) Close() {
	if s.Embedding != nil {
		_ = s.Embedding.Close()
	}
	if s.Generation != nil {
		_ = s.Generation.Close()
	}
	if s.Index != nil {
		_ = s.Index.Close()
	}
}

// IndexFingerprint identifies the vector store and embedding space the
// services write to, using the resolved model name. Empty when no embedding
// provider is configured.
func (s *Services) IndexFingerprint(store domain.VectorStoreSettings, embedding domain.ProviderSettings) string {
	if s.Embedding == nil {
		return ""
	}
	embedding.Model = s.Embedding.ModelName()
	return domain.IndexFingerprint(store, embedding, s.Embedding.Dimensions())
}

// Build creates every service from settings. sqliteIndex is used when the
// vector backend is sqlite.
func Build(settings *domain.AppSettings, sqliteIndex driven.VectorIndex) (*Services, error) {
	embedding, err := CreateEmbeddingService(settings.Embedding)
	if err != nil {
		return nil, err
	}
	generation, err := CreateGenerationService(settings.Generation)
	if err != nil {
		if embedding != nil {
			_ = embedding.Close()
		}
		return nil, err
	}
	index, err := CreateVectorIndex(settings.VectorStore, sqliteIndex)
	if err != nil {
		if embedding != nil {
			_ = embedding.Close()
		}
		if generation != nil {
			_ = generation.Close()
		}
		return nil, err
	}
	return &Services{Embedding: embedding, Generation: generation, Index: index}, nil
}

// CreateEmbeddingService creates the embedding adapter for settings,
// rate limited when configured. Returns nil if the provider is not configured.
func CreateEmbeddingService(settings domain.ProviderSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	var svc driven.EmbeddingService
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})
	case domain.AIProviderOpenAI:
		openai, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})
		if err != nil {
			return nil, err
		}
		svc = openai
	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama or openai", domain.ErrInvalidInput)
	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", domain.ErrInvalidInput, settings.Provider)
	}
	return WithEmbeddingRateLimit(svc, settings.RequestsPerSecond), nil
}

// CreateGenerationService creates the generation adapter for settings,
// rate limited when configured. Returns nil if the provider is not configured.
func CreateGenerationService(settings domain.ProviderSettings) (driven.GenerationService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	var svc driven.GenerationService
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = ollamallm.NewGenerationService(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})
	case domain.AIProviderOpenAI:
		openai, err := openaillm.NewGenerationService(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})
		if err != nil {
			return nil, err
		}
		svc = openai
	case domain.AIProviderAnthropic:
		anthropic, err := anthropicllm.NewGenerationService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})
		if err != nil {
			return nil, err
		}
		svc = anthropic
	default:
		return nil, fmt.Errorf("%w: unsupported generation provider %q", domain.ErrInvalidInput, settings.Provider)
	}
	return WithGenerationRateLimit(svc, settings.RequestsPerSecond), nil
}

// CreateVectorIndex selects the vector backend.
func CreateVectorIndex(settings domain.VectorStoreSettings, sqliteIndex driven.VectorIndex) (driven.VectorIndex, error) {
	switch settings.Backend {
	case domain.VectorBackendSQLite, "":
		if sqliteIndex == nil {
			return nil, fmt.Errorf("%w: sqlite vector index is not available", domain.ErrIndexUnavailable)
		}
		return sqliteIndex, nil
	case domain.VectorBackendMemory:
		return memoryindex.New(), nil
	case domain.VectorBackendQdrant:
		return qdrant.New(qdrant.Config{
			URL:        settings.QdrantURL,
			APIKey:     settings.QdrantAPIKey,
			Collection: settings.QdrantCollection,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported vector backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}

// pinger is satisfied by both provider ports.
type pinger interface {
	Ping(ctx context.Context) error
}

// Validate pings a configured service. Used by "config provider --check".
func Validate(ctx context.Context, svc pinger) error {
	if svc == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("service unreachable: %w", err)
	}
	return nil
}
