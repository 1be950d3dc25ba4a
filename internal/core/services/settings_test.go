package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codexai/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/codexai/internal/core/domain"
)

func newTestSettings(env map[string]string) (*SettingsService, *memory.ConfigStore) {
	store := memory.NewConfigStore()
	svc := NewSettingsService(store)
	svc.getenv = func(k string) string { return env[k] }
	return svc, store
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	svc, _ := newTestSettings(nil)

	settings, err := svc.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults, *settings)
	assert.False(t, settings.Embedding.IsConfigured())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	svc, store := newTestSettings(nil)
	require.NoError(t, store.Set("embedding.provider", "ollama"))
	require.NoError(t, store.Set("retrieval.top_k", 25))
	require.NoError(t, store.Set("retrieval.lexical_weight", 0.2))
	require.NoError(t, store.Set("retry.base_delay", "250ms"))
	require.NoError(t, store.Set("vector.backend", "qdrant"))
	require.NoError(t, store.Set("sources.ignore", []any{"*.gen.go", "fixtures/"}))

	settings, err := svc.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model, "provider default model")
	assert.Equal(t, 25, settings.Retrieval.TopK)
	assert.InDelta(t, 0.2, settings.Retrieval.LexicalWeight, 1e-9)
	assert.Equal(t, 250*time.Millisecond, settings.Retry.BaseDelay)
	assert.Equal(t, domain.VectorBackendQdrant, settings.VectorStore.Backend)
	assert.Equal(t, []string{"*.gen.go", "fixtures/"}, settings.Sources.Ignore)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	svc, store := newTestSettings(nil)
	require.NoError(t, store.Set("embedding.provider", "invalid_provider"))
	require.NoError(t, store.Set("vector.backend", "redis"))
	require.NoError(t, store.Set("retry.max_delay", "soon"))

	settings, err := svc.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.VectorStore.Backend, settings.VectorStore.Backend)
	assert.Equal(t, defaults.Retry.MaxDelay, settings.Retry.MaxDelay)
}

func TestSettingsService_Get_EnvironmentFallback(t *testing.T) {
	env := map[string]string{
		EnvOpenAIKey:    "sk-env",
		EnvAnthropicKey: "ant-env",
		EnvQdrantKey:    "qd-env",
		EnvGitHubToken:  "gh-env",
	}
	svc, store := newTestSettings(env)
	require.NoError(t, store.Set("embedding.provider", "openai"))
	require.NoError(t, store.Set("generation.provider", "anthropic"))
	require.NoError(t, store.Set("generation.api_key", "ant-file"))

	settings, err := svc.Get()
	require.NoError(t, err)

	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	assert.Equal(t, "ant-file", settings.Generation.APIKey, "config file wins over environment")
	assert.Equal(t, "qd-env", settings.VectorStore.QdrantAPIKey)
	assert.Equal(t, "gh-env", settings.Sources.GitHubToken)
	assert.True(t, settings.Embedding.IsConfigured())
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		want    any
		wantErr bool
	}{
		{"int", "retrieval.top_k", "5", 5, false},
		{"negative int", "retrieval.top_k", "-1", nil, true},
		{"not an int", "ingestion.workers", "many", nil, true},
		{"float", "prompt.temperature", "0.7", 0.7, false},
		{"duration normalised", "embedding.timeout", "90s", "1m30s", false},
		{"bad duration", "retry.base_delay", "fast", nil, true},
		{"provider", "generation.provider", "anthropic", "anthropic", false},
		{"embedding provider without embeddings", "embedding.provider", "anthropic", nil, true},
		{"unknown provider", "generation.provider", "acme", nil, true},
		{"backend", "vector.backend", "memory", "memory", false},
		{"unknown backend", "vector.backend", "redis", nil, true},
		{"list", "sources.ignore", "vendor/, *.pb.go ,", []string{"vendor/", "*.pb.go"}, false},
		{"string", "vector.qdrant_url", "http://localhost:6333", "http://localhost:6333", false},
		{"unknown key", "search.mode", "hybrid", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestSettings(nil)

			err := svc.Set(tt.key, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				_, exists := store.Get(tt.key)
				assert.False(t, exists)
				return
			}
			require.NoError(t, err)
			got, _ := store.Get(tt.key)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsService_SetThenGet(t *testing.T) {
	svc, _ := newTestSettings(nil)
	require.NoError(t, svc.Set("chunking.chunk_tokens", "300"))
	require.NoError(t, svc.Set("generation.timeout", "45s"))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 300, settings.Chunking.ChunkTokens)
	assert.Equal(t, 45*time.Second, settings.Generation.Timeout)
}

func TestSettingsService_Keys(t *testing.T) {
	svc, _ := newTestSettings(nil)
	keys := svc.Keys()

	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, "embedding.provider")
	assert.Contains(t, keys, "retrieval.token_budget")
	assert.Contains(t, keys, "sources.github_token")
	assert.Len(t, keys, len(keyKinds))
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	t.Run("ollama needs no key", func(t *testing.T) {
		svc, store := newTestSettings(nil)
		require.NoError(t, svc.SetEmbeddingProvider(domain.AIProviderOllama, "mxbai-embed-large", ""))
		assert.Equal(t, "ollama", store.GetString("embedding.provider"))
		assert.Equal(t, "mxbai-embed-large", store.GetString("embedding.model"))
	})

	t.Run("openai requires key", func(t *testing.T) {
		svc, _ := newTestSettings(nil)
		err := svc.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("openai key from environment", func(t *testing.T) {
		svc, store := newTestSettings(map[string]string{EnvOpenAIKey: "sk-env"})
		require.NoError(t, svc.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""))
		_, stored := store.Get("embedding.api_key")
		assert.False(t, stored, "environment keys are not copied into the config file")
	})

	t.Run("anthropic has no embeddings", func(t *testing.T) {
		svc, _ := newTestSettings(nil)
		err := svc.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "key")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestSettingsService_SetGenerationProvider(t *testing.T) {
	svc, store := newTestSettings(nil)

	require.NoError(t, svc.SetGenerationProvider(domain.AIProviderAnthropic, "", "ant-key"))
	assert.Equal(t, "anthropic", store.GetString("generation.provider"))
	assert.Equal(t, "ant-key", store.GetString("generation.api_key"))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultGenerationModels()[domain.AIProviderAnthropic], settings.Generation.Model)

	err = svc.SetGenerationProvider("acme", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
