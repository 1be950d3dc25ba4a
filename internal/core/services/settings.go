package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyEmbedTimeout  = "embedding.timeout"
	keyEmbedRPS      = "embedding.requests_per_second"

	keyGenProvider = "generation.provider"
	keyGenModel    = "generation.model"
	keyGenBaseURL  = "generation.base_url"
	keyGenAPIKey   = "generation.api_key"
	keyGenTimeout  = "generation.timeout"
	keyGenRPS      = "generation.requests_per_second"

	keyVectorBackend    = "vector.backend"
	keyQdrantURL        = "vector.qdrant_url"
	keyQdrantCollection = "vector.qdrant_collection"
	keyQdrantAPIKey     = "vector.qdrant_api_key"

	keyChunkTokens   = "chunking.chunk_tokens"
	keyOverlapTokens = "chunking.overlap_tokens"

	keyWorkers      = "ingestion.workers"
	keyBatchSize    = "ingestion.batch_size"
	keyMaxFileBytes = "ingestion.max_file_bytes"

	keyIgnore      = "sources.ignore"
	keyGitHubToken = "sources.github_token"
	keyGitHubRPS   = "sources.github_requests_per_second"

	keyTokenBudget     = "retrieval.token_budget"
	keyTopK            = "retrieval.top_k"
	keyLexicalWeight   = "retrieval.lexical_weight"
	keyQueryTokenLimit = "retrieval.query_token_limit"

	keyTargetAllowance      = "prompt.target_allowance"
	keyInstructionAllowance = "prompt.instruction_allowance"
	keyMaxTokens            = "prompt.max_tokens"
	keyTemperature          = "prompt.temperature"

	keyMaxRetries = "retry.max_retries"
	keyBaseDelay  = "retry.base_delay"
	keyMultiplier = "retry.multiplier"
	keyMaxDelay   = "retry.max_delay"
)

// Environment variables consulted when the config file has no API key.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvQdrantKey    = "QDRANT_API_KEY"
	EnvGitHubToken  = "GITHUB_TOKEN"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindDuration
	kindProvider
	kindBackend
	kindList
)

var keyKinds = map[string]valueKind{
	keyEmbedProvider: kindProvider, keyEmbedModel: kindString, keyEmbedBaseURL: kindString,
	keyEmbedAPIKey: kindString, keyEmbedTimeout: kindDuration, keyEmbedRPS: kindFloat,

	keyGenProvider: kindProvider, keyGenModel: kindString, keyGenBaseURL: kindString,
	keyGenAPIKey: kindString, keyGenTimeout: kindDuration, keyGenRPS: kindFloat,

	keyVectorBackend: kindBackend, keyQdrantURL: kindString,
	keyQdrantCollection: kindString, keyQdrantAPIKey: kindString,

	keyChunkTokens: kindInt, keyOverlapTokens: kindInt,
	keyWorkers: kindInt, keyBatchSize: kindInt, keyMaxFileBytes: kindInt,
	keyIgnore: kindList, keyGitHubToken: kindString, keyGitHubRPS: kindFloat,

	keyTokenBudget: kindInt, keyTopK: kindInt, keyLexicalWeight: kindFloat, keyQueryTokenLimit: kindInt,

	keyTargetAllowance: kindInt, keyInstructionAllowance: kindInt,
	keyMaxTokens: kindInt, keyTemperature: kindFloat,

	keyMaxRetries: kindInt, keyBaseDelay: kindDuration, keyMultiplier: kindFloat, keyMaxDelay: kindDuration,
}

// SettingsService manages application settings: defaults, overridden by the
// config file, with API keys falling back to the environment.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get returns the effective settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.ProviderSettings{
			Provider:          s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:             s.configStore.GetString(keyEmbedModel),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Timeout:           s.getDuration(keyEmbedTimeout, d.Embedding.Timeout),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, d.Embedding.RequestsPerSecond),
		},
		Generation: domain.ProviderSettings{
			Provider:          s.getProvider(keyGenProvider, d.Generation.Provider),
			Model:             s.configStore.GetString(keyGenModel),
			BaseURL:           s.configStore.GetString(keyGenBaseURL),
			APIKey:            s.configStore.GetString(keyGenAPIKey),
			Timeout:           s.getDuration(keyGenTimeout, d.Generation.Timeout),
			RequestsPerSecond: s.getFloat(keyGenRPS, d.Generation.RequestsPerSecond),
		},
		VectorStore: domain.VectorStoreSettings{
			Backend:          s.getBackend(d.VectorStore.Backend),
			QdrantURL:        s.configStore.GetString(keyQdrantURL),
			QdrantCollection: s.getString(keyQdrantCollection, d.VectorStore.QdrantCollection),
			QdrantAPIKey:     s.configStore.GetString(keyQdrantAPIKey),
		},
		Chunking: domain.ChunkingSettings{
			ChunkTokens:   s.getInt(keyChunkTokens, d.Chunking.ChunkTokens),
			OverlapTokens: s.getInt(keyOverlapTokens, d.Chunking.OverlapTokens),
		},
		Ingestion: domain.IngestionSettings{
			Workers:      s.getInt(keyWorkers, d.Ingestion.Workers),
			BatchSize:    s.getInt(keyBatchSize, d.Ingestion.BatchSize),
			MaxFileBytes: int64(s.getInt(keyMaxFileBytes, int(d.Ingestion.MaxFileBytes))),
		},
		Sources: domain.SourceSettings{
			Ignore:                  s.configStore.GetStringSlice(keyIgnore),
			GitHubToken:             s.configStore.GetString(keyGitHubToken),
			GitHubRequestsPerSecond: s.getFloat(keyGitHubRPS, d.Sources.GitHubRequestsPerSecond),
		},
		Retrieval: domain.RetrievalSettings{
			TokenBudget:     s.getInt(keyTokenBudget, d.Retrieval.TokenBudget),
			TopK:            s.getInt(keyTopK, d.Retrieval.TopK),
			LexicalWeight:   s.getFloat(keyLexicalWeight, d.Retrieval.LexicalWeight),
			QueryTokenLimit: s.getInt(keyQueryTokenLimit, d.Retrieval.QueryTokenLimit),
		},
		Prompt: domain.PromptSettings{
			TargetAllowance:      s.getInt(keyTargetAllowance, d.Prompt.TargetAllowance),
			InstructionAllowance: s.getInt(keyInstructionAllowance, d.Prompt.InstructionAllowance),
			MaxTokens:            s.getInt(keyMaxTokens, d.Prompt.MaxTokens),
			Temperature:          s.getFloat(keyTemperature, d.Prompt.Temperature),
		},
		Retry: domain.RetryPolicy{
			MaxRetries: s.getInt(keyMaxRetries, d.Retry.MaxRetries),
			BaseDelay:  s.getDuration(keyBaseDelay, d.Retry.BaseDelay),
			Multiplier: s.getFloat(keyMultiplier, d.Retry.Multiplier),
			MaxDelay:   s.getDuration(keyMaxDelay, d.Retry.MaxDelay),
		},
	}

	s.applyModelDefaults(&settings.Embedding, domain.DefaultEmbeddingModels())
	s.applyModelDefaults(&settings.Generation, domain.DefaultGenerationModels())
	s.applyEnv(settings)

	return settings, nil
}

// Set validates value for key and stores it with its native type.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := keyKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var typed any
	switch kind {
	case kindString:
		typed = value
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		typed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		typed = f
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("%w: %s must be a duration such as 30s", domain.ErrInvalidInput, key)
		}
		typed = d.String()
	case kindProvider:
		p := domain.AIProvider(value)
		if !p.IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, value)
		}
		if key == keyEmbedProvider && !p.SupportsEmbeddings() {
			return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, p)
		}
		typed = value
	case kindBackend:
		if !domain.VectorBackend(value).IsValid() {
			return fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, value)
		}
		typed = value
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		typed = items
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns every configurable key, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(keyKinds))
	for k := range keyKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetEmbeddingProvider configures the embedding provider in one step.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	return s.setProvider(keyEmbedProvider, keyEmbedModel, keyEmbedAPIKey, provider, model, apiKey)
}

// SetGenerationProvider configures the generation provider in one step.
func (s *SettingsService) SetGenerationProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, provider)
	}
	return s.setProvider(keyGenProvider, keyGenModel, keyGenAPIKey, provider, model, apiKey)
}

func (s *SettingsService) setProvider(providerKey, modelKey, apiKeyKey string, provider domain.AIProvider, model, apiKey string) error {
	if provider.RequiresAPIKey() && apiKey == "" && s.envKey(provider) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}
	if err := s.configStore.Set(providerKey, provider.String()); err != nil {
		return fmt.Errorf("save %s: %w", providerKey, err)
	}
	if err := s.configStore.Set(modelKey, model); err != nil {
		return fmt.Errorf("save %s: %w", modelKey, err)
	}
	if apiKey != "" {
		if err := s.configStore.Set(apiKeyKey, apiKey); err != nil {
			return fmt.Errorf("save %s: %w", apiKeyKey, err)
		}
	}
	return nil
}

func (s *SettingsService) applyModelDefaults(p *domain.ProviderSettings, defaults map[domain.AIProvider]string) {
	if p.Model == "" {
		p.Model = defaults[p.Provider]
	}
}

func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}
	if settings.Generation.APIKey == "" {
		settings.Generation.APIKey = s.envKey(settings.Generation.Provider)
	}
	if settings.VectorStore.QdrantAPIKey == "" {
		settings.VectorStore.QdrantAPIKey = s.getenv(EnvQdrantKey)
	}
	if settings.Sources.GitHubToken == "" {
		settings.Sources.GitHubToken = s.getenv(EnvGitHubToken)
	}
}

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(EnvOpenAIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(EnvAnthropicKey)
	default:
		return ""
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(s.configStore.GetString(key))
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	backend := domain.VectorBackend(s.configStore.GetString(keyVectorBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
