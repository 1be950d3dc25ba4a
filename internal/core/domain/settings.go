package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// SupportsEmbeddings returns true if the provider offers an embeddings API.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// AllEmbeddingProviders returns the providers that offer embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// AllGenerationProviders returns every provider usable for generation.
func AllGenerationProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}
}

// ProviderSettings configures one embedding or generation provider.
type ProviderSettings struct {
	// Provider is the service provider.
	Provider AIProvider

	// Model is the model name. Empty selects the provider default.
	Model string

	// BaseURL is the API endpoint. Empty selects the provider default.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Timeout bounds a single call. Timeouts are retried.
	Timeout time.Duration

	// RequestsPerSecond limits call rate. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the provider is set up.
func (s ProviderSettings) IsConfigured() bool {
	if !s.Provider.IsValid() {
		return false
	}
	if s.Provider.RequiresAPIKey() && s.APIKey == "" {
		return false
	}
	return true
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Vector index backends.
const (
	VectorBackendSQLite VectorBackend = "sqlite"
	VectorBackendMemory VectorBackend = "memory"
	VectorBackendQdrant VectorBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendMemory, VectorBackendQdrant:
		return true
	default:
		return false
	}
}

// VectorStoreSettings configures the vector index.
type VectorStoreSettings struct {
	Backend VectorBackend

	// Qdrant connection, used when Backend is qdrant.
	QdrantURL        string
	QdrantCollection string
	QdrantAPIKey     string
}

// ChunkingSettings configures the chunker's fallback splitter.
type ChunkingSettings struct {
	ChunkTokens   int
	OverlapTokens int
}

// IngestionSettings configures the ingestion orchestrator.
type IngestionSettings struct {
	// Workers is the number of files processed in parallel.
	Workers int

	// BatchSize is the maximum number of chunks per embedding request.
	BatchSize int

	// MaxFileBytes skips larger files when reading sources.
	MaxFileBytes int64
}

// RetrievalSettings configures the retriever.
type RetrievalSettings struct {
	TokenBudget int
	TopK        int

	// LexicalWeight scales the identifier-overlap boost in the composite score.
	LexicalWeight float64

	// QueryTokenLimit caps the text embedded as the retrieval query.
	QueryTokenLimit int
}

// PromptSettings configures prompt assembly and generation.
type PromptSettings struct {
	TargetAllowance      int
	InstructionAllowance int
	MaxTokens            int
	Temperature          float64
}

// SourceSettings configures the source readers.
type SourceSettings struct {
	// Ignore adds .gitignore style patterns to the built-in ones.
	Ignore []string

	// GitHubToken authenticates GitHub reads. Empty reads public
	// repositories at the anonymous rate limit.
	GitHubToken string

	GitHubRequestsPerSecond float64
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding   ProviderSettings
	Generation  ProviderSettings
	VectorStore VectorStoreSettings
	Chunking    ChunkingSettings
	Ingestion   IngestionSettings
	Sources     SourceSettings
	Retrieval   RetrievalSettings
	Prompt      PromptSettings
	Retry       RetryPolicy
}

// DefaultAppSettings returns settings with sensible defaults.
// Providers are left unconfigured; the user chooses them explicitly.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: ProviderSettings{
			Timeout: 60 * time.Second,
		},
		Generation: ProviderSettings{
			Timeout: 120 * time.Second,
		},
		VectorStore: VectorStoreSettings{
			Backend:          VectorBackendSQLite,
			QdrantCollection: "codexai_chunks",
		},
		Chunking: ChunkingSettings{
			ChunkTokens:   500,
			OverlapTokens: 50,
		},
		Ingestion: IngestionSettings{
			Workers:      4,
			BatchSize:    100,
			MaxFileBytes: 1 << 20,
		},
		Sources: SourceSettings{
			GitHubRequestsPerSecond: 10,
		},
		Retrieval: RetrievalSettings{
			TokenBudget:     4000,
			TopK:            10,
			LexicalWeight:   0.05,
			QueryTokenLimit: 8000,
		},
		Prompt: PromptSettings{
			TargetAllowance:      6000,
			InstructionAllowance: 800,
			MaxTokens:            2000,
			Temperature:          0.3,
		},
		Retry: DefaultRetryPolicy(),
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultGenerationModels returns default models for each generation provider.
func DefaultGenerationModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
