// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Pipeline Interfaces
//
//   - Parser / ParserRegistry: language-specific syntax trees for the chunker
//   - Chunker: splits a file into structural and line-based chunks
//   - EmbeddingService: vector embeddings for chunks and retrieval queries
//   - VectorIndex: chunk vectors with project-scoped similarity search
//   - GenerationService: text generation for documentation
//
// # Persistence Interfaces
//
//   - ProjectStore, FileStore, DocumentationStore: metadata records
//   - ConfigStore: application configuration
//   - PromptStore: user-editable prompt templates
//
// # Input Interfaces
//
//   - SourceReader: produces the file list of a codebase (directory, archive, remote)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
