// Package domain defines the core business entities for CodexAI.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Project: an uploaded codebase and its lifecycle status
//   - SourceFile: one file of a project, with content hash for caching
//   - Chunk: a syntactically bounded slice of a file, the unit of retrieval
//   - DocumentationRequest: one append-only generation result
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
