package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ChunkKind classifies what a chunk covers.
type ChunkKind string

// Chunk kinds.
const (
	KindImport   ChunkKind = "import"
	KindFunction ChunkKind = "function"
	KindClass    ChunkKind = "class"
	KindModule   ChunkKind = "module"
	KindFallback ChunkKind = "fallback"
)

// IsValid returns true if the kind is recognised.
func (k ChunkKind) IsValid() bool {
	switch k {
	case KindImport, KindFunction, KindClass, KindModule, KindFallback:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k ChunkKind) String() string {
	return string(k)
}

// Priority orders kinds for retrieval tie-breaks. Higher ranks first.
func (k ChunkKind) Priority() int {
	switch k {
	case KindFunction:
		return 4
	case KindClass:
		return 3
	case KindModule, KindFallback:
		return 2
	case KindImport:
		return 1
	default:
		return 0
	}
}

// Chunk is a contiguous, syntactically bounded slice of a source file.
type Chunk struct {
	// ID is derived from project, path and line span.
	ID string

	ProjectID string
	FilePath  string
	Language  string
	Kind      ChunkKind

	// Symbol is the function or class name, when there is one.
	Symbol string

	// StartLine and EndLine are 1-based and inclusive.
	StartLine int
	EndLine   int

	// StartByte is inclusive, EndByte exclusive.
	StartByte int
	EndByte   int

	// Overlap is the number of leading lines repeated from the previous
	// fallback chunk. Always zero for structural chunks.
	Overlap int

	Content    string
	TokenCount int

	// Embedding is set by the embedding batcher.
	Embedding []float32
}

// Tokens returns the stored token estimate, computing it when unset.
func (c *Chunk) Tokens() int {
	if c.TokenCount > 0 {
		return c.TokenCount
	}
	return EstimateTokens(c.Content)
}

// Label renders a short human description such as "function foo".
func (c *Chunk) Label() string {
	if c.Symbol == "" {
		return string(c.Kind)
	}
	return fmt.Sprintf("%s %s", c.Kind, c.Symbol)
}

// ChunkID derives a stable identifier from the project, path and span.
func ChunkID(projectID, filePath string, startLine, endLine int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d:%d", projectID, filePath, startLine, endLine)))
	return hex.EncodeToString(sum[:16])
}
