package driven

import "github.com/custodia-labs/codexai/internal/core/domain"

// Chunker splits a source file into ordered chunks.
//
// The returned error only reports a parse failure (domain.ErrParseFailure);
// the chunks are still valid and come from line-based splitting. Binary or
// empty content yields no chunks and no error.
type Chunker interface {
	ChunkFile(file *domain.SourceFile) ([]domain.Chunk, error)
}
