package driven

import (
	"context"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

// VectorIndex stores chunk vectors with their metadata and answers
// project-scoped similarity searches.
//
// Implementations wrap store failures with domain.ErrIndexUnavailable.
type VectorIndex interface {
	// Upsert inserts or replaces chunks by ID. Every chunk must carry an embedding.
	Upsert(ctx context.Context, chunks []domain.Chunk) error

	// DeleteFile removes every chunk of one file in one project.
	DeleteFile(ctx context.Context, projectID, filePath string) error

	// CountFile returns how many chunks of one file the index holds.
	CountFile(ctx context.Context, projectID, filePath string) (int, error)

	// Search returns at most k hits matching filter, ordered by descending
	// score then ascending chunk ID. filter.ProjectID must be set and no hit
	// may belong to another project.
	Search(ctx context.Context, query []float32, filter domain.VectorFilter, k int) ([]domain.VectorHit, error)

	// Close releases resources.
	Close() error
}
