package driven

import (
	"context"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

// SourceReader produces the extracted file list of a codebase.
//
// Implementations include a local directory walker, a zip archive reader
// and a GitHub repository reader.
type SourceReader interface {
	// Read returns every ingestible file.
	Read(ctx context.Context) ([]domain.SourceInput, error)

	// Describe returns a short human-readable origin, used as the default project name.
	Describe() string
}
