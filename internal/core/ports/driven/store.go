package driven

import (
	"context"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

// ProjectStore persists projects.
type ProjectStore interface {
	// Save creates or updates a project.
	Save(ctx context.Context, project *domain.Project) error

	// Get retrieves a project by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Project, error)

	// List returns all projects, newest first.
	List(ctx context.Context) ([]domain.Project, error)

	// Delete removes a project and its files and documentation.
	Delete(ctx context.Context, id string) error
}

// FileStore persists source file records.
type FileStore interface {
	// Save creates or updates a file record keyed by project and path.
	Save(ctx context.Context, file *domain.SourceFile) error

	// Get retrieves one file. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, projectID, path string) (*domain.SourceFile, error)

	// List returns every file of a project ordered by path.
	List(ctx context.Context, projectID string) ([]domain.SourceFile, error)

	// Delete removes one file record.
	Delete(ctx context.Context, projectID, path string) error
}

// DocumentationStore persists generated documentation. Records are never updated.
type DocumentationStore interface {
	// Create stores a new record.
	Create(ctx context.Context, doc *domain.DocumentationRequest) error

	// Get retrieves a record by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.DocumentationRequest, error)

	// ListByFile returns every record for a file, newest first.
	ListByFile(ctx context.Context, projectID, path string) ([]domain.DocumentationRequest, error)
}
