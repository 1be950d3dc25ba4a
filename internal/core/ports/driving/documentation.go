package driving

import (
	"context"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

// DocumentationService answers "document this file" requests and exposes the
// read side used by the CLI and MCP surfaces.
type DocumentationService interface {
	// Generate retrieves context, builds a prompt, calls the generation
	// provider and stores a new DocumentationRequest.
	Generate(ctx context.Context, req GenerateRequest) (*domain.DocumentationRequest, error)

	// Get returns one stored record.
	Get(ctx context.Context, id string) (*domain.DocumentationRequest, error)

	// Latest returns the newest record for a file.
	Latest(ctx context.Context, projectID, path string) (*domain.DocumentationRequest, error)

	// History returns every record for a file, newest first.
	History(ctx context.Context, projectID, path string) ([]domain.DocumentationRequest, error)

	// ListProjects returns every project.
	ListProjects(ctx context.Context) ([]domain.Project, error)

	// ListFiles returns a project's files with their status.
	ListFiles(ctx context.Context, projectID string) ([]domain.SourceFile, error)
}

// GenerateRequest is one documentation request.
type GenerateRequest struct {
	ProjectID string
	FilePath  string
	Kind      domain.DocKind

	// Target restricts the document to one symbol of the file.
	Target string

	Options domain.DocOptions

	// TokenBudget and TopK override retrieval defaults when positive.
	TokenBudget int
	TopK        int
}
