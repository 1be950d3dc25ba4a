package driving

import (
	"context"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

// IngestionService drives a project through chunking, embedding and indexing.
type IngestionService interface {
	// Ingest runs one ingestion of the given files. A run for a project that
	// already has one active returns domain.ErrConcurrentIngestion without
	// touching any state. When files fail the result is still returned
	// together with a *domain.IngestionError.
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)

	// Status returns progress for a project's active or last run.
	Status(ctx context.Context, projectID string) (*IngestStatus, error)
}

// IngestRequest is one upload of a codebase.
type IngestRequest struct {
	// ProjectID identifies an existing project. Empty creates a new one.
	ProjectID string

	// Name is the display name for a new project.
	Name string

	// Files is the complete extracted file list. Previously recorded files
	// missing from it are retired.
	Files []domain.SourceInput
}

// IngestResult summarises a finished run.
type IngestResult struct {
	Project *domain.Project

	// Indexed counts files chunked, embedded and indexed in this run.
	Indexed int

	// Unchanged counts files skipped because their content hash matched.
	Unchanged int

	// Removed counts retired files.
	Removed int

	// Chunks counts chunks written to the index in this run.
	Chunks int

	Failures []domain.FileFailure
}

// IngestStatus is a point-in-time view of an ingestion run.
type IngestStatus struct {
	ProjectID string

	// Running indicates if ingestion is currently in progress.
	Running bool

	FilesTotal     int
	FilesProcessed int
	FilesFailed    int
}
