package mcp

import (
	"context"
	"fmt"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
)

// mockDocumentationService is a mock implementation of driving.DocumentationService.
type mockDocumentationService struct {
	projects []domain.Project
	files    map[string][]domain.SourceFile
	docs     map[string]*domain.DocumentationRequest
	latest   map[string]*domain.DocumentationRequest
	err      error

	generated []driving.GenerateRequest
}

func (m *mockDocumentationService) Generate(_ context.Context, req driving.GenerateRequest) (*domain.DocumentationRequest, error) {
	m.generated = append(m.generated, req)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.DocumentationRequest{
		ID:        "doc-new",
		ProjectID: req.ProjectID,
		FilePath:  req.FilePath,
		Kind:      req.Kind,
		Target:    req.Target,
		Options:   req.Options,
		Content:   "# " + req.FilePath,
		Model:     "mock-gen",
	}, nil
}

func (m *mockDocumentationService) Get(_ context.Context, id string) (*domain.DocumentationRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("documentation %s: %w", id, domain.ErrNotFound)
	}
	return d, nil
}

func (m *mockDocumentationService) Latest(_ context.Context, projectID, path string) (*domain.DocumentationRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.latest[projectID+"/"+path]
	if !ok {
		return nil, fmt.Errorf("documentation for %s: %w", path, domain.ErrNotFound)
	}
	return d, nil
}

func (m *mockDocumentationService) History(_ context.Context, _, _ string) ([]domain.DocumentationRequest, error) {
	return nil, m.err
}

func (m *mockDocumentationService) ListProjects(_ context.Context) ([]domain.Project, error) {
	return m.projects, m.err
}

func (m *mockDocumentationService) ListFiles(_ context.Context, projectID string) ([]domain.SourceFile, error) {
	if m.err != nil {
		return nil, m.err
	}
	files, ok := m.files[projectID]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
	}
	return files, nil
}

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	status *driving.IngestStatus
	err    error
}

func (m *mockIngestionService) Ingest(_ context.Context, _ driving.IngestRequest) (*driving.IngestResult, error) {
	return nil, m.err
}

func (m *mockIngestionService) Status(_ context.Context, _ string) (*driving.IngestStatus, error) {
	return m.status, m.err
}
