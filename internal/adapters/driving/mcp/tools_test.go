package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
)

func newTestServer(t *testing.T, docs *mockDocumentationService, ingest driving.IngestionService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Documentation: docs, Ingestion: ingest})
	require.NoError(t, err)
	return server
}

func TestServer_handleListProjects(t *testing.T) {
	ctx := context.Background()

	t.Run("returns projects", func(t *testing.T) {
		docs := &mockDocumentationService{projects: []domain.Project{
			{ID: "p1", Name: "demo", Status: domain.ProjectIndexed, FileCount: 3, ChunkCount: 9},
			{ID: "p2", Name: "broken", Status: domain.ProjectFailed, FailedFiles: []string{"x.py"}, FailureReason: "1 file failed"},
		}}
		server := newTestServer(t, docs, nil)

		_, output, err := server.handleListProjects(ctx, nil, ListProjectsInput{})
		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		assert.Equal(t, ProjectOutput{ID: "p1", Name: "demo", Status: "indexed", Files: 3, Chunks: 9}, output.Projects[0])
		assert.Equal(t, []string{"x.py"}, output.Projects[1].FailedFiles)
		assert.Equal(t, "1 file failed", output.Projects[1].Reason)
	})

	t.Run("empty", func(t *testing.T) {
		server := newTestServer(t, &mockDocumentationService{}, nil)
		_, output, err := server.handleListProjects(ctx, nil, ListProjectsInput{})
		require.NoError(t, err)
		assert.Zero(t, output.Count)
		assert.Empty(t, output.Projects)
	})

	t.Run("propagates error", func(t *testing.T) {
		server := newTestServer(t, &mockDocumentationService{err: errors.New("db down")}, nil)
		_, _, err := server.handleListProjects(ctx, nil, ListProjectsInput{})
		require.Error(t, err)
	})
}

func TestServer_handleListFiles(t *testing.T) {
	ctx := context.Background()
	docs := &mockDocumentationService{files: map[string][]domain.SourceFile{
		"p1": {
			{Path: "a.py", Language: "python", Status: domain.FileIndexed, ChunkCount: 2},
			{Path: "b.py", Language: "python", Status: domain.FileFailed, Error: "embed: timeout"},
		},
	}}
	server := newTestServer(t, docs, nil)

	_, output, err := server.handleListFiles(ctx, nil, ListFilesInput{ProjectID: "p1"})
	require.NoError(t, err)
	require.Equal(t, 2, output.Count)
	assert.Equal(t, FileOutput{Path: "a.py", Language: "python", Status: "indexed", Chunks: 2}, output.Files[0])
	assert.Equal(t, "embed: timeout", output.Files[1].Error)

	_, _, err = server.handleListFiles(ctx, nil, ListFilesInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = server.handleListFiles(ctx, nil, ListFilesInput{ProjectID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestServer_handleGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("maps input to request", func(t *testing.T) {
		docs := &mockDocumentationService{}
		server := newTestServer(t, docs, nil)

		_, output, err := server.handleGenerate(ctx, nil, GenerateInput{
			ProjectID:           "p1",
			FilePath:            "b.py",
			Kind:                "tutorial",
			Target:              "bar",
			IncludeTests:        true,
			IncludeDependencies: true,
			TokenBudget:         1200,
			TopK:                4,
		})
		require.NoError(t, err)
		require.Len(t, docs.generated, 1)
		assert.Equal(t, driving.GenerateRequest{
			ProjectID:   "p1",
			FilePath:    "b.py",
			Kind:        domain.DocTutorial,
			Target:      "bar",
			Options:     domain.DocOptions{IncludeTests: true, IncludeDependencies: true},
			TokenBudget: 1200,
			TopK:        4,
		}, docs.generated[0])
		assert.Equal(t, "doc-new", output.ID)
		assert.Equal(t, "# b.py", output.Content)
		assert.Equal(t, "tutorial", output.Kind)
	})

	t.Run("propagates error", func(t *testing.T) {
		docs := &mockDocumentationService{err: domain.ErrProjectNotReady}
		server := newTestServer(t, docs, nil)
		_, _, err := server.handleGenerate(ctx, nil, GenerateInput{ProjectID: "p1", FilePath: "b.py"})
		assert.ErrorIs(t, err, domain.ErrProjectNotReady)
	})
}

func TestServer_handleGetDocumentation(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	byID := &domain.DocumentationRequest{ID: "d1", ProjectID: "p1", FilePath: "a.py", Kind: domain.DocReference, Content: "old", CreatedAt: created}
	newest := &domain.DocumentationRequest{ID: "d2", ProjectID: "p1", FilePath: "a.py", Kind: domain.DocOverview, Content: "new", CreatedAt: created}
	docs := &mockDocumentationService{
		docs:   map[string]*domain.DocumentationRequest{"d1": byID},
		latest: map[string]*domain.DocumentationRequest{"p1/a.py": newest},
	}
	server := newTestServer(t, docs, nil)

	tests := []struct {
		name    string
		input   GetDocumentationInput
		wantID  string
		wantErr error
	}{
		{name: "by id", input: GetDocumentationInput{ID: "d1"}, wantID: "d1"},
		{name: "id wins over file", input: GetDocumentationInput{ID: "d1", ProjectID: "p1", FilePath: "a.py"}, wantID: "d1"},
		{name: "latest for file", input: GetDocumentationInput{ProjectID: "p1", FilePath: "a.py"}, wantID: "d2"},
		{name: "unknown id", input: GetDocumentationInput{ID: "nope"}, wantErr: domain.ErrNotFound},
		{name: "no documentation for file", input: GetDocumentationInput{ProjectID: "p1", FilePath: "b.py"}, wantErr: domain.ErrNotFound},
		{name: "path without project", input: GetDocumentationInput{FilePath: "a.py"}, wantErr: domain.ErrInvalidInput},
		{name: "empty", input: GetDocumentationInput{}, wantErr: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, output, err := server.handleGetDocumentation(ctx, nil, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, output.ID)
			assert.Equal(t, "2026-03-01T12:00:00Z", output.CreatedAt)
		})
	}
}

func TestServer_handleIngestStatus(t *testing.T) {
	ctx := context.Background()
	ingest := &mockIngestionService{status: &driving.IngestStatus{
		ProjectID: "p1", Running: true, FilesTotal: 10, FilesProcessed: 4, FilesFailed: 1,
	}}
	server := newTestServer(t, &mockDocumentationService{}, ingest)

	_, output, err := server.handleIngestStatus(ctx, nil, IngestStatusInput{ProjectID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, IngestStatusOutput{ProjectID: "p1", Running: true, Total: 10, Processed: 4, Failed: 1}, output)

	_, _, err = server.handleIngestStatus(ctx, nil, IngestStatusInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
