package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codexai/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
)

type docFixture struct {
	*ingestFixture
	docs      *memory.DocumentationStore
	generator *mockGenerator
	svc       *DocumentationService
}

func newDocFixture(t *testing.T) *docFixture {
	t.Helper()
	f := &docFixture{
		ingestFixture: newIngestFixture(t),
		docs:          memory.NewDocumentationStore(),
		generator:     &mockGenerator{},
	}

	_, err := f.o.Ingest(context.Background(), driving.IngestRequest{ProjectID: "p1", Name: "demo", Files: sampleInputs()})
	require.NoError(t, err)

	retriever := NewRetriever(f.embedder, f.index, f.chunker, domain.RetrievalSettings{LexicalWeight: 0.3}, fastRetry, 0)
	builder := NewPromptBuilder(newMockPromptStore(), domain.PromptSettings{})
	f.svc = NewDocumentationService(f.projects, f.files, f.docs, retriever, builder, f.generator,
		DocumentationConfig{Retry: fastRetry})

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return f
}

func TestGenerate_UsesRelatedContext(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Generate(ctx, driving.GenerateRequest{ProjectID: "p1", FilePath: "b.py"})
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, domain.DocReference, doc.Kind)
	assert.Equal(t, "# Documentation\n", doc.Content)
	assert.Equal(t, "mock-gen", doc.Model)
	assert.Equal(t, 120, doc.PromptTokens)
	assert.Equal(t, 30, doc.CompletionTokens)
	require.NotEmpty(t, doc.ContextChunkIDs)

	hits, err := f.index.Search(ctx, []float32{1, 0, 0}, domain.VectorFilter{ProjectID: "p1"}, 100)
	require.NoError(t, err)
	byID := make(map[string]domain.Chunk, len(hits))
	for _, h := range hits {
		byID[h.Chunk.ID] = h.Chunk
	}
	assert.Equal(t, "a.py", byID[doc.ContextChunkIDs[0]].FilePath, "referenced module ranks first")
	for _, id := range doc.ContextChunkIDs {
		assert.NotEqual(t, "b.py", byID[id].FilePath, "target file never serves as its own context")
	}

	require.Len(t, f.generator.requests, 1)
	req := f.generator.requests[0]
	assert.Contains(t, req.System, "Write reference documentation.")
	assert.Contains(t, req.Prompt, "## File: b.py (python)")
	assert.Contains(t, req.Prompt, "### a.py:")
	assert.Equal(t, domain.DefaultAppSettings().Prompt.MaxTokens, req.MaxTokens)

	stored, err := f.svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, stored.Content)
}

func TestGenerate_HistoryAndLatest(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	first, err := f.svc.Generate(ctx, driving.GenerateRequest{ProjectID: "p1", FilePath: "a.py", Kind: domain.DocTutorial})
	require.NoError(t, err)
	second, err := f.svc.Generate(ctx, driving.GenerateRequest{ProjectID: "p1", FilePath: "a.py", Kind: domain.DocOverview})
	require.NoError(t, err)

	history, err := f.svc.History(ctx, "p1", "a.py")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)

	latest, err := f.svc.Latest(ctx, "p1", "a.py")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, domain.DocOverview, latest.Kind)

	_, err = f.svc.Latest(ctx, "p1", "main.go")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGenerate_RetriesTransientFailures(t *testing.T) {
	f := newDocFixture(t)
	f.generator.err = []error{transientErr(), transientErr()}

	doc, err := f.svc.Generate(context.Background(), driving.GenerateRequest{ProjectID: "p1", FilePath: "b.py"})
	require.NoError(t, err)
	assert.NotNil(t, doc)
	assert.Equal(t, 3, f.generator.calls)
}

func TestGenerate_FatalFailureSavesNothing(t *testing.T) {
	f := newDocFixture(t)
	f.generator.err = []error{fatalErr()}
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, driving.GenerateRequest{ProjectID: "p1", FilePath: "b.py"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFatalProvider)

	var stepErr *domain.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "generate", stepErr.Step)
	assert.Equal(t, "b.py", stepErr.FilePath)
	assert.Equal(t, 1, f.generator.calls)

	history, err := f.svc.History(ctx, "p1", "b.py")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGenerate_Errors(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	require.NoError(t, f.projects.Save(ctx, &domain.Project{ID: "busy", Name: "busy", Status: domain.ProjectProcessing}))

	tests := []struct {
		name    string
		req     driving.GenerateRequest
		wantErr error
	}{
		{"invalid kind", driving.GenerateRequest{ProjectID: "p1", FilePath: "a.py", Kind: "poem"}, domain.ErrInvalidInput},
		{"missing path", driving.GenerateRequest{ProjectID: "p1"}, domain.ErrInvalidInput},
		{"unknown project", driving.GenerateRequest{ProjectID: "nope", FilePath: "a.py"}, domain.ErrNotFound},
		{"project not indexed", driving.GenerateRequest{ProjectID: "busy", FilePath: "a.py"}, domain.ErrProjectNotReady},
		{"unknown file", driving.GenerateRequest{ProjectID: "p1", FilePath: "missing.py"}, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Generate(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 0, f.generator.calls)
}

func TestGenerate_NoGenerator(t *testing.T) {
	f := newDocFixture(t)
	f.svc.generator = nil

	_, err := f.svc.Generate(context.Background(), driving.GenerateRequest{ProjectID: "p1", FilePath: "a.py"})
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)

	_, err = f.svc.ListFiles(context.Background(), "p1")
	assert.NoError(t, err, "read operations work without a generator")
}

func TestDocumentationService_Listing(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	projects, err := f.svc.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "demo", projects[0].Name)

	files, err := f.svc.ListFiles(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	_, err = f.svc.ListFiles(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
