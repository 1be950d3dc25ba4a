package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
)

// mockIngestionService records requests and returns a canned result.
type mockIngestionService struct {
	mu       sync.Mutex
	requests []driving.IngestRequest
	result   func(req driving.IngestRequest) *driving.IngestResult
	err      error
}

func (m *mockIngestionService) Ingest(_ context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	var res *driving.IngestResult
	if m.result != nil {
		res = m.result(req)
	} else {
		res = &driving.IngestResult{
			Project: &domain.Project{ID: req.ProjectID, Name: req.Name, Status: domain.ProjectIndexed},
			Indexed: len(req.Files),
			Chunks:  len(req.Files) * 2,
		}
	}
	return res, m.err
}

func (m *mockIngestionService) Status(_ context.Context, projectID string) (*driving.IngestStatus, error) {
	return &driving.IngestStatus{ProjectID: projectID}, nil
}

func (m *mockIngestionService) Requests() []driving.IngestRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driving.IngestRequest(nil), m.requests...)
}

// mockDocumentationService serves fixed projects, files and records.
type mockDocumentationService struct {
	projects []domain.Project
	files    map[string][]domain.SourceFile
	docs     map[string]*domain.DocumentationRequest
	history  []domain.DocumentationRequest

	generateErr error
	generated   []driving.GenerateRequest
}

func (m *mockDocumentationService) Generate(_ context.Context, req driving.GenerateRequest) (*domain.DocumentationRequest, error) {
	m.generated = append(m.generated, req)
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return &domain.DocumentationRequest{
		ID:               "doc-1",
		ProjectID:        req.ProjectID,
		FilePath:         req.FilePath,
		Kind:             req.Kind,
		Content:          "# " + req.FilePath + "\n\nGenerated.\n",
		Model:            "mock-gen",
		PromptTokens:     100,
		CompletionTokens: 20,
		ContextChunkIDs:  []string{"c1", "c2"},
	}, nil
}

func (m *mockDocumentationService) Get(_ context.Context, id string) (*domain.DocumentationRequest, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("documentation %s: %w", id, domain.ErrNotFound)
	}
	return d, nil
}

func (m *mockDocumentationService) Latest(_ context.Context, _, path string) (*domain.DocumentationRequest, error) {
	if len(m.history) == 0 {
		return nil, fmt.Errorf("documentation for %s: %w", path, domain.ErrNotFound)
	}
	return &m.history[0], nil
}

func (m *mockDocumentationService) History(_ context.Context, _, _ string) ([]domain.DocumentationRequest, error) {
	return m.history, nil
}

func (m *mockDocumentationService) ListProjects(_ context.Context) ([]domain.Project, error) {
	return m.projects, nil
}

func (m *mockDocumentationService) ListFiles(_ context.Context, projectID string) ([]domain.SourceFile, error) {
	files, ok := m.files[projectID]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
	}
	return append([]domain.SourceFile(nil), files...), nil
}

// mockSettingsService stores calls made by the config commands.
type mockSettingsService struct {
	settings domain.AppSettings
	setErr   error
	set      map[string]string

	embedding  []string
	generation []string
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings(), set: make(map[string]string)}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"embedding.model", "embedding.provider", "retrieval.top_k"}
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	m.embedding = []string{string(provider), model, apiKey}
	return nil
}

func (m *mockSettingsService) SetGenerationProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, provider)
	}
	m.generation = []string{string(provider), model, apiKey}
	return nil
}

// fakeSource is a driven.SourceReader over fixed inputs.
type fakeSource struct {
	name  string
	files []domain.SourceInput
	err   error
}

func (f *fakeSource) Read(_ context.Context) ([]domain.SourceInput, error) { return f.files, f.err }
func (f *fakeSource) Describe() string                                     { return f.name }

func openerFor(src *fakeSource) SourceOpener {
	return func(_ context.Context, _ string) (driven.SourceReader, error) {
		return src, nil
	}
}

func demoSource() *fakeSource {
	return &fakeSource{name: "demo", files: []domain.SourceInput{
		{Path: "a.py", Content: []byte("def foo():\n    return 1\n")},
		{Path: "b.py", Content: []byte("from a import foo\n")},
	}}
}

// resetFlags restores every package-level flag variable to its default.
func resetFlags() {
	verbose = false
	ingestProject, ingestName, ingestJSON, ingestNoProgress = "", "", false, false
	watchProject, watchName = "", ""
	projectsJSON = false
	generateKind = string(domain.DocReference)
	generateTarget, generateTests, generateDeps = "", false, false
	generateBudget, generateTopK = 0, 0
	generateOut, generateJSON = "", false
	docsJSON, docsOut = false, ""
	providerModel, providerAPIKey, providerCheck = "", "", false
}

// runCLI executes the root command with the given services and returns
// stdout and stderr.
func runCLI(t *testing.T, svc *Services, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	SetServices(svc)

	origTerminal := isTerminal
	isTerminal = func() bool { return false }
	t.Cleanup(func() {
		isTerminal = origTerminal
		SetServices(&Services{})
		resetFlags()
	})

	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}
