package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
	"github.com/custodia-labs/codexai/internal/logger"
)

// Ensure DocumentationService implements the interface.
var _ driving.DocumentationService = (*DocumentationService)(nil)

// DocumentationService composes retrieval, prompt assembly and generation,
// and stores every result as a new record.
type DocumentationService struct {
	projects  driven.ProjectStore
	files     driven.FileStore
	docs      driven.DocumentationStore
	retriever *Retriever
	builder   *PromptBuilder
	generator driven.GenerationService

	prompt  domain.PromptSettings
	policy  domain.RetryPolicy
	timeout time.Duration
	now     func() time.Time
}

// DocumentationConfig holds the generation parameters.
type DocumentationConfig struct {
	Prompt  domain.PromptSettings
	Retry   domain.RetryPolicy
	Timeout time.Duration
}

// NewDocumentationService creates a documentation service. The generator
// may be nil, in which case Generate returns ErrGenerationUnavailable and
// the read operations still work.
func NewDocumentationService(
	projects driven.ProjectStore,
	files driven.FileStore,
	docs driven.DocumentationStore,
	retriever *Retriever,
	builder *PromptBuilder,
	generator driven.GenerationService,
	cfg DocumentationConfig,
) *DocumentationService {
	defaults := domain.DefaultAppSettings().Prompt
	if cfg.Prompt.MaxTokens <= 0 {
		cfg.Prompt.MaxTokens = defaults.MaxTokens
	}
	return &DocumentationService{
		projects:  projects,
		files:     files,
		docs:      docs,
		retriever: retriever,
		builder:   builder,
		generator: generator,
		prompt:    cfg.Prompt,
		policy:    cfg.Retry,
		timeout:   cfg.Timeout,
		now:       time.Now,
	}
}

// Generate produces documentation for one file.
func (s *DocumentationService) Generate(ctx context.Context, req driving.GenerateRequest) (*domain.DocumentationRequest, error) {
	if req.Kind == "" {
		req.Kind = domain.DocReference
	}
	if !req.Kind.IsValid() {
		return nil, fmt.Errorf("%w: documentation kind %q", domain.ErrInvalidInput, req.Kind)
	}
	if req.ProjectID == "" || req.FilePath == "" {
		return nil, fmt.Errorf("%w: project and file path are required", domain.ErrInvalidInput)
	}

	project, err := s.projects.Get(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project.Status != domain.ProjectIndexed {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrProjectNotReady, project.ID, project.Status)
	}

	file, err := s.files.Get(ctx, req.ProjectID, req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", req.FilePath, err)
	}
	if s.generator == nil {
		return nil, domain.ErrGenerationUnavailable
	}

	logger.Section("Generate " + req.FilePath)

	// 1. Retrieve
	related, err := s.retriever.Retrieve(ctx, file, req.TokenBudget, req.TopK)
	if err != nil {
		return nil, &domain.StepError{ProjectID: req.ProjectID, FilePath: req.FilePath, Step: "retrieve", Err: err}
	}

	// 2. Build
	budget := req.TokenBudget
	if budget <= 0 {
		budget = s.retriever.settings.TokenBudget
	}
	prompt, err := s.builder.Build(PromptInput{
		File:    file,
		Context: related,
		Kind:    req.Kind,
		Options: req.Options,
		Target:  req.Target,
		Budget:  budget,
	})
	if err != nil {
		return nil, &domain.StepError{ProjectID: req.ProjectID, FilePath: req.FilePath, Step: "prompt", Err: err}
	}
	logger.Debug("prompt: %d tokens, %d context chunks, truncated=%t", prompt.Tokens, len(prompt.ContextIDs), prompt.TargetTruncated)

	// 3. Generate
	done := logger.Timed("generate %s", req.FilePath)
	result, err := withRetry(ctx, s.policy, s.timeout, "generate", func(ctx context.Context) (*driven.GenerationResult, error) {
		return s.generator.Generate(ctx, driven.GenerationRequest{
			System:      prompt.System,
			Prompt:      prompt.User,
			MaxTokens:   s.prompt.MaxTokens,
			Temperature: s.prompt.Temperature,
		})
	})
	done()
	if err != nil {
		return nil, &domain.StepError{ProjectID: req.ProjectID, FilePath: req.FilePath, Step: "generate", Err: err}
	}

	// 4. Persist
	doc := &domain.DocumentationRequest{
		ID:               uuid.NewString(),
		ProjectID:        req.ProjectID,
		FilePath:         req.FilePath,
		Kind:             req.Kind,
		Target:           req.Target,
		Options:          req.Options,
		Content:          result.Text,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		ContextChunkIDs:  prompt.ContextIDs,
		Model:            result.Model,
		TargetTruncated:  prompt.TargetTruncated,
		CreatedAt:        s.now(),
	}
	if doc.PromptTokens == 0 {
		doc.PromptTokens = prompt.Tokens
	}
	if doc.CompletionTokens == 0 {
		doc.CompletionTokens = domain.EstimateTokens(result.Text)
	}
	if doc.Model == "" {
		doc.Model = s.generator.ModelName()
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("save documentation: %w", err)
	}
	return doc, nil
}

// Get returns one stored record.
func (s *DocumentationService) Get(ctx context.Context, id string) (*domain.DocumentationRequest, error) {
	return s.docs.Get(ctx, id)
}

// Latest returns the newest record for a file.
func (s *DocumentationService) Latest(ctx context.Context, projectID, path string) (*domain.DocumentationRequest, error) {
	history, err := s.History(ctx, projectID, path)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("documentation for %s: %w", path, domain.ErrNotFound)
	}
	return &history[0], nil
}

// History returns every record for a file, newest first.
func (s *DocumentationService) History(ctx context.Context, projectID, path string) ([]domain.DocumentationRequest, error) {
	docs, err := s.docs.ListByFile(ctx, projectID, path)
	if err != nil {
		return nil, fmt.Errorf("list documentation: %w", err)
	}
	return docs, nil
}

// ListProjects returns every project.
func (s *DocumentationService) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return s.projects.List(ctx)
}

// ListFiles returns a project's files with their status.
func (s *DocumentationService) ListFiles(ctx context.Context, projectID string) ([]domain.SourceFile, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("project %s: %w", projectID, err)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return s.files.List(ctx, projectID)
}
