package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
	"github.com/custodia-labs/codexai/internal/logger"
)

// Ensure IngestionOrchestrator implements the interface.
var _ driving.IngestionService = (*IngestionOrchestrator)(nil)

// Ingestion steps named in failures.
const (
	stepChunk  = "chunk"
	stepEmbed  = "embed"
	stepIndex  = "index"
	stepRetire = "retire"
)

// IngestionOrchestrator drives projects through chunk, embed and index.
type IngestionOrchestrator struct {
	projects driven.ProjectStore
	files    driven.FileStore
	index    driven.VectorIndex
	chunker  driven.Chunker
	batcher  *EmbeddingBatcher
	workers  int

	// fingerprint tags file records with the index and embedding space
	// their chunks live in.
	fingerprint string

	locks *keyedLock
	now   func() time.Time

	// Status tracking
	mu     sync.RWMutex
	status map[string]*driving.IngestStatus
}

// IngestionOption configures an IngestionOrchestrator.
type IngestionOption func(*IngestionOrchestrator)

// WithIndexFingerprint records fp on every indexed file. A file whose
// record carries another fingerprint is re-embedded even if its content
// is unchanged. See domain.IndexFingerprint.
func WithIndexFingerprint(fp string) IngestionOption {
	return func(o *IngestionOrchestrator) {
		o.fingerprint = fp
	}
}

// NewIngestionOrchestrator creates an orchestrator processing up to workers
// files in parallel. workers <= 0 selects 4.
func NewIngestionOrchestrator(
	projects driven.ProjectStore,
	files driven.FileStore,
	index driven.VectorIndex,
	chunker driven.Chunker,
	batcher *EmbeddingBatcher,
	workers int,
	opts ...IngestionOption,
) *IngestionOrchestrator {
	if workers <= 0 {
		workers = 4
	}
	o := &IngestionOrchestrator{
		projects: projects,
		files:    files,
		index:    index,
		chunker:  chunker,
		batcher:  batcher,
		workers:  workers,
		locks:    newKeyedLock(),
		now:      time.Now,
		status:   make(map[string]*driving.IngestStatus),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// fileOutcome is the result of one per-file task. Tasks only fill their
// own outcome; the orchestrator reads them after every task has finished.
type fileOutcome struct {
	file      *domain.SourceFile
	unchanged bool
	chunks    int
	failure   *domain.FileFailure
}

// Ingest runs one ingestion. See driving.IngestionService.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *IngestionOrchestrator) Ingest(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	projectID := req.ProjectID
	if projectID == "" {
		projectID = uuid.NewString()
	}

	release, ok := o.locks.TryAcquire(projectID)
	if !ok {
		return nil, &domain.StepError{ProjectID: projectID, Step: "ingest", Err: domain.ErrConcurrentIngestion}
	}
	defer release()

	// 1. Load or create the project and enter processing
	project, err := o.projects.Get(ctx, projectID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		project = &domain.Project{ID: projectID, Name: req.Name, CreatedAt: o.now()}
	case err != nil:
		return nil, fmt.Errorf("get project: %w", err)
	}
	if req.Name != "" {
		project.Name = req.Name
	}
	if project.Name == "" {
		project.Name = projectID
	}
	if err := project.Transition(domain.ProjectProcessing, o.now()); err != nil {
		return nil, err
	}
	if err := o.projects.Save(ctx, project); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}

	inputs := dedupe(req.Files)
	o.startStatus(projectID, len(inputs))
	defer o.finishStatus(projectID)

	logger.Section("Ingest " + project.Name)
	logger.Info("project %s: %d files", projectID, len(inputs))

	// 2. Previous state, for the hash cache and retirement
	previous := make(map[string]*domain.SourceFile)
	prevFiles, err := o.files.List(ctx, projectID)
	if err != nil {
		return nil, o.abort(ctx, project, fmt.Errorf("list files: %w", err))
	}
	for i := range prevFiles {
		previous[prevFiles[i].Path] = &prevFiles[i]
	}

	// 3. Per-file work in parallel
	outcomes := make([]fileOutcome, len(inputs))
	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, in := range inputs {
		g.Go(func() error {
			outcomes[i] = o.ingestFile(ctx, projectID, in, previous[in.Path])
			o.advance(projectID, outcomes[i].failure != nil)
			return nil
		})
	}
	_ = g.Wait()

	// 4. Single writer from here on: retire, record, decide the status
	result := &driving.IngestResult{}
	present := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		present[in.Path] = true
	}

	// Status must be persisted even if the caller gave up.
	saveCtx := context.WithoutCancel(ctx)

	var failures []domain.FileFailure
	for path := range previous {
		if present[path] {
			continue
		}
		if err := o.retire(saveCtx, projectID, path); err != nil {
			failures = append(failures, domain.FileFailure{Path: path, Step: stepRetire, Reason: err.Error()})
			continue
		}
		result.Removed++
	}

	chunkTotal := 0
	for _, oc := range outcomes {
		switch {
		case oc.failure != nil:
			failures = append(failures, *oc.failure)
		case oc.unchanged:
			result.Unchanged++
		default:
			result.Indexed++
			result.Chunks += oc.chunks
		}
		if !oc.unchanged {
			if err := o.files.Save(saveCtx, oc.file); err != nil {
				failures = append(failures, domain.FileFailure{Path: oc.file.Path, Step: stepIndex, Reason: err.Error()})
			}
		}
		if oc.failure == nil {
			chunkTotal += oc.file.ChunkCount
		}
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })

	project.FileCount = len(inputs)
	project.ChunkCount = chunkTotal
	next := domain.ProjectIndexed
	if len(failures) > 0 {
		next = domain.ProjectFailed
		project.FailedFiles = failedPaths(failures)
		project.FailureReason = fmt.Sprintf("%d file(s) failed: %s", len(failures), failures[0].Reason)
	}
	if err := project.Transition(next, o.now()); err != nil {
		return nil, err
	}
	if err := o.projects.Save(saveCtx, project); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}

	result.Project = project
	result.Failures = failures

	logger.Info("project %s %s: %d indexed, %d unchanged, %d removed, %d failed, %d chunks",
		projectID, project.Status, result.Indexed, result.Unchanged, result.Removed, len(failures), result.Chunks)

	if len(failures) > 0 {
		return result, &domain.IngestionError{ProjectID: projectID, Failures: failures}
	}
	return result, nil
}

// ingestFile chunks, embeds and indexes one file. It never returns an
// error; failures are recorded in the outcome.
func (o *IngestionOrchestrator) ingestFile(
	ctx context.Context,
	projectID string,
	in domain.SourceInput,
	prev *domain.SourceFile,
) fileOutcome {
	hash := domain.ContentHash(in.Content)
	file := &domain.SourceFile{
		ProjectID:        projectID,
		Path:             in.Path,
		Language:         domain.DetectLanguage(in.Path, in.LanguageHint),
		ContentHash:      hash,
		Size:             int64(len(in.Content)),
		Content:          string(in.Content),
		Status:           domain.FileIndexed,
		IndexedAt:        o.now(),
		IndexFingerprint: o.fingerprint,
	}

	if prev.Unchanged(hash, o.fingerprint) {
		held, err := o.indexHolds(ctx, prev)
		if err != nil {
			return o.failFile(ctx, file, stepIndex, err)
		}
		if held {
			logger.Debug("%s: unchanged, skipping", in.Path)
			return fileOutcome{file: prev, unchanged: true}
		}
		logger.Warn("%s: index is missing chunks of unchanged file, re-embedding", in.Path)
	}

	if err := ctx.Err(); err != nil {
		return o.failFile(ctx, file, stepChunk, err)
	}

	var chunks []domain.Chunk
	if textual(in.Content) {
		var perr error
		chunks, perr = o.chunker.ChunkFile(file)
		if perr != nil {
			logger.Warn("%s: %v, using line chunks", in.Path, perr)
		}
	} else {
		// Binary files are recorded without content and produce no chunks.
		file.Content = ""
	}

	if len(chunks) > 0 {
		if err := o.batcher.Embed(ctx, chunks); err != nil {
			return o.failFile(ctx, file, stepEmbed, err)
		}
	}

	// Replace whatever the index holds for this path.
	if err := o.index.DeleteFile(ctx, projectID, in.Path); err != nil {
		return o.failFile(ctx, file, stepIndex, err)
	}
	if len(chunks) > 0 {
		if err := o.index.Upsert(ctx, chunks); err != nil {
			return o.failFile(ctx, file, stepIndex, err)
		}
	}

	file.ChunkCount = len(chunks)
	logger.Debug("%s: %d chunks indexed", in.Path, len(chunks))
	return fileOutcome{file: file, chunks: len(chunks)}
}

// indexHolds reports whether the index still has every chunk recorded for
// the file. The file store and the index can diverge when the backend is
// in-memory, reset or swapped.
func (o *IngestionOrchestrator) indexHolds(ctx context.Context, prev *domain.SourceFile) (bool, error) {
	if prev.ChunkCount == 0 {
		return true, nil
	}
	n, err := o.index.CountFile(ctx, prev.ProjectID, prev.Path)
	if err != nil {
		return false, err
	}
	return n == prev.ChunkCount, nil
}

// failFile records a failure and drops any chunks the index still holds
// for the file, so a failed file never serves stale context.
func (o *IngestionOrchestrator) failFile(ctx context.Context, file *domain.SourceFile, step string, err error) fileOutcome {
	stepErr := &domain.StepError{ProjectID: file.ProjectID, FilePath: file.Path, Step: step, Err: err}
	logger.Error("%v", stepErr)

	if delErr := o.index.DeleteFile(context.WithoutCancel(ctx), file.ProjectID, file.Path); delErr != nil {
		logger.Warn("%s: clear stale chunks: %v", file.Path, delErr)
	}

	file.Status = domain.FileFailed
	file.Error = fmt.Sprintf("%s: %v", step, err)
	file.ChunkCount = 0
	return fileOutcome{
		file:    file,
		failure: &domain.FileFailure{Path: file.Path, Step: step, Reason: err.Error()},
	}
}

// retire removes a file that is no longer part of the project.
func (o *IngestionOrchestrator) retire(ctx context.Context, projectID, path string) error {
	if err := o.index.DeleteFile(ctx, projectID, path); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := o.files.Delete(ctx, projectID, path); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	logger.Debug("%s: retired", path)
	return nil
}

// abort marks the project failed when the run cannot start processing files.
func (o *IngestionOrchestrator) abort(ctx context.Context, project *domain.Project, err error) error {
	project.FailureReason = err.Error()
	if terr := project.Transition(domain.ProjectFailed, o.now()); terr == nil {
		if serr := o.projects.Save(context.WithoutCancel(ctx), project); serr != nil {
			logger.Error("save project %s: %v", project.ID, serr)
		}
	}
	return &domain.StepError{ProjectID: project.ID, Step: "ingest", Err: err}
}

// Status returns progress for a project's active or last run.
func (o *IngestionOrchestrator) Status(_ context.Context, projectID string) (*driving.IngestStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if s, ok := o.status[projectID]; ok {
		// Return a copy to avoid races with running tasks
		cp := *s
		return &cp, nil
	}
	return &driving.IngestStatus{ProjectID: projectID}, nil
}

func (o *IngestionOrchestrator) startStatus(projectID string, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status[projectID] = &driving.IngestStatus{ProjectID: projectID, Running: true, FilesTotal: total}
}

func (o *IngestionOrchestrator) advance(projectID string, failed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.status[projectID]; ok {
		s.FilesProcessed++
		if failed {
			s.FilesFailed++
		}
	}
}

func (o *IngestionOrchestrator) finishStatus(projectID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.status[projectID]; ok {
		s.Running = false
	}
}

// dedupe keeps the first input for every path and normalises separators.
func dedupe(files []domain.SourceInput) []domain.SourceInput {
	seen := make(map[string]bool, len(files))
	out := make([]domain.SourceInput, 0, len(files))
	for _, f := range files {
		f.Path = strings.TrimPrefix(strings.ReplaceAll(f.Path, "\\", "/"), "./")
		if f.Path == "" || seen[f.Path] {
			if f.Path != "" {
				logger.Warn("%s: duplicate path ignored", f.Path)
			}
			continue
		}
		seen[f.Path] = true
		out = append(out, f)
	}
	return out
}

func textual(content []byte) bool {
	for _, b := range content {
		if b == 0 {
			return false
		}
	}
	return utf8.Valid(content)
}

func failedPaths(failures []domain.FileFailure) []string {
	paths := make([]string, len(failures))
	for i, f := range failures {
		paths[i] = f.Path
	}
	return paths
}
