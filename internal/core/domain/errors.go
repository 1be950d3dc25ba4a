package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition indicates a project status change outside the lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrProjectNotReady indicates documentation was requested for a project
	// that has not finished indexing successfully.
	ErrProjectNotReady = errors.New("project not indexed")

	// Pipeline Errors.

	// ErrParseFailure indicates a source file could not be parsed for its language.
	// It is always recovered by falling back to line-based chunking.
	ErrParseFailure = errors.New("parse failure")

	// ErrTransientProvider indicates a provider call failed in a way
	// that may succeed when retried (rate limit, network, timeout, 5xx).
	ErrTransientProvider = errors.New("transient provider failure")

	// ErrFatalProvider indicates a provider rejected the request outright
	// (invalid credentials, invalid input, content policy). Never retried.
	ErrFatalProvider = errors.New("fatal provider failure")

	// ErrIndexUnavailable indicates the vector store could not be reached.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrConcurrentIngestion indicates an ingestion run is already active for the project.
	ErrConcurrentIngestion = errors.New("ingestion already in progress")

	// ErrIngestionFailed indicates at least one file permanently failed during ingestion.
	ErrIngestionFailed = errors.New("ingestion failed")

	// ErrDimensionMismatch indicates an embedding vector has the wrong length for the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// Service Errors.

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGenerationUnavailable indicates the generation service is not configured.
	ErrGenerationUnavailable = errors.New("generation service unavailable")
)

// ProviderError describes a failed call to an embedding or generation provider.
// It matches ErrTransientProvider or ErrFatalProvider with errors.Is depending
// on Retryable.
type ProviderError struct {
	Provider   string
	StatusCode int
	Retryable  bool
	Err        error

	// RetryAfter is the server-requested wait before the next attempt, if any.
	RetryAfter time.Duration
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is reports whether the error belongs to the transient or fatal class.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrTransientProvider:
		return e.Retryable
	case ErrFatalProvider:
		return !e.Retryable
	}
	return false
}

// NewProviderError classifies an HTTP status code into a ProviderError.
// 408, 429 and 5xx are retryable; everything else is fatal.
func NewProviderError(provider string, statusCode int, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Retryable:  IsRetryableStatus(statusCode),
		Err:        err,
	}
}

// NewTransportError wraps a network-level failure as retryable.
func NewTransportError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Retryable: true, Err: err}
}

// IsRetryableStatus reports whether an HTTP status is worth retrying.
func IsRetryableStatus(code int) bool {
	return code == 408 || code == 429 || code >= 500
}

// StepError carries the context needed to diagnose a pipeline failure.
type StepError struct {
	ProjectID string
	FilePath  string
	Step      string
	Err       error
}

func (e *StepError) Error() string {
	if e.FilePath == "" {
		return fmt.Sprintf("project %s: %s: %v", e.ProjectID, e.Step, e.Err)
	}
	return fmt.Sprintf("project %s: %s: %s: %v", e.ProjectID, e.FilePath, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// FileFailure records why a single file could not be ingested.
type FileFailure struct {
	Path   string
	Step   string
	Reason string
}

// IngestionError reports every file that permanently failed in a run.
type IngestionError struct {
	ProjectID string
	Failures  []FileFailure
}

func (e *IngestionError) Error() string {
	paths := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		paths = append(paths, f.Path)
	}
	return fmt.Sprintf("project %s: %d file(s) failed: %s",
		e.ProjectID, len(e.Failures), strings.Join(paths, ", "))
}

// Is matches ErrIngestionFailed.
func (e *IngestionError) Is(target error) bool {
	return target == ErrIngestionFailed
}
