package domain

import (
	"fmt"
	"time"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

// Project lifecycle states.
const (
	// ProjectProcessing means an ingestion run is active.
	ProjectProcessing ProjectStatus = "processing"

	// ProjectIndexed means the last run finished and every file was indexed.
	ProjectIndexed ProjectStatus = "indexed"

	// ProjectFailed means the last run had at least one unrecoverable failure.
	ProjectFailed ProjectStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectProcessing, ProjectIndexed, ProjectFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s ProjectStatus) String() string {
	return string(s)
}

// CanTransition reports whether a project may move from s to next.
// Every run starts at processing, including resubmissions of failed or
// indexed projects, and ends at indexed or failed.
func (s ProjectStatus) CanTransition(next ProjectStatus) bool {
	switch next {
	case ProjectProcessing:
		return s == "" || s.IsValid()
	case ProjectIndexed, ProjectFailed:
		return s == ProjectProcessing
	default:
		return false
	}
}

// Project is an uploaded codebase.
type Project struct {
	// ID is the unique identifier for the project.
	ID string

	// Name is the human-readable display name.
	Name string

	// Status is the lifecycle state.
	Status ProjectStatus

	// FileCount is the number of files recorded by the last run.
	FileCount int

	// ChunkCount is the number of chunks indexed across all files.
	ChunkCount int

	// FailureReason explains a failed status. Empty otherwise.
	FailureReason string

	// FailedFiles lists the paths that failed in the last run.
	FailedFiles []string

	// CreatedAt is when the project was first accepted.
	CreatedAt time.Time

	// UpdatedAt is when the status last changed.
	UpdatedAt time.Time
}

// Transition moves the project to next, stamping UpdatedAt.
func (p *Project) Transition(next ProjectStatus, at time.Time) error {
	if !p.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, next)
	}
	p.Status = next
	p.UpdatedAt = at
	if next == ProjectProcessing {
		p.FailureReason = ""
		p.FailedFiles = nil
	}
	return nil
}
