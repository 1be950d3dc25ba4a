// Package messages defines Bubbletea message types for the terminal views.
package messages

import (
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
)

// PollStatus asks the progress view to refresh the ingestion status.
type PollStatus struct{}

// StatusPolled carries a fresh status snapshot.
type StatusPolled struct {
	Status *driving.IngestStatus
	Err    error
}

// IngestFinished carries the outcome of the run.
type IngestFinished struct {
	Result *driving.IngestResult
	Err    error
}
