package tui

import (
	"bytes"
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codexai/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
)

func staticStatus(st driving.IngestStatus) StatusFunc {
	return func(context.Context) (*driving.IngestStatus, error) {
		return &st, nil
	}
}

func TestIngestModel_StatusUpdatesProgress(t *testing.T) {
	m := NewIngestModel(context.Background(), "Ingest demo", nil,
		staticStatus(driving.IngestStatus{ProjectID: "p1", Running: true, FilesTotal: 4, FilesProcessed: 2, FilesFailed: 1}))

	_, cmd := m.Update(messages.PollStatus{})
	require.NotNil(t, cmd)
	msg := cmd()
	polled, ok := msg.(messages.StatusPolled)
	require.True(t, ok)

	_, cmd = m.Update(polled)
	assert.NotNil(t, cmd, "polling continues while running")
	assert.InDelta(t, 0.5, m.Percent(), 1e-9)

	view := m.View()
	assert.Contains(t, view, "Ingest demo")
	assert.Contains(t, view, "2/4 files")
	assert.Contains(t, view, "1 failed")
	assert.Contains(t, view, "cancel")
}

func TestIngestModel_StatusErrorKeepsLastSnapshot(t *testing.T) {
	m := NewIngestModel(context.Background(), "t", nil, nil)
	m.Update(messages.StatusPolled{Status: &driving.IngestStatus{FilesTotal: 10, FilesProcessed: 3}})
	m.Update(messages.StatusPolled{Err: errors.New("boom")})

	assert.InDelta(t, 0.3, m.Percent(), 1e-9)
}

func TestIngestModel_FinishQuits(t *testing.T) {
	m := NewIngestModel(context.Background(), "t", nil, nil)
	res := &driving.IngestResult{Indexed: 3}

	_, cmd := m.Update(messages.IngestFinished{Result: res})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	got, err := m.Result()
	require.NoError(t, err)
	assert.Same(t, res, got)

	_, cmd = m.Update(messages.PollStatus{})
	assert.Nil(t, cmd, "no polling after the run finished")
}

func TestIngestModel_ResultBeforeFinish(t *testing.T) {
	m := NewIngestModel(context.Background(), "t", nil, nil)
	_, err := m.Result()
	assert.Error(t, err)
}

func TestIngestModel_CancelKeyCancelsRun(t *testing.T) {
	m := NewIngestModel(context.Background(), "t", nil, nil)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.ErrorIs(t, m.ctx.Err(), context.Canceled)
	assert.Contains(t, m.View(), "Cancelling")
}

func TestIngestModel_PercentBounds(t *testing.T) {
	m := NewIngestModel(context.Background(), "t", nil, nil)
	assert.Zero(t, m.Percent())

	m.current = driving.IngestStatus{FilesTotal: 2, FilesProcessed: 5}
	assert.InDelta(t, 1.0, m.Percent(), 1e-9)
}

func TestRunIngest(t *testing.T) {
	run := func(ctx context.Context) (*driving.IngestResult, error) {
		return &driving.IngestResult{Indexed: 2}, &domain.IngestionError{ProjectID: "p1"}
	}
	status := staticStatus(driving.IngestStatus{FilesTotal: 2})

	var out bytes.Buffer
	res, err := RunIngest(context.Background(), "Ingest", run, status,
		tea.WithInput(nil), tea.WithOutput(&out), tea.WithoutRenderer())

	require.NotNil(t, res)
	assert.Equal(t, 2, res.Indexed)
	assert.ErrorIs(t, err, domain.ErrIngestionFailed)
}
