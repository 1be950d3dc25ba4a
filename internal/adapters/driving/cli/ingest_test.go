package cli

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driven"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
)

func TestIngestCmd_NewProject(t *testing.T) {
	ingestion := &mockIngestionService{}
	out, _, err := runCLI(t, &Services{Ingestion: ingestion, OpenSource: openerFor(demoSource())}, "", "ingest", "./demo")
	require.NoError(t, err)

	reqs := ingestion.Requests()
	require.Len(t, reqs, 1)
	assert.NotEmpty(t, reqs[0].ProjectID, "project ID is assigned before the run")
	assert.Equal(t, "demo", reqs[0].Name)
	assert.Len(t, reqs[0].Files, 2)

	assert.Contains(t, out, "Ingesting 2 files from demo...")
	assert.Contains(t, out, "Status:    indexed")
	assert.Contains(t, out, "Indexed:   2 files, 4 chunks")
}

func TestIngestCmd_ExistingProjectKeepsName(t *testing.T) {
	ingestion := &mockIngestionService{}
	_, _, err := runCLI(t, &Services{Ingestion: ingestion, OpenSource: openerFor(demoSource())}, "",
		"ingest", "./demo", "--project", "p1")
	require.NoError(t, err)

	reqs := ingestion.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "p1", reqs[0].ProjectID)
	assert.Empty(t, reqs[0].Name)
}

func TestIngestCmd_JSON(t *testing.T) {
	ingestion := &mockIngestionService{}
	out, _, err := runCLI(t, &Services{Ingestion: ingestion, OpenSource: openerFor(demoSource())}, "",
		"ingest", "./demo", "-p", "p1", "-n", "renamed", "--json")
	require.NoError(t, err)

	var summary ingestJSONSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "p1", summary.ProjectID)
	assert.Equal(t, "renamed", summary.Name)
	assert.Equal(t, domain.ProjectIndexed, summary.Status)
	assert.Equal(t, 2, summary.Indexed)
}

func TestIngestCmd_Failures(t *testing.T) {
	ingestion := &mockIngestionService{
		result: func(req driving.IngestRequest) *driving.IngestResult {
			return &driving.IngestResult{
				Project:  &domain.Project{ID: req.ProjectID, Name: req.Name, Status: domain.ProjectFailed},
				Indexed:  1,
				Failures: []domain.FileFailure{{Path: "b.py", Step: "embed", Reason: "timeout"}},
			}
		},
		err: &domain.IngestionError{ProjectID: "p1", Failures: []domain.FileFailure{{Path: "b.py"}}},
	}
	out, _, err := runCLI(t, &Services{Ingestion: ingestion, OpenSource: openerFor(demoSource())}, "", "ingest", "./demo")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIngestionFailed)
	assert.Contains(t, out, "Failed:    1 files")
	assert.Contains(t, out, "b.py [embed]: timeout")
}

func TestIngestCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		svc     *Services
		wantErr error
		wantMsg string
	}{
		{
			name:    "not configured",
			svc:     &Services{},
			wantMsg: "ingestion service not configured",
		},
		{
			name: "empty source",
			svc: &Services{
				Ingestion:  &mockIngestionService{},
				OpenSource: openerFor(&fakeSource{name: "empty"}),
			},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "read failure",
			svc: &Services{
				Ingestion:  &mockIngestionService{},
				OpenSource: openerFor(&fakeSource{name: "bad", err: errors.New("permission denied")}),
			},
			wantMsg: "read ./demo: permission denied",
		},
		{
			name: "open failure",
			svc: &Services{
				Ingestion: &mockIngestionService{},
				OpenSource: func(context.Context, string) (driven.SourceReader, error) {
					return nil, errors.New("no such file")
				},
			},
			wantMsg: "open ./demo: no such file",
		},
		{
			name: "concurrent run",
			svc: &Services{
				Ingestion:  &mockIngestionService{err: domain.ErrConcurrentIngestion, result: func(driving.IngestRequest) *driving.IngestResult { return nil }},
				OpenSource: openerFor(demoSource()),
			},
			wantErr: domain.ErrConcurrentIngestion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.svc, "", "ingest", "./demo")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}
