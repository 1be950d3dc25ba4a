package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
)

// ListProjectsInput is the input schema for the list_projects tool.
type ListProjectsInput struct{}

// ListProjectsOutput is the output schema for the list_projects tool.
type ListProjectsOutput struct {
	Projects []ProjectOutput `json:"projects"`
	Count    int             `json:"count"`
}

// ProjectOutput summarises one project.
type ProjectOutput struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	Files       int      `json:"files"`
	Chunks      int      `json:"chunks"`
	FailedFiles []string `json:"failed_files,omitempty"`
	Reason      string   `json:"failure_reason,omitempty"`
}

// ListFilesInput is the input schema for the list_files tool.
type ListFilesInput struct {
	ProjectID string `json:"project_id" jsonschema:"the project to list files for"`
}

// ListFilesOutput is the output schema for the list_files tool.
type ListFilesOutput struct {
	Files []FileOutput `json:"files"`
	Count int          `json:"count"`
}

// FileOutput summarises one source file.
type FileOutput struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
	Status   string `json:"status"`
	Chunks   int    `json:"chunks"`
	Error    string `json:"error,omitempty"`
}

// GenerateInput is the input schema for the generate_documentation tool.
type GenerateInput struct {
	ProjectID           string `json:"project_id" jsonschema:"the indexed project"`
	FilePath            string `json:"file_path" jsonschema:"path of the file to document, relative to the project root"`
	Kind                string `json:"kind,omitempty" jsonschema:"reference, tutorial or overview (default reference)"`
	Target              string `json:"target,omitempty" jsonschema:"restrict the document to one symbol of the file"`
	IncludeTests        bool   `json:"include_tests,omitempty" jsonschema:"ask for usage examples written as tests"`
	IncludeDependencies bool   `json:"include_dependencies,omitempty" jsonschema:"describe what the file depends on"`
	TokenBudget         int    `json:"token_budget,omitempty" jsonschema:"context token budget override"`
	TopK                int    `json:"top_k,omitempty" jsonschema:"maximum context chunks considered"`
}

// DocumentOutput is a stored documentation record.
type DocumentOutput struct {
	ID               string   `json:"id"`
	ProjectID        string   `json:"project_id"`
	FilePath         string   `json:"file_path"`
	Kind             string   `json:"kind"`
	Target           string   `json:"target,omitempty"`
	Content          string   `json:"content"`
	Model            string   `json:"model"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	ContextChunkIDs  []string `json:"context_chunk_ids,omitempty"`
	TargetTruncated  bool     `json:"target_truncated,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

// GetDocumentationInput is the input schema for the get_documentation tool.
// Either ID, or ProjectID with FilePath, must be set.
type GetDocumentationInput struct {
	ID        string `json:"id,omitempty" jsonschema:"documentation record id"`
	ProjectID string `json:"project_id,omitempty" jsonschema:"project of the file"`
	FilePath  string `json:"file_path,omitempty" jsonschema:"file whose newest documentation is returned"`
}

// IngestStatusInput is the input schema for the ingest_status tool.
type IngestStatusInput struct {
	ProjectID string `json:"project_id" jsonschema:"the project to report on"`
}

// IngestStatusOutput is the output schema for the ingest_status tool.
type IngestStatusOutput struct {
	ProjectID string `json:"project_id"`
	Running   bool   `json:"running"`
	Total     int    `json:"files_total"`
	Processed int    `json:"files_processed"`
	Failed    int    `json:"files_failed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_projects",
		Description: "List ingested projects and their indexing status",
	}, s.handleListProjects)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_files",
		Description: "List the files of a project",
	}, s.handleListFiles)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_documentation",
		Description: "Generate documentation for a file using related code from the same project as context",
	}, s.handleGenerate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_documentation",
		Description: "Fetch a stored document by id, or the newest one for a file",
	}, s.handleGetDocumentation)

	if s.ports.Ingestion != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_status",
			Description: "Report progress of a project's current or last ingestion run",
		}, s.handleIngestStatus)
	}
}

func (s *Server) handleListProjects(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListProjectsInput,
) (*mcp.CallToolResult, ListProjectsOutput, error) {
	projects, err := s.ports.Documentation.ListProjects(ctx)
	if err != nil {
		return nil, ListProjectsOutput{}, err
	}

	output := ListProjectsOutput{
		Projects: make([]ProjectOutput, len(projects)),
		Count:    len(projects),
	}
	for i := range projects {
		output.Projects[i] = toProjectOutput(&projects[i])
	}
	return nil, output, nil
}

func (s *Server) handleListFiles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListFilesInput,
) (*mcp.CallToolResult, ListFilesOutput, error) {
	if input.ProjectID == "" {
		return nil, ListFilesOutput{}, fmt.Errorf("%w: project_id is required", domain.ErrInvalidInput)
	}
	files, err := s.ports.Documentation.ListFiles(ctx, input.ProjectID)
	if err != nil {
		return nil, ListFilesOutput{}, err
	}

	output := ListFilesOutput{
		Files: make([]FileOutput, len(files)),
		Count: len(files),
	}
	for i := range files {
		output.Files[i] = FileOutput{
			Path:     files[i].Path,
			Language: files[i].Language,
			Status:   string(files[i].Status),
			Chunks:   files[i].ChunkCount,
			Error:    files[i].Error,
		}
	}
	return nil, output, nil
}

func (s *Server) handleGenerate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	doc, err := s.ports.Documentation.Generate(ctx, driving.GenerateRequest{
		ProjectID: input.ProjectID,
		FilePath:  input.FilePath,
		Kind:      domain.DocKind(input.Kind),
		Target:    input.Target,
		Options: domain.DocOptions{
			IncludeTests:        input.IncludeTests,
			IncludeDependencies: input.IncludeDependencies,
		},
		TokenBudget: input.TokenBudget,
		TopK:        input.TopK,
	})
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, toDocumentOutput(doc), nil
}

func (s *Server) handleGetDocumentation(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDocumentationInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	var (
		doc *domain.DocumentationRequest
		err error
	)
	switch {
	case input.ID != "":
		doc, err = s.ports.Documentation.Get(ctx, input.ID)
	case input.ProjectID != "" && input.FilePath != "":
		doc, err = s.ports.Documentation.Latest(ctx, input.ProjectID, input.FilePath)
	default:
		return nil, DocumentOutput{}, fmt.Errorf("%w: id or project_id and file_path are required", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, toDocumentOutput(doc), nil
}

func (s *Server) handleIngestStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestStatusInput,
) (*mcp.CallToolResult, IngestStatusOutput, error) {
	if input.ProjectID == "" {
		return nil, IngestStatusOutput{}, fmt.Errorf("%w: project_id is required", domain.ErrInvalidInput)
	}
	status, err := s.ports.Ingestion.Status(ctx, input.ProjectID)
	if err != nil {
		return nil, IngestStatusOutput{}, err
	}
	return nil, IngestStatusOutput{
		ProjectID: status.ProjectID,
		Running:   status.Running,
		Total:     status.FilesTotal,
		Processed: status.FilesProcessed,
		Failed:    status.FilesFailed,
	}, nil
}

func toProjectOutput(p *domain.Project) ProjectOutput {
	return ProjectOutput{
		ID:          p.ID,
		Name:        p.Name,
		Status:      string(p.Status),
		Files:       p.FileCount,
		Chunks:      p.ChunkCount,
		FailedFiles: p.FailedFiles,
		Reason:      p.FailureReason,
	}
}

func toDocumentOutput(d *domain.DocumentationRequest) DocumentOutput {
	return DocumentOutput{
		ID:               d.ID,
		ProjectID:        d.ProjectID,
		FilePath:         d.FilePath,
		Kind:             string(d.Kind),
		Target:           d.Target,
		Content:          d.Content,
		Model:            d.Model,
		PromptTokens:     d.PromptTokens,
		CompletionTokens: d.CompletionTokens,
		ContextChunkIDs:  d.ContextChunkIDs,
		TargetTruncated:  d.TargetTruncated,
		CreatedAt:        d.CreatedAt.UTC().Format(time.RFC3339),
	}
}
