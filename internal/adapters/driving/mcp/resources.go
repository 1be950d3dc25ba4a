package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/codexai/internal/core/domain"
)

const uriScheme = "codexai://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "projects",
		Name:        "projects",
		Description: "Ingested projects and their status",
		MIMEType:    "application/json",
	}, s.handleProjectsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "projects/{projectId}/files",
		Name:        "project-files",
		Description: "Files recorded for a project",
		MIMEType:    "application/json",
	}, s.handleFilesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "docs/{docId}",
		Name:        "documentation",
		Description: "A generated document",
		MIMEType:    "text/markdown",
	}, s.handleDocResource)
}

func (s *Server) handleProjectsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	projects, err := s.ports.Documentation.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	infos := make([]ProjectOutput, len(projects))
	for i := range projects {
		infos[i] = toProjectOutput(&projects[i])
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleFilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	projectID := extractProjectID(req.Params.URI)
	if projectID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	files, err := s.ports.Documentation.ListFiles(ctx, projectID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	infos := make([]FileOutput, len(files))
	for i := range files {
		infos[i] = FileOutput{
			Path:     files[i].Path,
			Language: files[i].Language,
			Status:   string(files[i].Status),
			Chunks:   files[i].ChunkCount,
			Error:    files[i].Error,
		}
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleDocResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Documentation.Get(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting documentation: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     doc.Content,
		}},
	}, nil
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractProjectID extracts the project ID from codexai://projects/{projectId}/files.
func extractProjectID(uri string) string {
	rest, ok := strings.CutPrefix(uri, uriScheme+"projects/")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, "/files")
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}

// extractDocID extracts the record ID from codexai://docs/{docId}.
func extractDocID(uri string) string {
	id, ok := strings.CutPrefix(uri, uriScheme+"docs/")
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
