package mcp

import (
	"github.com/custodia-labs/codexai/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Documentation serves every tool and resource.
	Documentation driving.DocumentationService

	// Ingestion enables the ingest_status tool. Optional.
	Ingestion driving.IngestionService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Documentation == nil {
		return ErrMissingDocumentationService
	}
	return nil
}
