// Package mcp exposes codexai over the Model Context Protocol so AI
// assistants can list projects and request documentation.
package mcp

import "errors"

// ErrMissingDocumentationService is returned when the documentation service is not provided.
var ErrMissingDocumentationService = errors.New("mcp: documentation service is required")
