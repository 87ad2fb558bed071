package mcp

import (
	"github.com/custodia-labs/policywatch/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query answers relevance, reference and lookup queries.
	Query driving.QueryService

	// Summary serves cached document keys and persisted summaries.
	Summary driving.SummaryService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p == nil || p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Summary == nil {
		return ErrMissingSummaryService
	}
	return nil
}
