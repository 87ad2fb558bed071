// Package mcp provides an MCP (Model Context Protocol) server adapter for policywatch.
// It lets AI assistants query the monitored policy collections and read summaries.
package mcp

import (
	"errors"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

var (
	// ErrMissingQueryService is returned when the query service is not provided.
	ErrMissingQueryService = errors.New("mcp: query service is required")

	// ErrMissingSummaryService is returned when the summary service is not provided.
	ErrMissingSummaryService = errors.New("mcp: summary service is required")
)

// partialResult reports whether a tool may still answer with the text
// gathered before err.
func partialResult(err error) bool {
	return !errors.Is(err, domain.ErrNotFound) &&
		!errors.Is(err, domain.ErrInvalidInput) &&
		!errors.Is(err, domain.ErrUnknownCollection)
}
