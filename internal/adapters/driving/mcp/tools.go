package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/logger"
)

// QueryInput is the input schema for match_documents and lookup_query.
type QueryInput struct {
	Query string `json:"query" jsonschema:"the question or topic to look for in the policy documents"`
}

// MatchOutput is the output schema for match_documents.
type MatchOutput struct {
	Documents []string `json:"documents"`
	Count     int      `json:"count"`
}

// ReferencesInput is the input schema for document_references.
type ReferencesInput struct {
	Query    string `json:"query" jsonschema:"the topic to quote from the document"`
	Document string `json:"document" jsonschema:"the document name without extension"`
}

// TextOutput is the output schema for tools that return free text.
type TextOutput struct {
	Document string `json:"document,omitempty"`
	Text     string `json:"text"`
	Error    string `json:"error,omitempty"`
}

// SummaryInput is the input schema for get_summary.
type SummaryInput struct {
	Document   string `json:"document" jsonschema:"the document name without extension"`
	Collection string `json:"collection" jsonschema:"government or hospital"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "match_documents",
		Description: "List the policy documents whose summaries relate to a query",
	}, s.handleMatchDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "document_references",
		Description: "Quote the pages of one policy document that reference a query",
	}, s.handleDocumentReferences)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "lookup_query",
		Description: "Answer a query directly and append references from every policy document",
	}, s.handleLookupQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_summary",
		Description: "Read the stored summary of a policy document",
	}, s.handleGetSummary)
}

func (s *Server) handleMatchDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, MatchOutput, error) {
	keys, err := s.ports.Query.MatchDocuments(ctx, input.Query)
	if err != nil {
		return nil, MatchOutput{}, err
	}
	if keys == nil {
		keys = []string{}
	}
	return nil, MatchOutput{Documents: keys, Count: len(keys)}, nil
}

func (s *Server) handleDocumentReferences(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReferencesInput,
) (*mcp.CallToolResult, TextOutput, error) {
	if input.Document == "" || input.Query == "" {
		return nil, TextOutput{}, fmt.Errorf("%w: document and query are required", domain.ErrInvalidInput)
	}
	text, err := s.ports.Query.DocumentReferences(ctx, input.Query, input.Document)
	if err != nil && !partialResult(err) {
		return nil, TextOutput{}, err
	}
	out := TextOutput{Document: input.Document, Text: text}
	if err != nil {
		logger.Warn("mcp: references %s: %v", input.Document, err)
		out.Error = err.Error()
	}
	return nil, out, nil
}

func (s *Server) handleLookupQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, TextOutput, error) {
	text, err := s.ports.Query.LookupQuery(ctx, input.Query)
	if err != nil && !partialResult(err) {
		return nil, TextOutput{}, err
	}
	out := TextOutput{Text: text}
	if err != nil {
		logger.Warn("mcp: lookup: %v", err)
		out.Error = err.Error()
	}
	return nil, out, nil
}

func (s *Server) handleGetSummary(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SummaryInput,
) (*mcp.CallToolResult, TextOutput, error) {
	col, err := domain.ParseCollection(input.Collection)
	if err != nil {
		return nil, TextOutput{}, err
	}
	summary, err := s.ports.Summary.Get(ctx, col, input.Document)
	if err != nil {
		return nil, TextOutput{}, err
	}
	return nil, TextOutput{Document: summary.Key, Text: summary.Text}, nil
}
