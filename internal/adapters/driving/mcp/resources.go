package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for policywatch resources.
	uriScheme = "policywatch://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource listing both collections with their cached documents.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "collections",
		Name:        "collections",
		Description: "Policy collections and their summarised documents",
		MIMEType:    "application/json",
	}, s.handleCollectionsResource)

	// Template for the documents of one collection.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "collections/{collection}/documents",
		Name:        "collection-documents",
		Description: "Summarised documents in a policy collection",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	// Template for a stored summary.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "summaries/{collection}/{document}",
		Name:        "document-summary",
		Description: "Stored summary of a policy document",
		MIMEType:    "text/markdown",
	}, s.handleSummaryResource)
}

// handleCollectionsResource returns every collection with its cached keys.
func (s *Server) handleCollectionsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type collectionInfo struct {
		Name      string   `json:"name"`
		Documents []string `json:"documents"`
		URI       string   `json:"uri"`
	}

	infos := make([]collectionInfo, 0, len(domain.Collections))
	for _, col := range domain.Collections {
		keys := s.ports.Summary.List(col)
		if keys == nil {
			keys = []string{}
		}
		infos = append(infos, collectionInfo{
			Name:      col.String(),
			Documents: keys,
			URI:       uriScheme + "collections/" + col.String() + "/documents",
		})
	}

	return jsonResult(req.Params.URI, infos)
}

// handleDocumentsResource returns the cached keys of one collection.
func (s *Server) handleDocumentsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract collection from URI: policywatch://collections/{collection}/documents
	col, err := domain.ParseCollection(extractCollection(req.Params.URI))
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	type docInfo struct {
		Name       string `json:"name"`
		SummaryURI string `json:"summary_uri"`
	}

	keys := s.ports.Summary.List(col)
	infos := make([]docInfo, len(keys))
	for i, key := range keys {
		infos[i] = docInfo{
			Name:       key,
			SummaryURI: uriScheme + "summaries/" + col.String() + "/" + key,
		}
	}

	return jsonResult(req.Params.URI, infos)
}

// handleSummaryResource returns a stored summary.
func (s *Server) handleSummaryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract from URI: policywatch://summaries/{collection}/{document}
	rawCol, key := extractSummaryRef(req.Params.URI)
	col, err := domain.ParseCollection(rawCol)
	if err != nil || key == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	summary, err := s.ports.Summary.Get(ctx, col, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     summary.Text,
		}},
	}, nil
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractCollection extracts the collection from a URI like
// policywatch://collections/{collection}/documents.
func extractCollection(uri string) string {
	const prefix = uriScheme + "collections/"
	const suffix = "/documents"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}

// extractSummaryRef extracts the collection and document from a URI like
// policywatch://summaries/{collection}/{document}.
func extractSummaryRef(uri string) (string, string) {
	const prefix = uriScheme + "summaries/"

	if !strings.HasPrefix(uri, prefix) {
		return "", ""
	}

	col, key, ok := strings.Cut(strings.TrimPrefix(uri, prefix), "/")
	if !ok {
		return "", ""
	}
	return col, key
}
