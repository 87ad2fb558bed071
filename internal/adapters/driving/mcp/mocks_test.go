package mcp

import (
	"context"
	"fmt"
	"io"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	matches   []domain.DocumentKey
	text      string
	err       error
	lastQuery string
	lastKey   string
}

func (m *mockQueryService) MatchDocuments(_ context.Context, query string) ([]domain.DocumentKey, error) {
	m.lastQuery = query
	return m.matches, m.err
}

func (m *mockQueryService) DocumentReferences(_ context.Context, query string, key domain.DocumentKey) (string, error) {
	m.lastQuery = query
	m.lastKey = key
	return m.text, m.err
}

func (m *mockQueryService) LookupQuery(_ context.Context, query string) (string, error) {
	m.lastQuery = query
	return m.text, m.err
}

// mockSummaryService is a mock implementation of driving.SummaryService.
// Summaries are keyed by "<collection>/<key>".
type mockSummaryService struct {
	summaries map[string]string
	keys      map[domain.Collection][]domain.DocumentKey
	err       error
}

func (m *mockSummaryService) Upload(
	_ context.Context,
	_ domain.Collection,
	_ string,
	_ io.Reader,
) (domain.DocumentRef, error) {
	return domain.DocumentRef{}, m.err
}

func (m *mockSummaryService) Get(_ context.Context, col domain.Collection, key domain.DocumentKey) (domain.Summary, error) {
	if m.err != nil {
		return domain.Summary{}, m.err
	}
	text, ok := m.summaries[col.String()+"/"+key]
	if !ok {
		return domain.Summary{}, fmt.Errorf("summary %s/%s: %w", col, key, domain.ErrNotFound)
	}
	return domain.Summary{Key: key, Collection: col, Text: text}, nil
}

func (m *mockSummaryService) List(col domain.Collection) []domain.DocumentKey {
	return m.keys[col]
}
