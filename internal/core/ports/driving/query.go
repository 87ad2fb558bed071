package driving

import (
	"context"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

// QueryService answers free-text queries against the corpus.
// All operations are read-only with respect to the summary cache.
type QueryService interface {
	// MatchDocuments returns the keys of cached summaries the model judges
	// related to the query, government first then hospital.
	MatchDocuments(ctx context.Context, query string) ([]domain.DocumentKey, error)

	// DocumentReferences re-reads one document and returns quoted passages
	// relevant to the query. Returns domain.ErrNotFound for an uncached key.
	DocumentReferences(ctx context.Context, query string, key domain.DocumentKey) (string, error)

	// LookupQuery returns a direct answer followed by references gathered
	// from every cached document.
	LookupQuery(ctx context.Context, query string) (string, error)
}
