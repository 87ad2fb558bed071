package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

// SummaryService exposes documents and their summaries to the outside world.
type SummaryService interface {
	// Upload stores a new document in a collection. The monitor picks it up
	// on its next tick.
	Upload(ctx context.Context, collection domain.Collection, filename string, r io.Reader) (domain.DocumentRef, error)

	// Get returns the persisted summary for a cached document.
	// Returns domain.ErrNotFound if the key is not cached in the collection.
	Get(ctx context.Context, collection domain.Collection, key domain.DocumentKey) (domain.Summary, error)

	// List returns the cached document keys in a collection, sorted.
	List(collection domain.Collection) []domain.DocumentKey
}
