package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

// PageReader gives random access to the text of a document's pages.
// Page numbers are 1-based.
type PageReader interface {
	// NumPages returns the total page count.
	NumPages() int

	// PageText extracts the text of one page.
	// An error affects only that page; callers substitute an empty string.
	PageText(page int) (string, error)

	// Close releases the underlying document.
	Close() error
}

// DocumentSource provides the documents of one collection.
type DocumentSource interface {
	// Collection returns the collection this source serves.
	Collection() domain.Collection

	// List returns the documents currently present, ordered by key.
	List(ctx context.Context) ([]domain.DocumentRef, error)

	// Open returns a page reader for a document.
	// Returns domain.ErrNotFound if the key is absent and
	// domain.ErrDocumentUnreadable if the document cannot be parsed.
	Open(ctx context.Context, key domain.DocumentKey) (PageReader, error)

	// Save stores an uploaded document under the given file name.
	// Returns the stored document reference.
	Save(ctx context.Context, filename string, r io.Reader) (domain.DocumentRef, error)

	// Dir returns the directory watched for this collection, or "" if none.
	Dir() string
}

// SummaryStore persists one summary artifact per document per collection.
type SummaryStore interface {
	// Write stores the summary text for a document, replacing any previous one.
	Write(ctx context.Context, collection domain.Collection, key domain.DocumentKey, text string) error

	// Read returns the persisted summary text.
	// Returns domain.ErrNotFound if no summary exists.
	Read(ctx context.Context, collection domain.Collection, key domain.DocumentKey) (string, error)
}
