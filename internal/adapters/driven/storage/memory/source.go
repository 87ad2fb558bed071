package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
)

// Ensure DocumentSource implements the interface.
var _ driven.DocumentSource = (*DocumentSource)(nil)

// DocumentSource is an in-memory collection of paged documents.
type DocumentSource struct {
	collection domain.Collection

	mu         sync.RWMutex
	docs       map[domain.DocumentKey][]string
	badPages   map[domain.DocumentKey]map[int]bool
	unreadable map[domain.DocumentKey]bool
}

// NewDocumentSource creates an empty source for a collection.
func NewDocumentSource(collection domain.Collection) *DocumentSource {
	return &DocumentSource{
		collection: collection,
		docs:       make(map[domain.DocumentKey][]string),
		badPages:   make(map[domain.DocumentKey]map[int]bool),
		unreadable: make(map[domain.DocumentKey]bool),
	}
}

// Add stores or replaces a document with the given page texts.
func (s *DocumentSource) Add(key domain.DocumentKey, pages ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = append([]string(nil), pages...)
	delete(s.unreadable, key)
}

// Remove deletes a document.
func (s *DocumentSource) Remove(key domain.DocumentKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, key)
	delete(s.badPages, key)
	delete(s.unreadable, key)
}

// FailPage makes extraction of one page return an error.
func (s *DocumentSource) FailPage(key domain.DocumentKey, page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.badPages[key] == nil {
		s.badPages[key] = make(map[int]bool)
	}
	s.badPages[key][page] = true
}

// MarkUnreadable makes Open fail for a document.
func (s *DocumentSource) MarkUnreadable(key domain.DocumentKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unreadable[key] = true
}

// Collection returns the collection this source serves.
func (s *DocumentSource) Collection() domain.Collection {
	return s.collection
}

// List returns the documents ordered by key.
func (s *DocumentSource) List(_ context.Context) ([]domain.DocumentRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := make([]domain.DocumentRef, 0, len(s.docs))
	for key := range s.docs {
		refs = append(refs, domain.DocumentRef{Key: key, Collection: s.collection})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Key < refs[j].Key })
	return refs, nil
}

// Open returns a page reader over a snapshot of the document's pages.
func (s *DocumentSource) Open(_ context.Context, key domain.DocumentKey) (driven.PageReader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages, ok := s.docs[key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", s.collection, key, domain.ErrNotFound)
	}
	if s.unreadable[key] {
		return nil, fmt.Errorf("%s/%s: %w", s.collection, key, domain.ErrDocumentUnreadable)
	}
	bad := make(map[int]bool, len(s.badPages[key]))
	for p := range s.badPages[key] {
		bad[p] = true
	}
	return &pageReader{pages: pages, bad: bad}, nil
}

// Save stores the uploaded content as a single-page document keyed by the file stem.
func (s *DocumentSource) Save(_ context.Context, filename string, r io.Reader) (domain.DocumentRef, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.DocumentRef{}, fmt.Errorf("read upload: %w", err)
	}
	key := strings.TrimSuffix(filename, ".pdf")
	if key == "" {
		return domain.DocumentRef{}, fmt.Errorf("%w: empty file name", domain.ErrInvalidInput)
	}
	s.Add(key, string(data))
	return domain.DocumentRef{Key: key, Collection: s.collection}, nil
}

// Dir returns "" since nothing is watched on disk.
func (s *DocumentSource) Dir() string {
	return ""
}

var errBadPage = errors.New("page extraction failed")

type pageReader struct {
	pages []string
	bad   map[int]bool
}

func (r *pageReader) NumPages() int { return len(r.pages) }

func (r *pageReader) PageText(page int) (string, error) {
	if page < 1 || page > len(r.pages) {
		return "", fmt.Errorf("page %d out of range", page)
	}
	if r.bad[page] {
		return "", errBadPage
	}
	return r.pages[page-1], nil
}

func (r *pageReader) Close() error { return nil }
