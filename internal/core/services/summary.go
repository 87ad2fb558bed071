package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
	"github.com/custodia-labs/policywatch/internal/core/ports/driving"
)

// Ensure SummaryService implements the interface.
var _ driving.SummaryService = (*SummaryService)(nil)

// SummaryService accepts uploads and serves persisted summaries.
type SummaryService struct {
	cache     *SummaryCache
	store     driven.SummaryStore
	sources   map[domain.Collection]driven.DocumentSource
	extension string
}

// NewSummaryService creates a summary service. An empty extension selects ".pdf".
func NewSummaryService(
	cache *SummaryCache,
	store driven.SummaryStore,
	sources []driven.DocumentSource,
	extension string,
) *SummaryService {
	if extension == "" {
		extension = domain.DefaultExtension
	}
	bySource := make(map[domain.Collection]driven.DocumentSource, len(sources))
	for _, src := range sources {
		bySource[src.Collection()] = src
	}
	return &SummaryService{
		cache:     cache,
		store:     store,
		sources:   bySource,
		extension: extension,
	}
}

// Upload stores a document in a collection's source.
func (s *SummaryService) Upload(
	ctx context.Context,
	collection domain.Collection,
	filename string,
	r io.Reader,
) (domain.DocumentRef, error) {
	src, ok := s.sources[collection]
	if !ok {
		return domain.DocumentRef{}, fmt.Errorf("%w: %q", domain.ErrUnknownCollection, collection)
	}
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || !strings.EqualFold(filepath.Ext(name), s.extension) {
		return domain.DocumentRef{}, fmt.Errorf("%w: only %s files are accepted", domain.ErrInvalidInput, s.extension)
	}
	return src.Save(ctx, name, r)
}

// Get returns the summary of a cached document, preferring the persisted artifact.
func (s *SummaryService) Get(
	ctx context.Context,
	collection domain.Collection,
	key domain.DocumentKey,
) (domain.Summary, error) {
	cached, ok := s.cache.Get(collection, key)
	if !ok {
		return domain.Summary{}, fmt.Errorf("summary %s/%s: %w", collection, key, domain.ErrNotFound)
	}

	text := cached
	if s.store != nil {
		persisted, err := s.store.Read(ctx, collection, key)
		switch {
		case err == nil:
			text = persisted
		case !errors.Is(err, domain.ErrNotFound):
			return domain.Summary{}, fmt.Errorf("read summary %s/%s: %w", collection, key, err)
		}
	}

	return domain.Summary{Key: key, Collection: collection, Text: text}, nil
}

// List returns the cached keys of a collection.
func (s *SummaryService) List(collection domain.Collection) []domain.DocumentKey {
	return s.cache.Keys(collection)
}
