package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
)

// Ensure SummaryStore implements the interface.
var _ driven.SummaryStore = (*SummaryStore)(nil)

type summaryID struct {
	collection domain.Collection
	key        domain.DocumentKey
}

// SummaryStore keeps summary artifacts in memory.
type SummaryStore struct {
	mu     sync.RWMutex
	texts  map[summaryID]string
	writes int
}

// NewSummaryStore creates an empty summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{texts: make(map[summaryID]string)}
}

// Write stores a summary, replacing any previous one.
func (s *SummaryStore) Write(_ context.Context, collection domain.Collection, key domain.DocumentKey, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[summaryID{collection, key}] = text
	s.writes++
	return nil
}

// Read returns a stored summary or domain.ErrNotFound.
func (s *SummaryStore) Read(_ context.Context, collection domain.Collection, key domain.DocumentKey) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.texts[summaryID{collection, key}]
	if !ok {
		return "", fmt.Errorf("summary %s/%s: %w", collection, key, domain.ErrNotFound)
	}
	return text, nil
}

// Writes returns how many times Write has been called.
func (s *SummaryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
