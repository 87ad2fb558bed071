package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
	"github.com/custodia-labs/policywatch/internal/logger"
)

type cacheKey struct {
	collection domain.Collection
	key        domain.DocumentKey
}

// SummaryCache maps document keys to their current summary text, one map
// per collection. Reads are safe at any time. Writers serialise per key
// through Lock.
type SummaryCache struct {
	mu      sync.RWMutex
	entries map[domain.Collection]map[domain.DocumentKey]string

	locksMu sync.Mutex
	locks   map[cacheKey]*sync.Mutex

	metrics driven.Metrics
}

// NewSummaryCache creates an empty cache for every known collection.
func NewSummaryCache() *SummaryCache {
	c := &SummaryCache{
		entries: make(map[domain.Collection]map[domain.DocumentKey]string, len(domain.Collections)),
		locks:   make(map[cacheKey]*sync.Mutex),
	}
	for _, col := range domain.Collections {
		c.entries[col] = make(map[domain.DocumentKey]string)
	}
	return c
}

// SetMetrics attaches a metrics sink for cache size reporting.
func (c *SummaryCache) SetMetrics(m driven.Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// Lock acquires the writer lock for one document and returns its release func.
func (c *SummaryCache) Lock(collection domain.Collection, key domain.DocumentKey) func() {
	c.locksMu.Lock()
	id := cacheKey{collection, key}
	m, ok := c.locks[id]
	if !ok {
		m = &sync.Mutex{}
		c.locks[id] = m
	}
	c.locksMu.Unlock()

	m.Lock()
	return m.Unlock
}

// Put stores a complete summary.
func (c *SummaryCache) Put(collection domain.Collection, key domain.DocumentKey, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[collection]
	if !ok {
		m = make(map[domain.DocumentKey]string)
		c.entries[collection] = m
	}
	m[key] = text
	c.reportLocked(collection)
}

// Get returns the summary for a key.
func (c *SummaryCache) Get(collection domain.Collection, key domain.DocumentKey) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.entries[collection][key]
	return text, ok
}

// Find resolves a key in the government cache, then the hospital cache.
func (c *SummaryCache) Find(key domain.DocumentKey) (domain.Collection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, col := range domain.Collections {
		if _, ok := c.entries[col][key]; ok {
			return col, true
		}
	}
	return "", false
}

// Keys returns a sorted copy of the keys cached for a collection.
func (c *SummaryCache) Keys(collection domain.Collection) []domain.DocumentKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]domain.DocumentKey, 0, len(c.entries[collection]))
	for k := range c.entries[collection] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Delete removes a key and reports whether it was present.
func (c *SummaryCache) Delete(collection domain.Collection, key domain.DocumentKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[collection][key]; !ok {
		return false
	}
	delete(c.entries[collection], key)
	c.reportLocked(collection)
	return true
}

// Len returns the number of entries in a collection.
func (c *SummaryCache) Len(collection domain.Collection) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries[collection])
}

func (c *SummaryCache) reportLocked(collection domain.Collection) {
	if c.metrics != nil {
		c.metrics.SetCacheSize(collection, len(c.entries[collection]))
	}
}

// Warm populates the cache from persisted summaries of every document currently
// present in each source. Documents with no persisted summary are summarised
// when summarizer is non-nil and skipped otherwise. Per-document failures are
// logged. Returns the number of entries loaded.
func (c *SummaryCache) Warm(
	ctx context.Context,
	sources []driven.DocumentSource,
	store driven.SummaryStore,
	summarizer *Summarizer,
) (int, error) {
	loaded := 0
	for _, src := range sources {
		refs, err := src.List(ctx)
		if err != nil {
			return loaded, err
		}
		n, err := c.warmRefs(ctx, src.Collection(), refs, store, summarizer)
		loaded += n
		if err != nil {
			return loaded, err
		}
	}
	return loaded, nil
}

// WarmPrimed primes the differ and warms the cache from that same listing.
// A document that appears while warming is not in the primed snapshot, so the
// first poll reports it as Added.
func (c *SummaryCache) WarmPrimed(
	ctx context.Context,
	differ *Differ,
	store driven.SummaryStore,
	summarizer *Summarizer,
) (int, error) {
	if err := differ.Prime(ctx); err != nil {
		return 0, err
	}
	loaded := 0
	for _, col := range differ.Collections() {
		n, err := c.warmRefs(ctx, col, differ.Refs(col), store, summarizer)
		loaded += n
		if err != nil {
			return loaded, err
		}
	}
	return loaded, nil
}

func (c *SummaryCache) warmRefs(
	ctx context.Context,
	col domain.Collection,
	refs []domain.DocumentRef,
	store driven.SummaryStore,
	summarizer *Summarizer,
) (int, error) {
	loaded := 0
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return loaded, err
		}
		if c.warmOne(ctx, col, ref, store, summarizer) {
			loaded++
		}
	}
	logger.Info("cache: %s warmed with %d summaries", col, c.Len(col))
	return loaded, nil
}

func (c *SummaryCache) warmOne(
	ctx context.Context,
	col domain.Collection,
	ref domain.DocumentRef,
	store driven.SummaryStore,
	summarizer *Summarizer,
) bool {
	unlock := c.Lock(col, ref.Key)
	defer unlock()

	text, err := store.Read(ctx, col, ref.Key)
	if err == nil {
		c.Put(col, ref.Key, text)
		return true
	}
	if !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("cache: read summary %s/%s: %v", col, ref.Key, err)
		return false
	}
	if summarizer == nil {
		logger.Debug("cache: no summary for %s/%s, skipping", col, ref.Key)
		return false
	}

	summary, err := summarizer.Summarize(ctx, ref)
	if err != nil {
		logger.Warn("cache: summarize %s/%s: %v", col, ref.Key, err)
		return false
	}
	c.Put(col, ref.Key, summary.Text)
	return true
}
