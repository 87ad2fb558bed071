package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
)

// Differ holds the last snapshot of each collection and turns successive
// listings into Added and Removed events. A changed file under an unchanged
// key produces no event.
type Differ struct {
	sources []driven.DocumentSource

	mu        sync.Mutex
	snapshots map[domain.Collection]domain.Snapshot
	refs      map[domain.Collection]map[domain.DocumentKey]domain.DocumentRef
}

// NewDiffer creates a differ over the given sources.
func NewDiffer(sources ...driven.DocumentSource) *Differ {
	return &Differ{
		sources:   sources,
		snapshots: make(map[domain.Collection]domain.Snapshot, len(sources)),
		refs:      make(map[domain.Collection]map[domain.DocumentKey]domain.DocumentRef, len(sources)),
	}
}

// Diff compares two snapshots.
func (d *Differ) Diff(prev, next domain.Snapshot) domain.Diff {
	return domain.DiffSnapshots(prev, next)
}

// Collections returns the collections in source order.
func (d *Differ) Collections() []domain.Collection {
	cols := make([]domain.Collection, 0, len(d.sources))
	for _, src := range d.sources {
		cols = append(cols, src.Collection())
	}
	return cols
}

// Prime records the initial snapshot of every collection. Documents present
// at prime time never produce Added events.
func (d *Differ) Prime(ctx context.Context) error {
	for _, src := range d.sources {
		snap, refs, err := d.list(ctx, src)
		if err != nil {
			return err
		}
		d.mu.Lock()
		d.snapshots[src.Collection()] = snap
		d.refs[src.Collection()] = refs
		d.mu.Unlock()
	}
	return nil
}

// Primed reports whether every collection has a snapshot.
func (d *Differ) Primed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, src := range d.sources {
		if _, ok := d.snapshots[src.Collection()]; !ok {
			return false
		}
	}
	return true
}

// Poll lists one collection, diffs it against the held snapshot and advances
// the snapshot. Added events come first, then Removed, each sorted by key.
// A listing failure leaves the snapshot untouched.
func (d *Differ) Poll(ctx context.Context, collection domain.Collection) ([]domain.ChangeEvent, error) {
	src := d.source(collection)
	if src == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCollection, collection)
	}

	next, nextRefs, err := d.list(ctx, src)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	prev, primed := d.snapshots[collection]
	d.snapshots[collection] = next
	d.refs[collection] = nextRefs
	d.mu.Unlock()

	if !primed {
		return nil, nil
	}

	diff := d.Diff(prev, next)
	now := time.Now()
	events := make([]domain.ChangeEvent, 0, len(diff.Added)+len(diff.Removed))
	for _, key := range diff.Added {
		events = append(events, newChangeEvent(domain.ChangeAdded, collection, key, now))
	}
	for _, key := range diff.Removed {
		events = append(events, newChangeEvent(domain.ChangeRemoved, collection, key, now))
	}
	return events, nil
}

// Ref returns the reference of a document seen in the latest snapshot.
func (d *Differ) Ref(collection domain.Collection, key domain.DocumentKey) (domain.DocumentRef, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref, ok := d.refs[collection][key]
	return ref, ok
}

// Refs returns the documents of the latest snapshot ordered by key.
func (d *Differ) Refs(collection domain.Collection) []domain.DocumentRef {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := d.snapshots[collection].Keys()
	refs := make([]domain.DocumentRef, 0, len(keys))
	for _, key := range keys {
		refs = append(refs, d.refs[collection][key])
	}
	return refs
}

// Present reports whether a key is in the latest snapshot.
func (d *Differ) Present(collection domain.Collection, key domain.DocumentKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshots[collection].Has(key)
}

func (d *Differ) source(collection domain.Collection) driven.DocumentSource {
	for _, src := range d.sources {
		if src.Collection() == collection {
			return src
		}
	}
	return nil
}

func (d *Differ) list(
	ctx context.Context,
	src driven.DocumentSource,
) (domain.Snapshot, map[domain.DocumentKey]domain.DocumentRef, error) {
	refs, err := src.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list %s: %w", src.Collection(), err)
	}
	snap := make(domain.Snapshot, len(refs))
	byKey := make(map[domain.DocumentKey]domain.DocumentRef, len(refs))
	for _, ref := range refs {
		snap[ref.Key] = struct{}{}
		byKey[ref.Key] = ref
	}
	return snap, byKey, nil
}

func newChangeEvent(t domain.ChangeType, col domain.Collection, key domain.DocumentKey, at time.Time) domain.ChangeEvent {
	return domain.ChangeEvent{
		ID:         uuid.New().String(),
		Type:       t,
		Collection: col,
		Key:        key,
		DetectedAt: at,
	}
}

// Dirs returns the non-empty directories backing the sources.
func (d *Differ) Dirs() []string {
	var dirs []string
	for _, src := range d.sources {
		if dir := src.Dir(); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
