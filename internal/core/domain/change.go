package domain

import (
	"sort"
	"time"
)

// ChangeType classifies a collection membership change.
type ChangeType string

// Membership change types. There is no "modified" type: a changed file
// with the same key is invisible to the diff.
const (
	ChangeAdded   ChangeType = "added"
	ChangeRemoved ChangeType = "removed"
)

// ChangeEvent is one membership change detected at a poll tick.
type ChangeEvent struct {
	// ID uniquely identifies the event in the event history.
	ID string

	// Type is Added or Removed.
	Type ChangeType

	// Collection is where the change happened.
	Collection Collection

	// Key is the document key.
	Key DocumentKey

	// DetectedAt is the poll tick time.
	DetectedAt time.Time
}

// Snapshot is the set of document keys present in a collection at one tick.
type Snapshot map[DocumentKey]struct{}

// NewSnapshot builds a snapshot from keys.
func NewSnapshot(keys ...DocumentKey) Snapshot {
	s := make(Snapshot, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether key is present.
func (s Snapshot) Has(key DocumentKey) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the snapshot's keys in ascending order.
func (s Snapshot) Keys() []DocumentKey {
	keys := make([]DocumentKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Diff holds the result of comparing two snapshots.
type Diff struct {
	Added   []DocumentKey
	Removed []DocumentKey
}

// Empty returns true if nothing changed.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// DiffSnapshots classifies keys present now but not before as Added and
// keys present before but not now as Removed. Both lists are sorted.
func DiffSnapshots(prev, next Snapshot) Diff {
	var d Diff
	for _, k := range next.Keys() {
		if !prev.Has(k) {
			d.Added = append(d.Added, k)
		}
	}
	for _, k := range prev.Keys() {
		if !next.Has(k) {
			d.Removed = append(d.Removed, k)
		}
	}
	return d
}
