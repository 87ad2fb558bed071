// Package domain defines the core business entities for policywatch.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Collection: one of the two watched document sets
//   - DocumentRef: a document identified by its filename stem
//   - Chunk: a bounded, ordered group of a document's pages
//   - Summary: the aggregated summarisation output for a document
//   - ChangeEvent: an Added or Removed membership change
//   - Verdict: the outcome of a consistency check
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
