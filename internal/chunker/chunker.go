// Package chunker splits a paged document into bounded, page-ordered text chunks.
package chunker

import (
	"strings"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
	"github.com/custodia-labs/policywatch/internal/logger"
)

// Extractor yields chunks of a document lazily. It holds at most one chunk's
// text at a time and is not safe for concurrent use.
type Extractor struct {
	reader driven.PageReader
	size   int
	mode   domain.ChunkMode
	name   string

	page  int // next page to read, 1-based
	index int
	last  *domain.Chunk
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithChunkSize sets the number of pages per chunk.
func WithChunkSize(size int) Option {
	return func(e *Extractor) {
		if size > 0 {
			e.size = size
		}
	}
}

// WithMode selects summary or reference output.
func WithMode(mode domain.ChunkMode) Option {
	return func(e *Extractor) {
		e.mode = mode
	}
}

// WithName sets the document name used in log messages.
func WithName(name string) Option {
	return func(e *Extractor) {
		e.name = name
	}
}

// New creates an extractor positioned at the first page.
func New(reader driven.PageReader, opts ...Option) *Extractor {
	e := &Extractor{
		reader: reader,
		size:   domain.DefaultChunkSize,
		mode:   domain.ChunkModeSummary,
		page:   1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Next reads and returns the next chunk. It returns false once every page
// has been consumed.
func (e *Extractor) Next() (domain.Chunk, bool) {
	total := e.reader.NumPages()
	if e.page > total {
		return domain.Chunk{}, false
	}

	first := e.page
	last := min(first+e.size-1, total)

	var sb strings.Builder
	for p := first; p <= last; p++ {
		text, err := e.reader.PageText(p)
		if err != nil {
			logger.Warn("chunker: %s page %d unreadable, substituting empty text: %v", e.name, p, err)
			text = ""
		}
		if e.mode == domain.ChunkModeReference {
			sb.WriteString(domain.PageLabel(p))
		}
		sb.WriteString(text)
	}

	chunk := domain.Chunk{
		Index:     e.index,
		FirstPage: first,
		LastPage:  last,
		Text:      sb.String(),
	}
	e.last = &chunk
	e.index++
	e.page = last + 1
	return chunk, true
}

// Retry returns the most recent chunk again without re-reading its pages.
// It returns false if Next has not yet produced a chunk.
func (e *Extractor) Retry() (domain.Chunk, bool) {
	if e.last == nil {
		return domain.Chunk{}, false
	}
	return *e.last, true
}

// Seek repositions the extractor so the next chunk starts at page.
// Pages below 1 are clamped to 1. The retained chunk is discarded.
func (e *Extractor) Seek(page int) {
	if page < 1 {
		page = 1
	}
	e.page = page
	e.index = (page - 1) / e.size
	e.last = nil
}

// Ranges returns the page ranges a document of total pages splits into.
func Ranges(total, size int) []domain.PageRange {
	if total <= 0 || size <= 0 {
		return nil
	}
	ranges := make([]domain.PageRange, 0, (total+size-1)/size)
	for first := 1; first <= total; first += size {
		ranges = append(ranges, domain.PageRange{First: first, Last: min(first+size-1, total)})
	}
	return ranges
}
