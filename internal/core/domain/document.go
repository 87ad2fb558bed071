package domain

import "strconv"

// DocumentKey is the stable identity of a document within a collection:
// the filename stem.
type DocumentKey = string

// DocumentRef points at a document currently present in a collection.
type DocumentRef struct {
	// Key is the filename stem, unique within the collection.
	Key DocumentKey

	// Collection is the collection the document belongs to.
	Collection Collection

	// Path is the raw byte location of the document.
	Path string
}

// ChunkMode selects how page text is assembled into a chunk.
type ChunkMode int

const (
	// ChunkModeSummary concatenates page text without labels.
	ChunkModeSummary ChunkMode = iota

	// ChunkModeReference prefixes each page with its page number so
	// the inference service can quote page references.
	ChunkModeReference
)

// PageLabel returns the reference-mode prefix for a 1-based page number.
func PageLabel(page int) string {
	return "PAGE NUMBER " + strconv.Itoa(page) + " "
}

// Chunk is an ordered, contiguous group of pages from one document.
type Chunk struct {
	// Index is the 0-based ordinal of the chunk within the document.
	Index int

	// FirstPage is the 1-based number of the first page in the chunk.
	FirstPage int

	// LastPage is the 1-based number of the last page in the chunk (inclusive).
	LastPage int

	// Text is the extracted text of every page in the chunk.
	Text string
}

// Pages returns the number of pages covered by the chunk.
func (c Chunk) Pages() int {
	return c.LastPage - c.FirstPage + 1
}

// PageRange is an inclusive 1-based page interval.
type PageRange struct {
	First int
	Last  int
}
