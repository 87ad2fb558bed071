package domain

import (
	"strings"
	"time"
)

// Summary is the aggregated summarisation output for one document.
// Text is the concatenation of per-chunk outputs, each terminated by a line break.
type Summary struct {
	// Key identifies the summarised document.
	Key DocumentKey

	// Collection is the collection the document belongs to.
	Collection Collection

	// Text is the full summary text.
	Text string

	// Chunks is the number of chunks that contributed to the summary.
	Chunks int

	// CreatedAt is when the summary was completed.
	CreatedAt time.Time
}

// Verdict is the outcome of a consistency check between two summaries.
type Verdict struct {
	// Conflict is true when the inference service reported a contradiction.
	Conflict bool

	// Explanation is the full response text, kept for notifications.
	Explanation string
}

// ParseVerdict interprets a consistency-check response.
// The response is a conflict iff its first three characters, lowercased,
// contain "yes". Anything else, including an empty response, is no conflict.
func ParseVerdict(response string) Verdict {
	head := response
	if len(head) > 3 {
		head = head[:3]
	}
	return Verdict{
		Conflict:    strings.Contains(strings.ToLower(head), "yes"),
		Explanation: response,
	}
}

// IsRelated reports whether a relevance response says yes anywhere.
func IsRelated(response string) bool {
	return strings.Contains(strings.ToLower(response), "yes")
}

// IsNegativeReference reports whether a reference-scan response opens with "no".
func IsNegativeReference(response string) bool {
	head := response
	if len(head) > 2 {
		head = head[:2]
	}
	return strings.Contains(strings.ToLower(head), "no")
}
