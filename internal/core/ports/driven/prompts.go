package driven

// PromptStore provides access to LLM prompt templates.
// Templates are fmt format strings; the placeholders of each are listed below.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptSummariseChunk summarises one chunk of a document.
	// Placeholder: %s (chunk text).
	PromptSummariseChunk = "summarise_chunk"

	// PromptCheckInconsistencies compares two policy summaries.
	// Placeholders: %s (first policy), %s (second policy).
	PromptCheckInconsistencies = "check_inconsistencies"

	// PromptMatchSummary asks whether a summary relates to a query.
	// Placeholders: %s (summary), %s (query).
	PromptMatchSummary = "match_summary"

	// PromptDocumentReferences asks for quoted references in a chunk.
	// Placeholders: %s (chunk text), %s (query).
	PromptDocumentReferences = "document_references"

	// PromptLookupReference asks for references or a single "No".
	// Placeholders: %s (chunk text), %s (query).
	PromptLookupReference = "lookup_reference"

	// PromptDirectAnswer answers a query without document context.
	// Placeholder: %s (query).
	PromptDirectAnswer = "direct_answer"
)

// PromptStoreAware is implemented by services whose prompts can be customised.
type PromptStoreAware interface {
	// SetPromptStore injects a prompt store. Without one, built-in prompts are used.
	SetPromptStore(store PromptStore)
}

// DefaultPrompts returns the built-in templates keyed by prompt name.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
func DefaultPrompts() map[string]string {
	return map[string]string{
		PromptSummariseChunk:       "Summarize this PDF file chunk keeping track of every important information: %s",
		PromptCheckInconsistencies: "Given two policies, check if anything in one goes against the other. If No then answer No. Else start answer with Yes and provide details : FIRST POLICY: %s -- SECOND POLICY: %s",
		PromptMatchSummary:         "Is summary related to query? Just: Yes or No. SUMMARY: %s QUERY: %s",
		PromptDocumentReferences:   "Check if there query can be referenced in these pages and quote accordingly with page numbers? TEXT: %s QUERY: %s",
		PromptLookupReference:      "Check if the query can be referenced in these pages and quote accordingly with page numbers? TEXT: %s QUERY: %s. If yes summarize if else give ONLY one word answer: No",
		PromptDirectAnswer:         "%s",
	}
}
