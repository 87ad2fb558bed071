package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownCollection indicates a collection name outside government/hospital.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrLLMUnavailable indicates the inference service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// Document processing errors.

	// ErrDocumentUnreadable indicates a document could not be opened or parsed.
	// It is fatal to that document's summarisation only.
	ErrDocumentUnreadable = errors.New("document unreadable")

	// ErrSummarizationFailed indicates an inference call failed during summarisation.
	// No partial summary is persisted or cached.
	ErrSummarizationFailed = errors.New("summarization failed")

	// ErrInferenceTransient indicates a retryable inference failure.
	ErrInferenceTransient = errors.New("inference transient failure")

	// ErrReferenceLookupFailed indicates a reference scan gave up after
	// exhausting its retry attempts.
	ErrReferenceLookupFailed = errors.New("reference lookup failed")
)
