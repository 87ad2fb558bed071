// Package http provides the REST API adapter for policywatch.
// It exposes document upload, summary retrieval and search over gin.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/logger"
)

var (
	// ErrMissingSummaryService is returned when the summary service is not provided.
	ErrMissingSummaryService = errors.New("http: summary service is required")

	// ErrMissingQueryService is returned when the query service is not provided.
	ErrMissingQueryService = errors.New("http: query service is required")
)

// statusFor maps a domain error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnknownCollection):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLLMUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInferenceTransient), errors.Is(err, domain.ErrReferenceLookupFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// partialResult reports whether a search may still answer with the text
// gathered before err. Lookup failures and unknown input are not partial.
func partialResult(err error) bool {
	return !errors.Is(err, domain.ErrNotFound) &&
		!errors.Is(err, domain.ErrInvalidInput) &&
		!errors.Is(err, domain.ErrUnknownCollection)
}

// abortWithError writes a {"detail": ...} body with the mapped status.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("http: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		detail = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func abortWithDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
