package http

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/logger"
)

// Search actions accepted by GET /search.
const (
	ActionMatchingDocuments  = "get_matching_documents"
	ActionDocumentReferences = "get_document_references"
	ActionLookupQuery        = "lookup_query"
)

const pdfContentType = "application/pdf"

// defaultHistoryLimit is the number of events returned by GET /status.
const defaultHistoryLimit = 20

// UploadResponse is returned by POST /upload-document.
type UploadResponse struct {
	Message string `json:"message"`
	DocType string `json:"doc_type"`
	DocPath string `json:"doc_path"`
}

// SummaryResponse is returned by GET /summary.
type SummaryResponse struct {
	DocName    string `json:"doc_name"`
	DocType    string `json:"doc_type"`
	DocSummary string `json:"doc_summary"`
}

// MatchResponse is returned by the get_matching_documents action.
type MatchResponse struct {
	DocumentNames []string `json:"document_names"`
}

// ReferenceResponse is returned by the get_document_references and
// lookup_query actions.
type ReferenceResponse struct {
	DocumentName *string `json:"document_name"`
	Reference    string  `json:"reference"`
	Error        string  `json:"error,omitempty"`
}

// EventResponse is one entry of the monitor history.
type EventResponse struct {
	Type       string   `json:"type"`
	Collection string   `json:"collection"`
	Key        string   `json:"doc_name"`
	DetectedAt string   `json:"detected_at"`
	Success    bool     `json:"success"`
	Error      string   `json:"error,omitempty"`
	Conflicts  []string `json:"conflicts,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	State  string          `json:"state"`
	Events []EventResponse `json:"events"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Policy Document API"})
}

func (s *Server) handleUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		abortWithDetail(c, http.StatusBadRequest, "file is required")
		return
	}
	if fh.Header.Get("Content-Type") != pdfContentType {
		abortWithDetail(c, http.StatusBadRequest, "Only PDF files are allowed.")
		return
	}

	col, err := domain.ParseCollection(c.PostForm("doc_type"))
	if err != nil {
		abortWithDetail(c, http.StatusBadRequest, fmt.Sprintf("doc_type %s is not allowed", c.PostForm("doc_type")))
		return
	}

	f, err := fh.Open()
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer f.Close()

	ref, err := s.ports.Summary.Upload(c.Request.Context(), col, fh.Filename, f)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		Message: fmt.Sprintf("Document '%s' uploaded successfully.", filepath.Base(ref.Path)),
		DocType: col.String(),
		DocPath: ref.Path,
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	name := c.Query("doc_name")
	if name == "" {
		abortWithDetail(c, http.StatusBadRequest, "doc_name is required")
		return
	}
	col, err := domain.ParseCollection(c.Query("doc_type"))
	if err != nil {
		abortWithDetail(c, http.StatusBadRequest, "Document type is invalid.")
		return
	}

	summary, err := s.ports.Summary.Get(c.Request.Context(), col, name)
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			abortWithDetail(c, http.StatusNotFound, notFoundDetail(col))
			return
		}
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SummaryResponse{
		DocName:    name,
		DocType:    col.String(),
		DocSummary: summary.Text,
	})
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("query")
	action := c.Query("action")
	filename, hasFilename := c.GetQuery("filename")
	ctx := c.Request.Context()

	if _, ok := c.GetQuery("query"); !ok {
		abortWithDetail(c, http.StatusBadRequest, "query is required")
		return
	}

	switch action {
	case ActionMatchingDocuments:
		keys, err := s.ports.Query.MatchDocuments(ctx, query)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, MatchResponse{DocumentNames: keys})

	case ActionDocumentReferences:
		if filename == "" || query == "" {
			abortWithDetail(c, http.StatusNotFound, "Filename and query required for referencing")
			return
		}
		ref, err := s.ports.Query.DocumentReferences(ctx, query, filename)
		if err != nil && !partialResult(err) {
			abortWithError(c, err)
			return
		}
		resp := ReferenceResponse{DocumentName: &filename, Reference: ref}
		if err != nil {
			logger.Warn("http: references %s: %v", filename, err)
			resp.Error = err.Error()
		}
		c.JSON(http.StatusOK, resp)

	case ActionLookupQuery:
		if query == "" {
			abortWithDetail(c, http.StatusNotFound, "query required for checking")
			return
		}
		answer, err := s.ports.Query.LookupQuery(ctx, query)
		if err != nil && !partialResult(err) {
			abortWithError(c, err)
			return
		}
		resp := ReferenceResponse{Reference: answer}
		if hasFilename {
			resp.DocumentName = &filename
		}
		if err != nil {
			logger.Warn("http: lookup: %v", err)
			resp.Error = err.Error()
		}
		c.JSON(http.StatusOK, resp)

	default:
		abortWithDetail(c, http.StatusBadRequest, fmt.Sprintf("action %q is not allowed", action))
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	if s.ports.Monitor == nil {
		abortWithDetail(c, http.StatusServiceUnavailable, "monitor is not running")
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			abortWithDetail(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	outcomes, err := s.ports.Monitor.History(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := StatusResponse{
		State:  string(s.ports.Monitor.State()),
		Events: make([]EventResponse, 0, len(outcomes)),
	}
	for i := range outcomes {
		o := &outcomes[i]
		resp.Events = append(resp.Events, EventResponse{
			Type:       string(o.Event.Type),
			Collection: o.Event.Collection.String(),
			Key:        o.Event.Key,
			DetectedAt: o.Event.DetectedAt.UTC().Format(time.RFC3339),
			Success:    o.Success,
			Error:      o.Error,
			Conflicts:  o.Conflicts,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func notFoundDetail(col domain.Collection) string {
	if col == domain.CollectionHospital {
		return "Hospital policy document not found."
	}
	return "Government policy document not found."
}
