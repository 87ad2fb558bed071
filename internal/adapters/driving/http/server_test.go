package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

// mockSummaryService is a mock implementation of driving.SummaryService.
type mockSummaryService struct {
	summaries map[string]string
	uploaded  []byte
	uploadCol domain.Collection
	uploadErr error
}

func (m *mockSummaryService) Upload(
	_ context.Context,
	col domain.Collection,
	filename string,
	r io.Reader,
) (domain.DocumentRef, error) {
	if m.uploadErr != nil {
		return domain.DocumentRef{}, m.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.DocumentRef{}, err
	}
	m.uploaded = data
	m.uploadCol = col
	return domain.DocumentRef{Key: "policy", Collection: col, Path: "/docs/" + filename}, nil
}

func (m *mockSummaryService) Get(_ context.Context, col domain.Collection, key domain.DocumentKey) (domain.Summary, error) {
	text, ok := m.summaries[string(col)+"/"+key]
	if !ok {
		return domain.Summary{}, fmt.Errorf("summary %s/%s: %w", col, key, domain.ErrNotFound)
	}
	return domain.Summary{Key: key, Collection: col, Text: text}, nil
}

func (m *mockSummaryService) List(domain.Collection) []domain.DocumentKey {
	return nil
}

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	matches   []domain.DocumentKey
	reference string
	answer    string
	err       error
	lastQuery string
	lastKey   string
}

func (m *mockQueryService) MatchDocuments(_ context.Context, query string) ([]domain.DocumentKey, error) {
	m.lastQuery = query
	return m.matches, m.err
}

func (m *mockQueryService) DocumentReferences(_ context.Context, query string, key domain.DocumentKey) (string, error) {
	m.lastQuery = query
	m.lastKey = key
	return m.reference, m.err
}

func (m *mockQueryService) LookupQuery(_ context.Context, query string) (string, error) {
	m.lastQuery = query
	return m.answer, m.err
}

// mockMonitorService is a mock implementation of driving.MonitorService.
type mockMonitorService struct {
	state   domain.MonitorState
	history []domain.EventOutcome
	limit   int
}

func (m *mockMonitorService) Start(context.Context) error { return nil }
func (m *mockMonitorService) Stop() error                 { return nil }
func (m *mockMonitorService) RunOnce(context.Context) (*domain.TickResult, error) {
	return &domain.TickResult{}, nil
}
func (m *mockMonitorService) State() domain.MonitorState { return m.state }
func (m *mockMonitorService) History(_ context.Context, limit int) ([]domain.EventOutcome, error) {
	m.limit = limit
	return m.history, nil
}

func newTestServer(t *testing.T, ports *Ports, opts ...Option) *Server {
	t.Helper()
	s, err := NewServer(":0", ports, opts...)
	require.NoError(t, err)
	return s
}

func doGet(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func uploadRequest(t *testing.T, docType, filename, contentType string, body []byte) *http.Request {
	t.Helper()
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("doc_type", docType))

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-document", buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestNewServer(t *testing.T) {
	t.Run("nil ports returns error", func(t *testing.T) {
		s, err := NewServer("", nil)
		require.Error(t, err)
		assert.Nil(t, s)
		assert.ErrorIs(t, err, ErrMissingSummaryService)
	})

	t.Run("missing query service returns error", func(t *testing.T) {
		_, err := NewServer("", &Ports{Summary: &mockSummaryService{}})
		assert.ErrorIs(t, err, ErrMissingQueryService)
	})

	t.Run("empty addr uses default", func(t *testing.T) {
		s, err := NewServer("", &Ports{Summary: &mockSummaryService{}, Query: &mockQueryService{}})
		require.NoError(t, err)
		assert.Equal(t, DefaultAddr, s.Addr())
	})
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: &mockQueryService{}})

	w := doGet(t, s, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Policy Document API", decode[map[string]string](t, w)["message"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_UnknownRoute(t *testing.T) {
	s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: &mockQueryService{}})

	w := doGet(t, s, "/nope")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Upload(t *testing.T) {
	t.Run("stores pdf in collection", func(t *testing.T) {
		summary := &mockSummaryService{}
		s := newTestServer(t, &Ports{Summary: summary, Query: &mockQueryService{}})

		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, uploadRequest(t, "hospital", "policy.pdf", pdfContentType, []byte("%PDF-1.4")))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[UploadResponse](t, w)
		assert.Equal(t, "Document 'policy.pdf' uploaded successfully.", resp.Message)
		assert.Equal(t, "hospital", resp.DocType)
		assert.Equal(t, "/docs/policy.pdf", resp.DocPath)
		assert.Equal(t, domain.CollectionHospital, summary.uploadCol)
		assert.Equal(t, []byte("%PDF-1.4"), summary.uploaded)
	})

	t.Run("rejects non-pdf content type", func(t *testing.T) {
		summary := &mockSummaryService{}
		s := newTestServer(t, &Ports{Summary: summary, Query: &mockQueryService{}})

		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, uploadRequest(t, "government", "notes.txt", "text/plain", []byte("hi")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Only PDF files are allowed.", decode[map[string]string](t, w)["detail"])
		assert.Nil(t, summary.uploaded)
	})

	t.Run("rejects unknown doc_type", func(t *testing.T) {
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: &mockQueryService{}})

		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, uploadRequest(t, "federal", "policy.pdf", pdfContentType, []byte("%PDF")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "doc_type federal is not allowed")
	})

	t.Run("maps invalid input to 400", func(t *testing.T) {
		summary := &mockSummaryService{uploadErr: fmt.Errorf("%w: bad name", domain.ErrInvalidInput)}
		s := newTestServer(t, &Ports{Summary: summary, Query: &mockQueryService{}})

		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, uploadRequest(t, "government", "policy.pdf", pdfContentType, []byte("%PDF")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: &mockQueryService{}})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/upload-document", nil)
		s.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_Summary(t *testing.T) {
	summary := &mockSummaryService{summaries: map[string]string{"government/act": "Act summary\n"}}
	s := newTestServer(t, &Ports{Summary: summary, Query: &mockQueryService{}})

	t.Run("returns persisted summary", func(t *testing.T) {
		w := doGet(t, s, "/summary?doc_name=act&doc_type=government")

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[SummaryResponse](t, w)
		assert.Equal(t, "act", resp.DocName)
		assert.Equal(t, "government", resp.DocType)
		assert.Equal(t, "Act summary\n", resp.DocSummary)
	})

	t.Run("unknown government document", func(t *testing.T) {
		w := doGet(t, s, "/summary?doc_name=missing&doc_type=government")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Government policy document not found.", decode[map[string]string](t, w)["detail"])
	})

	t.Run("unknown hospital document", func(t *testing.T) {
		w := doGet(t, s, "/summary?doc_name=act&doc_type=hospital")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Hospital policy document not found.", decode[map[string]string](t, w)["detail"])
	})

	t.Run("invalid doc_type", func(t *testing.T) {
		w := doGet(t, s, "/summary?doc_name=act&doc_type=other")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing doc_name", func(t *testing.T) {
		w := doGet(t, s, "/summary?doc_type=government")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_Search(t *testing.T) {
	t.Run("matching documents", func(t *testing.T) {
		query := &mockQueryService{matches: []domain.DocumentKey{"act", "rules"}}
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: query})

		w := doGet(t, s, "/search?query=visitors&action=get_matching_documents")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"act", "rules"}, decode[MatchResponse](t, w).DocumentNames)
		assert.Equal(t, "visitors", query.lastQuery)
	})

	t.Run("document references", func(t *testing.T) {
		query := &mockQueryService{reference: "PAGE NUMBER 2: quoted"}
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: query})

		w := doGet(t, s, "/search?query=visitors&action=get_document_references&filename=act")

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[ReferenceResponse](t, w)
		require.NotNil(t, resp.DocumentName)
		assert.Equal(t, "act", *resp.DocumentName)
		assert.Equal(t, "PAGE NUMBER 2: quoted", resp.Reference)
		assert.Equal(t, "act", query.lastKey)
	})

	t.Run("document references without filename", func(t *testing.T) {
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: &mockQueryService{}})

		w := doGet(t, s, "/search?query=visitors&action=get_document_references")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Filename and query required for referencing")
	})

	t.Run("document references for uncached key", func(t *testing.T) {
		query := &mockQueryService{err: fmt.Errorf("document %q: %w", "x", domain.ErrNotFound)}
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: query})

		w := doGet(t, s, "/search?query=visitors&action=get_document_references&filename=x")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("lookup query", func(t *testing.T) {
		query := &mockQueryService{answer: "Yes.\n\n**REFERENCES:**\n\n"}
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: query})

		w := doGet(t, s, "/search?query=visitors&action=lookup_query")

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[ReferenceResponse](t, w)
		assert.Nil(t, resp.DocumentName)
		assert.Equal(t, "Yes.\n\n**REFERENCES:**\n\n", resp.Reference)
	})

	t.Run("document references keep partial text on failure", func(t *testing.T) {
		query := &mockQueryService{
			reference: "PAGE 3: quoted passage",
			err:       fmt.Errorf("references k chunk 1: %w", domain.ErrInferenceTransient),
		}
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: query})

		w := doGet(t, s, "/search?query=visitors&action=get_document_references&filename=k")

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[ReferenceResponse](t, w)
		assert.Equal(t, "PAGE 3: quoted passage", resp.Reference)
		assert.Contains(t, resp.Error, "inference transient failure")
	})

	t.Run("lookup query failure answers with an error field", func(t *testing.T) {
		query := &mockQueryService{err: domain.ErrLLMUnavailable}
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: query})

		w := doGet(t, s, "/search?query=visitors&action=lookup_query")

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[ReferenceResponse](t, w)
		assert.Empty(t, resp.Reference)
		assert.Equal(t, domain.ErrLLMUnavailable.Error(), resp.Error)
	})

	t.Run("lookup query with empty query", func(t *testing.T) {
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: &mockQueryService{}})

		w := doGet(t, s, "/search?query=&action=lookup_query")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing query", func(t *testing.T) {
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: &mockQueryService{}})

		w := doGet(t, s, "/search?action=lookup_query")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown action", func(t *testing.T) {
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: &mockQueryService{}})

		w := doGet(t, s, "/search?query=x&action=delete_everything")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unexpected failure hides detail", func(t *testing.T) {
		query := &mockQueryService{err: errors.New("disk on fire")}
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: query})

		w := doGet(t, s, "/search?query=x&action=get_matching_documents")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "disk on fire")
	})
}

func TestServer_Status(t *testing.T) {
	t.Run("without monitor", func(t *testing.T) {
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: &mockQueryService{}})

		w := doGet(t, s, "/status")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("reports state and history", func(t *testing.T) {
		at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		monitor := &mockMonitorService{
			state: domain.MonitorIdle,
			history: []domain.EventOutcome{{
				Event: domain.ChangeEvent{
					Type:       domain.ChangeAdded,
					Collection: domain.CollectionHospital,
					Key:        "visitors",
					DetectedAt: at,
				},
				Success:   true,
				Conflicts: []domain.DocumentKey{"act"},
			}},
		}
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: &mockQueryService{}, Monitor: monitor})

		w := doGet(t, s, "/status?limit=5")

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[StatusResponse](t, w)
		assert.Equal(t, "idle", resp.State)
		require.Len(t, resp.Events, 1)
		assert.Equal(t, "added", resp.Events[0].Type)
		assert.Equal(t, "hospital", resp.Events[0].Collection)
		assert.Equal(t, "visitors", resp.Events[0].Key)
		assert.Equal(t, "2024-03-01T12:00:00Z", resp.Events[0].DetectedAt)
		assert.Equal(t, []string{"act"}, resp.Events[0].Conflicts)
		assert.Equal(t, 5, monitor.limit)
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		monitor := &mockMonitorService{}
		s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: &mockQueryService{}, Monitor: monitor})

		w := doGet(t, s, "/status?limit=zero")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("policywatch_ticks_total 3\n"))
	})
	s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: &mockQueryService{}},
		WithMetricsHandler(metrics))

	w := doGet(t, s, "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "policywatch_ticks_total 3")
}

func TestServer_Run(t *testing.T) {
	s := newTestServer(t, &Ports{Summary: &mockSummaryService{}, Query: &mockQueryService{}},
		WithShutdownTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("x: %w", domain.ErrInvalidInput), http.StatusBadRequest},
		{domain.ErrUnknownCollection, http.StatusBadRequest},
		{domain.ErrLLMUnavailable, http.StatusServiceUnavailable},
		{domain.ErrReferenceLookupFailed, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
