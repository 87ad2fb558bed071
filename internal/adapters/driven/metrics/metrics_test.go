package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.ObserveRetry()

	assert.InDelta(t, 1, testutil.ToFloat64(a.RetriesTotal), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.RetriesTotal), 0)
}

func TestObserveTick(t *testing.T) {
	m := New()
	start := time.Unix(1700000000, 0)

	m.ObserveTick(domain.TickResult{StartedAt: start, EndedAt: start.Add(3 * time.Second), Conflicts: 2})
	m.ObserveTick(domain.TickResult{StartedAt: start, EndedAt: start.Add(time.Second)})

	assert.InDelta(t, 2, testutil.ToFloat64(m.TicksTotal), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.ConflictsTotal), 0)
	assert.InDelta(t, float64(start.Add(time.Second).Unix()), testutil.ToFloat64(m.LastTickSeconds), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.TickDuration))
}

func TestObserveEvent(t *testing.T) {
	m := New()

	m.ObserveEvent(domain.CollectionHospital, domain.ChangeAdded, true)
	m.ObserveEvent(domain.CollectionHospital, domain.ChangeAdded, false)
	m.ObserveEvent(domain.CollectionGovernment, domain.ChangeRemoved, true)

	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsTotal.WithLabelValues("hospital", "added", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsTotal.WithLabelValues("hospital", "added", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsTotal.WithLabelValues("government", "removed", "success")), 0)
}

func TestObserveInference(t *testing.T) {
	m := New()

	m.ObserveInference("summarize", 2*time.Second, nil)
	m.ObserveInference("summarize", time.Second, errors.New("boom"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.InferenceTotal.WithLabelValues("summarize", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.InferenceTotal.WithLabelValues("summarize", "error")), 0)
}

func TestSetCacheSize(t *testing.T) {
	m := New()

	m.SetCacheSize(domain.CollectionGovernment, 4)
	m.SetCacheSize(domain.CollectionGovernment, 3)

	assert.InDelta(t, 3, testutil.ToFloat64(m.CachedSummaries.WithLabelValues("government")), 0)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRetry()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "policywatch_reference_retries_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
