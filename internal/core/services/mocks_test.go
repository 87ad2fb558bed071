package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/policywatch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
)

// --- Mock implementations for service testing ---

var errLLMDown = errors.New("model unavailable")

// mockLLM implements driven.LLMService, answering through a respond func.
type mockLLM struct {
	mu      sync.Mutex
	respond func(prompt string) (string, error)
	prompts []string
}

func newMockLLM(respond func(prompt string) (string, error)) *mockLLM {
	return &mockLLM{respond: respond}
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	respond := m.respond
	m.mu.Unlock()
	return respond(prompt)
}

func (m *mockLLM) ModelName() string { return "mock" }

func (m *mockLLM) Ping(_ context.Context) error { return nil }

func (m *mockLLM) Close() error { return nil }

func (m *mockLLM) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// callsWithPrefix counts prompts that start with prefix.
func (m *mockLLM) callsWithPrefix(prefix string) int {
	n := 0
	for _, p := range m.calls() {
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

const (
	summarisePrefix = "Summarize this PDF file chunk"
	checkPrefix     = "Given two policies"
	matchPrefix     = "Is summary related to query?"
	refsPrefix      = "Check if there query"
	lookupPrefix    = "Check if the query"
)

// mockNotifier implements driven.Notifier and records what it was sent.
type mockNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (m *mockNotifier) Notify(_ context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return m.err
}

func (m *mockNotifier) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, n := range m.sent {
		out = append(out, n.Subject)
	}
	return out
}

func (m *mockNotifier) kinds() []domain.NotificationKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(m.sent))
	for _, n := range m.sent {
		out = append(out, n.Kind)
	}
	return out
}

// mockEventStore implements driven.EventStore in memory.
type mockEventStore struct {
	mu       sync.Mutex
	events   []domain.EventOutcome
	ticks    []domain.TickResult
	pruned   int
	eventErr error
}

func (m *mockEventStore) RecordEvent(_ context.Context, o *domain.EventOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.eventErr != nil {
		return m.eventErr
	}
	m.events = append(m.events, *o)
	return nil
}

func (m *mockEventStore) RecordTick(_ context.Context, r *domain.TickResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks = append(m.ticks, *r)
	return nil
}

func (m *mockEventStore) RecentEvents(_ context.Context, limit int) ([]domain.EventOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EventOutcome, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func (m *mockEventStore) RecentTicks(_ context.Context, limit int) ([]domain.TickResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TickResult, 0, limit)
	for i := len(m.ticks) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.ticks[i])
	}
	return out, nil
}

func (m *mockEventStore) PruneHistory(_ context.Context, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned++
	return nil
}

// mockMetrics implements driven.Metrics with counters.
type mockMetrics struct {
	mu         sync.Mutex
	ticks      int
	events     int
	inferences map[string]int
	retries    int
	cacheSizes map[domain.Collection]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		inferences: make(map[string]int),
		cacheSizes: make(map[domain.Collection]int),
	}
}

func (m *mockMetrics) ObserveTick(domain.TickResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks++
}

func (m *mockMetrics) ObserveEvent(domain.Collection, domain.ChangeType, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events++
}

func (m *mockMetrics) ObserveInference(op string, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inferences[op]++
}

func (m *mockMetrics) ObserveRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func (m *mockMetrics) SetCacheSize(col domain.Collection, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheSizes[col] = n
}

// mockPromptStore implements driven.PromptStore from a fixed map.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// failingSource wraps a memory source and fails List on demand.
type failingSource struct {
	*memory.DocumentSource
	listErr error
}

func (f *failingSource) List(ctx context.Context) ([]domain.DocumentRef, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.DocumentSource.List(ctx)
}

// fixture wires two memory collections to a cache and summary store.
type fixture struct {
	gov      *memory.DocumentSource
	hosp     *memory.DocumentSource
	store    *memory.SummaryStore
	cache    *SummaryCache
	llm      *mockLLM
	notifier *mockNotifier
	events   *mockEventStore
	metrics  *mockMetrics
}

func newFixture(respond func(prompt string) (string, error)) *fixture {
	return &fixture{
		gov:      memory.NewDocumentSource(domain.CollectionGovernment),
		hosp:     memory.NewDocumentSource(domain.CollectionHospital),
		store:    memory.NewSummaryStore(),
		cache:    NewSummaryCache(),
		llm:      newMockLLM(respond),
		notifier: &mockNotifier{},
		events:   &mockEventStore{},
		metrics:  newMockMetrics(),
	}
}

func (f *fixture) sources() []driven.DocumentSource {
	return []driven.DocumentSource{f.gov, f.hosp}
}

func (f *fixture) summarizer(chunkSize int) *Summarizer {
	return NewSummarizer(f.llm, f.store, f.sources(), chunkSize)
}

// fastQuerySettings disables every wait.
func fastQuerySettings() domain.QuerySettings {
	return domain.QuerySettings{MaxAttempts: domain.DefaultMaxAttempts}
}

// respondDefault gives deterministic answers for every prompt family.
func respondDefault(prompt string) (string, error) {
	if strings.HasPrefix(prompt, summarisePrefix) {
		return "summary", nil
	}
	return "No", nil
}
