package services

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
	"github.com/custodia-labs/policywatch/internal/core/ports/driving"
	"github.com/custodia-labs/policywatch/internal/logger"
)

// Ensure Monitor implements the interface.
var _ driving.MonitorService = (*Monitor)(nil)

// historyKeep is the number of ticks and events retained in the event store.
const historyKeep = 500

// MonitorDeps holds the collaborators of a Monitor. Notifier, Events and
// Metrics may be nil.
type MonitorDeps struct {
	Differ     *Differ
	Summarizer *Summarizer
	Cache      *SummaryCache
	Checker    *ConsistencyChecker
	Notifier   driven.Notifier
	Events     driven.EventStore
	Metrics    driven.Metrics
}

// Monitor polls both collections and reacts to Added and Removed documents.
// One tick runs at a time; within a collection every Added event is handled
// before any Removed event.
type Monitor struct {
	settings domain.MonitorSettings
	deps     MonitorDeps

	mu      sync.Mutex
	running bool
	state   domain.MonitorState
	stopCh  chan struct{}
	wg      sync.WaitGroup

	tickMu sync.Mutex
	retry  map[cacheKey]domain.DocumentRef
}

// NewMonitor creates a monitor. Zero settings fields take their defaults.
func NewMonitor(settings domain.MonitorSettings, deps MonitorDeps) *Monitor {
	if settings.Interval <= 0 {
		settings.Interval = domain.DefaultInterval
	}
	return &Monitor{
		settings: settings,
		deps:     deps,
		state:    domain.MonitorIdle,
		retry:    make(map[cacheKey]domain.DocumentRef),
	}
}

// Start runs the loop until ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.state = domain.MonitorIdle
	stopCh := m.stopCh
	m.wg.Add(1)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.state = domain.MonitorStopped
		m.mu.Unlock()
		m.wg.Done()
	}()

	if !m.deps.Differ.Primed() {
		if err := m.deps.Differ.Prime(ctx); err != nil {
			logger.Warn("monitor: initial scan failed, will retry on next tick: %v", err)
		}
	}

	wake := make(chan struct{}, 1)
	if closeWatcher := m.watch(stopCh, wake); closeWatcher != nil {
		defer closeWatcher()
	}

	ticker := time.NewTicker(m.settings.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
		case <-wake:
			logger.Debug("monitor: woken by filesystem event")
		}
		if _, err := m.RunOnce(ctx); err != nil {
			logger.Warn("monitor: tick failed: %v", err)
		}
	}
}

// Stop halts the loop and waits for the in-flight tick to finish.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}

// State returns the current loop state.
func (m *Monitor) State() domain.MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// History returns recent event outcomes, newest first.
func (m *Monitor) History(ctx context.Context, limit int) ([]domain.EventOutcome, error) {
	if m.deps.Events == nil {
		return nil, nil
	}
	return m.deps.Events.RecentEvents(ctx, limit)
}

// RunOnce polls every collection once and handles the resulting events.
func (m *Monitor) RunOnce(ctx context.Context) (*domain.TickResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	result := &domain.TickResult{StartedAt: time.Now()}
	for _, col := range m.deps.Differ.Collections() {
		m.setState(domain.MonitorPolling)
		events, err := m.deps.Differ.Poll(ctx, col)
		if err != nil {
			logger.Warn("monitor: %v", err)
			result.Failures++
			continue
		}

		m.setState(domain.MonitorProcessing)
		m.retryFailed(ctx, col, result)
		for _, ev := range events {
			outcome := m.handle(ctx, ev)
			m.tally(result, ev, outcome)
			m.record(ctx, &outcome)
		}
	}
	m.setState(domain.MonitorIdle)
	result.EndedAt = time.Now()

	m.finishTick(ctx, result)
	return result, nil
}

func (m *Monitor) handle(ctx context.Context, ev domain.ChangeEvent) domain.EventOutcome {
	switch ev.Type {
	case domain.ChangeAdded:
		ref, ok := m.deps.Differ.Ref(ev.Collection, ev.Key)
		if !ok {
			ref = domain.DocumentRef{Key: ev.Key, Collection: ev.Collection}
		}
		return m.handleAdded(ctx, ev, ref)
	default:
		return m.handleRemoved(ctx, ev)
	}
}

func (m *Monitor) handleAdded(ctx context.Context, ev domain.ChangeEvent, ref domain.DocumentRef) domain.EventOutcome {
	outcome := domain.EventOutcome{Event: ev}
	col := ev.Collection
	logger.Info("monitor: new %s policy %q, summarizing", col, ev.Key)

	unlock := m.deps.Cache.Lock(col, ev.Key)
	summary, err := m.deps.Summarizer.Summarize(ctx, ref)
	if err != nil {
		unlock()
		logger.Warn("monitor: %v", err)
		outcome.Error = err.Error()
		if m.settings.RetryFailed {
			m.retry[cacheKey{col, ev.Key}] = ref
		}
		return outcome
	}
	m.deps.Cache.Put(col, ev.Key, summary.Text)
	unlock()
	delete(m.retry, cacheKey{col, ev.Key})

	m.notify(ctx, addedNotification(col, summary))

	for _, other := range m.deps.Cache.Keys(col.Opposite()) {
		otherText, ok := m.deps.Cache.Get(col.Opposite(), other)
		if !ok {
			continue
		}
		verdict, err := m.deps.Checker.Check(ctx, summary.Text, otherText)
		if err != nil {
			logger.Warn("monitor: check %s against %s: %v", ev.Key, other, err)
			continue
		}
		if verdict.Conflict {
			outcome.Conflicts = append(outcome.Conflicts, other)
			m.notify(ctx, inconsistencyNotification(col, ev.Key, other, verdict))
		}
	}

	outcome.Success = true
	return outcome
}

func (m *Monitor) handleRemoved(ctx context.Context, ev domain.ChangeEvent) domain.EventOutcome {
	logger.Info("monitor: %s policy %q removed", ev.Collection, ev.Key)
	delete(m.retry, cacheKey{ev.Collection, ev.Key})

	m.notify(ctx, removedNotification(ev.Collection, ev.Key))

	if m.settings.PruneRemoved {
		unlock := m.deps.Cache.Lock(ev.Collection, ev.Key)
		m.deps.Cache.Delete(ev.Collection, ev.Key)
		unlock()
	}
	return domain.EventOutcome{Event: ev, Success: true}
}

// retryFailed re-attempts documents of col whose summarization failed on an
// earlier tick and which are still present. It runs before the tick's own
// events so a failure is never retried within the tick that produced it.
func (m *Monitor) retryFailed(ctx context.Context, col domain.Collection, result *domain.TickResult) {
	if !m.settings.RetryFailed {
		return
	}
	for id, ref := range m.retry {
		if id.collection != col {
			continue
		}
		if !m.deps.Differ.Present(col, id.key) {
			delete(m.retry, id)
			continue
		}
		ev := newChangeEvent(domain.ChangeAdded, col, id.key, time.Now())
		outcome := m.handleAdded(ctx, ev, ref)
		m.tally(result, ev, outcome)
		m.record(ctx, &outcome)
	}
}

func (m *Monitor) tally(result *domain.TickResult, ev domain.ChangeEvent, outcome domain.EventOutcome) {
	switch {
	case !outcome.Success:
		result.Failures++
	case ev.Type == domain.ChangeAdded:
		result.Added++
	default:
		result.Removed++
	}
	result.Conflicts += len(outcome.Conflicts)
}

func (m *Monitor) notify(ctx context.Context, n domain.Notification) {
	if m.deps.Notifier == nil {
		logger.Info("monitor: notification %q (no notifier configured)", n.Subject)
		return
	}
	if err := m.deps.Notifier.Notify(ctx, n); err != nil {
		logger.Warn("monitor: notify %q: %v", n.Subject, err)
	}
}

func (m *Monitor) record(ctx context.Context, outcome *domain.EventOutcome) {
	if m.deps.Metrics != nil {
		m.deps.Metrics.ObserveEvent(outcome.Event.Collection, outcome.Event.Type, outcome.Success)
	}
	if m.deps.Events == nil {
		return
	}
	if err := m.deps.Events.RecordEvent(ctx, outcome); err != nil {
		logger.Warn("monitor: record event: %v", err)
	}
}

func (m *Monitor) finishTick(ctx context.Context, result *domain.TickResult) {
	if m.deps.Metrics != nil {
		m.deps.Metrics.ObserveTick(*result)
	}
	if m.deps.Events == nil {
		return
	}
	if err := m.deps.Events.RecordTick(ctx, result); err != nil {
		logger.Warn("monitor: record tick: %v", err)
	}
	if err := m.deps.Events.PruneHistory(ctx, historyKeep); err != nil {
		logger.Warn("monitor: prune history: %v", err)
	}
}

func (m *Monitor) setState(s domain.MonitorState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

// watch starts an fsnotify watcher over the collection directories. Events
// wake the loop early; a pending wake absorbs further events. Returns nil
// when no directory can be watched.
func (m *Monitor) watch(stopCh <-chan struct{}, wake chan<- struct{}) func() {
	dirs := m.deps.Differ.Dirs()
	if len(dirs) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("monitor: filesystem watcher unavailable, polling only: %v", err)
		return nil
	}
	watched := 0
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logger.Warn("monitor: cannot watch %s: %v", dir, err)
			continue
		}
		watched++
	}
	if watched == 0 {
		_ = watcher.Close()
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stopCh:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					select {
					case wake <- struct{}{}:
					default:
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Debug("monitor: watcher error: %v", err)
			}
		}
	}()

	return func() {
		_ = watcher.Close()
		<-done
	}
}
