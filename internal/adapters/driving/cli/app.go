package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/policywatch/internal/adapters/driven/ai"
	"github.com/custodia-labs/policywatch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/policywatch/internal/adapters/driven/metrics"
	"github.com/custodia-labs/policywatch/internal/adapters/driven/notify"
	"github.com/custodia-labs/policywatch/internal/adapters/driven/storage/filesystem"
	"github.com/custodia-labs/policywatch/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
	"github.com/custodia-labs/policywatch/internal/core/ports/driving"
	"github.com/custodia-labs/policywatch/internal/core/services"
	"github.com/custodia-labs/policywatch/internal/logger"
)

// Replaceable constructors for the driven side.
var (
	connectLLM = ai.CreateAndValidateLLMService

	newSources = func(c domain.CollectionSettings) []driven.DocumentSource {
		return []driven.DocumentSource{
			filesystem.NewDocumentSource(domain.CollectionGovernment, c.GovernmentDir, c.Extension),
			filesystem.NewDocumentSource(domain.CollectionHospital, c.HospitalDir, c.Extension),
		}
	}

	newSummaryStore = func(c domain.CollectionSettings) driven.SummaryStore {
		return filesystem.NewSummaryStore(c)
	}

	newNotifier = notify.New

	newEventStore = func(dataDir string) (driven.EventStore, func() error, error) {
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, nil, err
		}
		return store.EventStore(), store.Close, nil
	}
)

// ensureSettingsService loads the TOML config store on first use.
func ensureSettingsService() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService = services.NewSettingsService(store)
	return settingsService, nil
}

// subDir returns a directory under the config dir, or "" to let the adapter
// pick its default.
func subDir(name string) string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, name)
}

// runtime is the set of core services wired for one command invocation.
type runtime struct {
	settings   *domain.AppSettings
	llm        driven.LLMService
	sources    []driven.DocumentSource
	store      driven.SummaryStore
	cache      *services.SummaryCache
	differ     *services.Differ
	summarizer *services.Summarizer
	checker    *services.ConsistencyChecker
	query      *services.QueryService
	summary    *services.SummaryService
	metrics    *metrics.Metrics
	closers    []func() error
}

// newRuntime wires the core services from the current settings.
func newRuntime(ctx context.Context) (*runtime, error) {
	svc, err := ensureSettingsService()
	if err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	llm, err := connectLLM(ctx, &settings.LLM)
	if err != nil {
		return nil, err
	}
	if llm == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured. Run 'policywatch settings llm' to fix",
			domain.ErrLLMUnavailable, settings.LLM.Provider)
	}
	logger.Debug("cli: using %s (%s)", settings.LLM.Provider, llm.ModelName())

	r := &runtime{
		settings: settings,
		llm:      llm,
		sources:  newSources(settings.Collections),
		store:    newSummaryStore(settings.Collections),
		cache:    services.NewSummaryCache(),
		metrics:  metrics.New(),
		closers:  []func() error{llm.Close},
	}

	r.differ = services.NewDiffer(r.sources...)
	r.summarizer = services.NewSummarizer(llm, r.store, r.sources, settings.Monitor.ChunkSize)
	r.checker = services.NewConsistencyChecker(llm)
	r.query = services.NewQueryService(llm, r.cache, r.sources, settings.Query, settings.Monitor.ChunkSize)
	r.summary = services.NewSummaryService(r.cache, r.store, r.sources, settings.Collections.Extension)

	r.cache.SetMetrics(r.metrics)
	r.summarizer.SetMetrics(r.metrics)
	r.checker.SetMetrics(r.metrics)
	r.query.SetMetrics(r.metrics)

	prompts, err := file.NewPromptStore(subDir("prompts"))
	if err != nil {
		logger.Warn("cli: custom prompts unavailable, using built-in prompts: %v", err)
	} else {
		r.summarizer.SetPromptStore(prompts)
		r.checker.SetPromptStore(prompts)
		r.query.SetPromptStore(prompts)
	}

	return r, nil
}

// warm primes the differ and loads persisted summaries for the primed
// documents. When summarize is true, documents without a persisted summary
// are summarised first.
func (r *runtime) warm(ctx context.Context, summarize bool) (int, error) {
	var summarizer *services.Summarizer
	if summarize {
		summarizer = r.summarizer
	}
	return r.cache.WarmPrimed(ctx, r.differ, r.store, summarizer)
}

// newMonitor builds the monitoring loop with notifications and history.
func (r *runtime) newMonitor() (*services.Monitor, error) {
	events, closeEvents, err := newEventStore(subDir("data"))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	r.closers = append(r.closers, closeEvents)

	return services.NewMonitor(r.settings.Monitor, services.MonitorDeps{
		Differ:     r.differ,
		Summarizer: r.summarizer,
		Cache:      r.cache,
		Checker:    r.checker,
		Notifier:   newNotifier(r.settings.Notify),
		Events:     events,
		Metrics:    r.metrics,
	}), nil
}

// Close releases every resource opened by the runtime.
func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
