package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/policywatch/internal/chunker"
	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
	"github.com/custodia-labs/policywatch/internal/core/ports/driving"
	"github.com/custodia-labs/policywatch/internal/logger"
)

// Ensure QueryService implements the interfaces.
var (
	_ driving.QueryService    = (*QueryService)(nil)
	_ driven.PromptStoreAware = (*QueryService)(nil)
)

// referencesHeader separates the direct answer from the gathered references.
const referencesHeader = "\n\n**REFERENCES:**\n\n"

// QueryService answers queries against the cached summaries and, for
// references, the raw documents. It never writes to the cache.
type QueryService struct {
	prompter
	gw        gateway
	cache     *SummaryCache
	sources   map[domain.Collection]driven.DocumentSource
	settings  domain.QuerySettings
	chunkSize int
	limiter   *rate.Limiter
	retry     RetryPolicy
}

// NewQueryService creates a query service. A zero MatchDelay disables call
// pacing and a zero ChunkPause disables the pause between reference chunks.
func NewQueryService(
	llm driven.LLMService,
	cache *SummaryCache,
	sources []driven.DocumentSource,
	settings domain.QuerySettings,
	chunkSize int,
) *QueryService {
	if chunkSize <= 0 {
		chunkSize = domain.DefaultChunkSize
	}
	limit := rate.Inf
	if settings.MatchDelay > 0 {
		limit = rate.Every(settings.MatchDelay)
	}
	bySource := make(map[domain.Collection]driven.DocumentSource, len(sources))
	for _, src := range sources {
		bySource[src.Collection()] = src
	}
	return &QueryService{
		gw:        gateway{llm: llm},
		cache:     cache,
		sources:   bySource,
		settings:  settings,
		chunkSize: chunkSize,
		limiter:   rate.NewLimiter(limit, 1),
		retry:     NewRetryPolicy(settings.RetryBackoff, settings.MaxAttempts),
	}
}

// SetMetrics attaches a metrics sink for inference calls and retries.
func (s *QueryService) SetMetrics(m driven.Metrics) {
	s.gw.metrics = m
}

// MatchDocuments asks, for every cached summary, whether it relates to the
// query. A failed call skips that document.
func (s *QueryService) MatchDocuments(ctx context.Context, query string) ([]domain.DocumentKey, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	matches := []domain.DocumentKey{}
	for _, col := range domain.Collections {
		for _, key := range s.cache.Keys(col) {
			summary, ok := s.cache.Get(col, key)
			if !ok {
				continue
			}
			if err := s.limiter.Wait(ctx); err != nil {
				return matches, err
			}
			resp, err := s.gw.generate(ctx, opMatch, s.render(driven.PromptMatchSummary, summary, query))
			if err != nil {
				logger.Warn("query: match %s/%s: %v", col, key, err)
				continue
			}
			if domain.IsRelated(resp) {
				matches = append(matches, key)
			}
		}
	}
	return matches, nil
}

// DocumentReferences re-reads a cached document in reference mode and
// concatenates the non-empty answers. Returns domain.ErrNotFound when the key
// is in neither cache.
func (s *QueryService) DocumentReferences(ctx context.Context, query string, key domain.DocumentKey) (string, error) {
	col, ok := s.cache.Find(key)
	if !ok {
		return "", fmt.Errorf("document %q: %w", key, domain.ErrNotFound)
	}

	ext, closeDoc, err := s.open(ctx, col, key)
	if err != nil {
		return "", err
	}
	defer closeDoc()

	var sb strings.Builder
	for {
		chunk, ok := ext.Next()
		if !ok {
			break
		}
		resp, err := s.gw.generate(ctx, opReferences, s.render(driven.PromptDocumentReferences, chunk.Text, query))
		if err != nil {
			return sb.String(), fmt.Errorf("references %s chunk %d: %w", key, chunk.Index, err)
		}
		sb.WriteString(resp)
	}
	return sb.String(), nil
}

// LookupQuery returns a direct answer followed by references from every
// cached document. A document whose scan fails keeps its partial output.
func (s *QueryService) LookupQuery(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	answer, err := s.gw.generate(ctx, opAnswer, s.render(driven.PromptDirectAnswer, query))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(answer)
	sb.WriteString(referencesHeader)

	for _, col := range domain.Collections {
		for _, key := range s.cache.Keys(col) {
			logger.Debug("query: scanning %s/%s", col, key)
			refs, err := s.scanReferences(ctx, col, key, query)
			sb.WriteString(refs)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return sb.String(), ctxErr
				}
				logger.Warn("query: %v", err)
			}
		}
	}
	return sb.String(), nil
}

// scanReferences walks one document's chunks, retrying a failed chunk from
// its retained text rather than re-reading the pages.
func (s *QueryService) scanReferences(
	ctx context.Context,
	col domain.Collection,
	key domain.DocumentKey,
	query string,
) (string, error) {
	ext, closeDoc, err := s.open(ctx, col, key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrReferenceLookupFailed, err)
	}
	defer closeDoc()

	var sb strings.Builder
	for {
		if _, ok := ext.Next(); !ok {
			break
		}

		err := s.retry.Do(ctx, func(int) error {
			chunk, _ := ext.Retry()
			resp, err := s.gw.generate(ctx, opLookup, s.render(driven.PromptLookupReference, chunk.Text, query))
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrInferenceTransient, err)
			}
			if !domain.IsNegativeReference(resp) {
				sb.WriteString("**" + key + "**\n" + resp + "\n")
			}
			return nil
		}, func(err error, wait time.Duration) {
			logger.Info("query: %s: %v, retrying in %s", key, err, wait)
			if s.gw.metrics != nil {
				s.gw.metrics.ObserveRetry()
			}
		})
		if err != nil {
			chunk, _ := ext.Retry()
			return sb.String(), fmt.Errorf("%w: %s pages %d-%d: %w",
				domain.ErrReferenceLookupFailed, key, chunk.FirstPage, chunk.LastPage, err)
		}

		if err := sleepCtx(ctx, s.settings.ChunkPause); err != nil {
			return sb.String(), err
		}
	}
	return sb.String(), nil
}

func (s *QueryService) open(
	ctx context.Context,
	col domain.Collection,
	key domain.DocumentKey,
) (*chunker.Extractor, func(), error) {
	src, ok := s.sources[col]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrUnknownCollection, col)
	}
	reader, err := src.Open(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s/%s: %w", col, key, err)
	}
	ext := chunker.New(reader,
		chunker.WithChunkSize(s.chunkSize),
		chunker.WithMode(domain.ChunkModeReference),
		chunker.WithName(key),
	)
	return ext, func() { _ = reader.Close() }, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
