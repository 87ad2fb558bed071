package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/policywatch/internal/chunker"
	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
	"github.com/custodia-labs/policywatch/internal/logger"
)

// Ensure Summarizer accepts custom prompts.
var _ driven.PromptStoreAware = (*Summarizer)(nil)

// Summarizer turns a document into one summary by summarising each chunk in
// order. A summary is persisted only after every chunk succeeded.
type Summarizer struct {
	prompter
	gw        gateway
	store     driven.SummaryStore
	sources   map[domain.Collection]driven.DocumentSource
	chunkSize int
}

// NewSummarizer creates a summarizer. chunkSize <= 0 selects the default.
func NewSummarizer(
	llm driven.LLMService,
	store driven.SummaryStore,
	sources []driven.DocumentSource,
	chunkSize int,
) *Summarizer {
	if chunkSize <= 0 {
		chunkSize = domain.DefaultChunkSize
	}
	bySource := make(map[domain.Collection]driven.DocumentSource, len(sources))
	for _, src := range sources {
		bySource[src.Collection()] = src
	}
	return &Summarizer{
		gw:        gateway{llm: llm},
		store:     store,
		sources:   bySource,
		chunkSize: chunkSize,
	}
}

// SetMetrics attaches a metrics sink for inference calls.
func (s *Summarizer) SetMetrics(m driven.Metrics) {
	s.gw.metrics = m
}

// Summarize opens, summarises and persists one document.
func (s *Summarizer) Summarize(ctx context.Context, ref domain.DocumentRef) (domain.Summary, error) {
	src, ok := s.sources[ref.Collection]
	if !ok {
		return domain.Summary{}, fmt.Errorf("%w: %q", domain.ErrUnknownCollection, ref.Collection)
	}

	reader, err := src.Open(ctx, ref.Key)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("open %s/%s: %w", ref.Collection, ref.Key, err)
	}
	defer reader.Close()

	text, chunks, err := s.SummarizePages(ctx, ref.Key, reader)
	if err != nil {
		return domain.Summary{}, err
	}

	if s.store != nil {
		if err := s.store.Write(ctx, ref.Collection, ref.Key, text); err != nil {
			return domain.Summary{}, fmt.Errorf("persist summary %s/%s: %w", ref.Collection, ref.Key, err)
		}
	}

	return domain.Summary{
		Key:        ref.Key,
		Collection: ref.Collection,
		Text:       text,
		Chunks:     chunks,
		CreatedAt:  time.Now(),
	}, nil
}

// SummarizePages summarises an already opened document without persisting it.
// Returns the summary text and the number of chunks processed.
func (s *Summarizer) SummarizePages(ctx context.Context, name string, reader driven.PageReader) (string, int, error) {
	ext := chunker.New(reader,
		chunker.WithChunkSize(s.chunkSize),
		chunker.WithMode(domain.ChunkModeSummary),
		chunker.WithName(name),
	)

	var sb strings.Builder
	chunks := 0
	for {
		chunk, ok := ext.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return "", chunks, fmt.Errorf("%w: %s: %w", domain.ErrSummarizationFailed, name, err)
		}

		logger.Debug("summarizer: %s pages %d-%d of %d", name, chunk.FirstPage, chunk.LastPage, reader.NumPages())
		resp, err := s.gw.generate(ctx, opSummarize, s.render(driven.PromptSummariseChunk, chunk.Text))
		if err != nil {
			return "", chunks, fmt.Errorf("%w: %s chunk %d: %w", domain.ErrSummarizationFailed, name, chunk.Index, err)
		}
		sb.WriteString(resp)
		sb.WriteString("\n")
		chunks++
	}
	return sb.String(), chunks, nil
}
