package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
)

// Inference operation names reported to metrics.
const (
	opSummarize  = "summarize"
	opCheck      = "check"
	opMatch      = "match"
	opReferences = "references"
	opLookup     = "lookup"
	opAnswer     = "answer"
)

// gateway wraps an LLMService with timing and metrics.
type gateway struct {
	llm     driven.LLMService
	metrics driven.Metrics
}

func (g gateway) generate(ctx context.Context, op, prompt string) (string, error) {
	if g.llm == nil {
		return "", domain.ErrLLMUnavailable
	}
	start := time.Now()
	resp, err := g.llm.Generate(ctx, prompt, driven.GenerateOptions{})
	if g.metrics != nil {
		g.metrics.ObserveInference(op, time.Since(start), err)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil
}
