package services

import (
	"context"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
)

// Ensure ConsistencyChecker accepts custom prompts.
var _ driven.PromptStoreAware = (*ConsistencyChecker)(nil)

// ConsistencyChecker asks the model whether two policy summaries contradict
// each other.
type ConsistencyChecker struct {
	prompter
	gw gateway
}

// NewConsistencyChecker creates a checker backed by an LLM.
func NewConsistencyChecker(llm driven.LLMService) *ConsistencyChecker {
	return &ConsistencyChecker{gw: gateway{llm: llm}}
}

// SetMetrics attaches a metrics sink for inference calls.
func (c *ConsistencyChecker) SetMetrics(m driven.Metrics) {
	c.gw.metrics = m
}

// Check compares summary a against summary b.
func (c *ConsistencyChecker) Check(ctx context.Context, a, b string) (domain.Verdict, error) {
	resp, err := c.gw.generate(ctx, opCheck, c.render(driven.PromptCheckInconsistencies, a, b))
	if err != nil {
		return domain.Verdict{}, err
	}
	return domain.ParseVerdict(resp), nil
}
