package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
)

func TestCountVerbs(t *testing.T) {
	tests := []struct {
		tmpl     string
		expected int
	}{
		{"", 0},
		{"plain text", 0},
		{"%s", 1},
		{"FIRST: %s SECOND: %s", 2},
		{"100%% of %s", 1},
		{"trailing %", 1},
	}

	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			assert.Equal(t, tt.expected, countVerbs(tt.tmpl))
		})
	}
}

func TestPrompter_RendersMatchingCustomTemplate(t *testing.T) {
	var p prompter
	p.SetPromptStore(&mockPromptStore{prompts: map[string]string{
		driven.PromptMatchSummary: "Relevant? %s / %s",
	}})

	assert.Equal(t, "Relevant? rules / visitors", p.render(driven.PromptMatchSummary, "rules", "visitors"))
}

func TestPrompter_FallsBackOnPlaceholderMismatch(t *testing.T) {
	tests := []struct {
		name   string
		custom string
	}{
		{"too few", "Compare these: %s"},
		{"too many", "%s vs %s vs %s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p prompter
			p.SetPromptStore(&mockPromptStore{prompts: map[string]string{
				driven.PromptCheckInconsistencies: tt.custom,
			}})

			got := p.render(driven.PromptCheckInconsistencies, "policy A", "policy B")

			assert.True(t, strings.HasPrefix(got, checkPrefix))
			assert.Contains(t, got, "FIRST POLICY: policy A -- SECOND POLICY: policy B")
			assert.NotContains(t, got, "%!")
		})
	}
}

func TestConsistencyChecker_IgnoresMalformedCustomPrompt(t *testing.T) {
	f := newFixture(respondDefault)
	c := NewConsistencyChecker(f.llm)
	c.SetPromptStore(&mockPromptStore{prompts: map[string]string{
		driven.PromptCheckInconsistencies: "Do these conflict? %s",
	}})

	_, err := c.Check(context.Background(), "a", "b")

	require.NoError(t, err)
	assert.Equal(t, 1, f.llm.callsWithPrefix(checkPrefix))
}
