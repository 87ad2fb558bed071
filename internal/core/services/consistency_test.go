package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsistencyChecker_Check(t *testing.T) {
	tests := []struct {
		name     string
		response string
		conflict bool
	}{
		{"yes prefix", "Yes, section 4 contradicts the directive", true},
		{"upper case yes", "YES. They disagree on staffing", true},
		{"no prefix", "No", false},
		{"no with detail", "No, the policies agree", false},
		{"yes later in text", "The answer is yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := newMockLLM(func(string) (string, error) { return tt.response, nil })
			checker := NewConsistencyChecker(llm)

			verdict, err := checker.Check(context.Background(), "policy A", "policy B")

			require.NoError(t, err)
			assert.Equal(t, tt.conflict, verdict.Conflict)
			assert.Equal(t, tt.response, verdict.Explanation)
		})
	}
}

func TestConsistencyChecker_Prompt(t *testing.T) {
	llm := newMockLLM(func(string) (string, error) { return "No", nil })
	checker := NewConsistencyChecker(llm)
	metrics := newMockMetrics()
	checker.SetMetrics(metrics)

	_, err := checker.Check(context.Background(), "AAA", "BBB")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"Given two policies, check if anything in one goes against the other. If No then answer No. " +
			"Else start answer with Yes and provide details : FIRST POLICY: AAA -- SECOND POLICY: BBB",
	}, llm.calls())
	assert.Equal(t, 1, metrics.inferences[opCheck])
}

func TestConsistencyChecker_Error(t *testing.T) {
	llm := newMockLLM(func(string) (string, error) { return "", errLLMDown })

	_, err := NewConsistencyChecker(llm).Check(context.Background(), "a", "b")

	assert.ErrorIs(t, err, errLLMDown)
}
