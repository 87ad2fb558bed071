package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policywatch/internal/core/domain"
)

func (f *fixture) query(settings domain.QuerySettings, chunkSize int) *QueryService {
	q := NewQueryService(f.llm, f.cache, f.sources(), settings, chunkSize)
	q.SetMetrics(f.metrics)
	return q
}

func TestQueryService_MatchDocuments_AlwaysNo(t *testing.T) {
	f := newFixture(func(string) (string, error) { return "No", nil })
	f.cache.Put(domain.CollectionGovernment, "g1", "gov summary")
	f.cache.Put(domain.CollectionHospital, "h1", "hospital summary")

	matches, err := f.query(fastQuerySettings(), 20).MatchDocuments(context.Background(), "irrelevant-query-xyz")

	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
	assert.Equal(t, 2, f.llm.callsWithPrefix(matchPrefix))
}

func TestQueryService_MatchDocuments_OrderAndLooseYes(t *testing.T) {
	f := newFixture(func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "SUMMARY: broken"):
			return "", errLLMDown
		case strings.Contains(prompt, "SUMMARY: relevant"):
			return "Well, YES it is", nil
		default:
			return "No", nil
		}
	})
	f.cache.Put(domain.CollectionHospital, "h-match", "relevant")
	f.cache.Put(domain.CollectionGovernment, "g-b", "relevant")
	f.cache.Put(domain.CollectionGovernment, "g-a", "unrelated")
	f.cache.Put(domain.CollectionGovernment, "g-c", "broken")

	matches, err := f.query(fastQuerySettings(), 20).MatchDocuments(context.Background(), "staffing")

	require.NoError(t, err)
	assert.Equal(t, []domain.DocumentKey{"g-b", "h-match"}, matches)
	assert.Equal(t, 4, f.metrics.inferences[opMatch])

	calls := f.llm.calls()
	require.Len(t, calls, 4)
	assert.Equal(t, "Is summary related to query? Just: Yes or No. SUMMARY: unrelated QUERY: staffing", calls[0])
}

func TestQueryService_MatchDocuments_Paced(t *testing.T) {
	f := newFixture(func(string) (string, error) { return "No", nil })
	f.cache.Put(domain.CollectionGovernment, "a", "x")
	f.cache.Put(domain.CollectionGovernment, "b", "x")
	f.cache.Put(domain.CollectionGovernment, "c", "x")
	settings := fastQuerySettings()
	settings.MatchDelay = 40 * time.Millisecond

	start := time.Now()
	_, err := f.query(settings, 20).MatchDocuments(context.Background(), "q")

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestQueryService_MatchDocuments_EmptyQuery(t *testing.T) {
	f := newFixture(respondDefault)

	_, err := f.query(fastQuerySettings(), 20).MatchDocuments(context.Background(), "  ")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueryService_DocumentReferences_NotFound(t *testing.T) {
	f := newFixture(respondDefault)
	f.gov.Add("on-disk-only", "page")

	refs, err := f.query(fastQuerySettings(), 20).DocumentReferences(context.Background(), "q", "on-disk-only")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, refs)
	assert.Empty(t, f.llm.calls())
}

func TestQueryService_DocumentReferences(t *testing.T) {
	f := newFixture(func(prompt string) (string, error) {
		if strings.Contains(prompt, "PAGE NUMBER 3 ") {
			return "", nil
		}
		if strings.Contains(prompt, "PAGE NUMBER 1 ") {
			return "quote p1 ", nil
		}
		return "quote p2", nil
	})
	f.hosp.Add("manual", "alpha", "beta", "gamma")
	f.cache.Put(domain.CollectionHospital, "manual", "summary")

	refs, err := f.query(fastQuerySettings(), 1).DocumentReferences(context.Background(), "masks", "manual")

	require.NoError(t, err)
	assert.Equal(t, "quote p1 quote p2", refs)

	calls := f.llm.calls()
	require.Len(t, calls, 3)
	assert.Equal(t,
		"Check if there query can be referenced in these pages and quote accordingly with page numbers? "+
			"TEXT: PAGE NUMBER 1 alpha QUERY: masks", calls[0])
}

func TestQueryService_DocumentReferences_PrefersGovernment(t *testing.T) {
	f := newFixture(func(prompt string) (string, error) { return prompt[strings.Index(prompt, "TEXT: "):], nil })
	f.gov.Add("dup", "gov text")
	f.hosp.Add("dup", "hosp text")
	f.cache.Put(domain.CollectionGovernment, "dup", "s")
	f.cache.Put(domain.CollectionHospital, "dup", "s")

	refs, err := f.query(fastQuerySettings(), 20).DocumentReferences(context.Background(), "q", "dup")

	require.NoError(t, err)
	assert.Contains(t, refs, "gov text")
}

func TestQueryService_LookupQuery_RetriesFailedChunkOnce(t *testing.T) {
	var mu sync.Mutex
	failedOnce := false
	f := newFixture(func(prompt string) (string, error) {
		if !strings.HasPrefix(prompt, lookupPrefix) {
			return "Direct answer", nil
		}
		switch {
		case strings.Contains(prompt, "PAGE NUMBER 2 "):
			mu.Lock()
			defer mu.Unlock()
			if !failedOnce {
				failedOnce = true
				return "", errLLMDown
			}
			return "Yes, page 2 says so", nil
		case strings.Contains(prompt, "PAGE NUMBER 1 "):
			return "Page 1 quote", nil
		default:
			return "No", nil
		}
	})
	f.gov.Add("policy", "one", "two", "three")
	f.cache.Put(domain.CollectionGovernment, "policy", "s")

	out, err := f.query(fastQuerySettings(), 1).LookupQuery(context.Background(), "what about two?")

	require.NoError(t, err)
	assert.Equal(t,
		"Direct answer\n\n**REFERENCES:**\n\n"+
			"**policy**\nPage 1 quote\n"+
			"**policy**\nYes, page 2 says so\n",
		out)
	assert.Equal(t, 4, f.llm.callsWithPrefix(lookupPrefix))
	assert.Equal(t, 1, f.metrics.retries)

	var page2 []string
	for _, c := range f.llm.calls() {
		if strings.Contains(c, "PAGE NUMBER 2 ") {
			page2 = append(page2, c)
		}
	}
	require.Len(t, page2, 2)
	assert.Equal(t, page2[0], page2[1])
}

func TestQueryService_LookupQuery_ExhaustionKeepsPartial(t *testing.T) {
	f := newFixture(func(prompt string) (string, error) {
		switch {
		case !strings.HasPrefix(prompt, lookupPrefix):
			return "Answer", nil
		case strings.Contains(prompt, "PAGE NUMBER 2 two-a"):
			return "", errLLMDown
		case strings.Contains(prompt, "PAGE NUMBER 1 one-a"):
			return "A1", nil
		default:
			return "B1", nil
		}
	})
	f.gov.Add("a", "one-a", "two-a", "three-a")
	f.hosp.Add("b", "one-b")
	f.cache.Put(domain.CollectionGovernment, "a", "s")
	f.cache.Put(domain.CollectionHospital, "b", "s")
	settings := fastQuerySettings()
	settings.MaxAttempts = 3

	out, err := f.query(settings, 1).LookupQuery(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, "Answer\n\n**REFERENCES:**\n\n**a**\nA1\n**b**\nB1\n", out)
	assert.Equal(t, 2, f.metrics.retries)
	assert.NotContains(t, strings.Join(f.llm.calls(), "|"), "three-a")
}

func TestQueryService_LookupQuery_NegativeResponsesDropped(t *testing.T) {
	f := newFixture(func(prompt string) (string, error) {
		if !strings.HasPrefix(prompt, lookupPrefix) {
			return "Answer", nil
		}
		if strings.Contains(prompt, "PAGE NUMBER 1 ") {
			return "NO", nil
		}
		return "Nothing relevant here", nil
	})
	f.gov.Add("a", "x", "y")
	f.cache.Put(domain.CollectionGovernment, "a", "s")

	out, err := f.query(fastQuerySettings(), 1).LookupQuery(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, "Answer"+referencesHeader, out)
}

func TestQueryService_LookupQuery_DirectAnswerFails(t *testing.T) {
	f := newFixture(func(string) (string, error) { return "", errLLMDown })

	_, err := f.query(fastQuerySettings(), 20).LookupQuery(context.Background(), "q")

	assert.ErrorIs(t, err, errLLMDown)
}

func TestQueryService_LookupQuery_UnreadableDocumentSkipped(t *testing.T) {
	f := newFixture(func(prompt string) (string, error) {
		if !strings.HasPrefix(prompt, lookupPrefix) {
			return "Answer", nil
		}
		return "Found it", nil
	})
	f.gov.Add("broken", "x")
	f.gov.MarkUnreadable("broken")
	f.gov.Add("fine", "y")
	f.cache.Put(domain.CollectionGovernment, "broken", "s")
	f.cache.Put(domain.CollectionGovernment, "fine", "s")

	out, err := f.query(fastQuerySettings(), 20).LookupQuery(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, "Answer"+referencesHeader+"**fine**\nFound it\n", out)
}

func TestQueryService_LookupQuery_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, lookupPrefix) {
			cancel()
			return "", context.Canceled
		}
		return "Answer", nil
	})
	f.gov.Add("a", "x")
	f.cache.Put(domain.CollectionGovernment, "a", "s")

	_, err := f.query(fastQuerySettings(), 20).LookupQuery(ctx, "q")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.llm.callsWithPrefix(lookupPrefix))
}
