package matching

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/momentd/internal/secrets"
)

// fakeScorer records prompts and returns a canned response.
type fakeScorer struct {
	mu       sync.Mutex
	prompts  []string
	response string
	err      error
}

func (f *fakeScorer) Score(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeScorer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

var testCandidates = []Candidate{
	{ID: "t1", Content: "Listen more than you talk", ContextTag: "leadership"},
	{ID: "t2", Content: "Write the agenda first", ContextTag: "meetings", Source: "High Output Management"},
}

func TestClient_EmptyCandidatesSkipScorer(t *testing.T) {
	scorer := &fakeScorer{response: `[]`}
	c := NewClient(scorer)

	res := c.Match(context.Background(), "standup", nil, nil)

	assert.Empty(t, res.Matches)
	assert.NoError(t, res.Err)
	assert.Zero(t, res.ProcessingTime)
	assert.Equal(t, 0, scorer.calls())
}

func TestClient_Success(t *testing.T) {
	scorer := &fakeScorer{response: "```json\n" + `{"matches": [
		{"gem_id": "t2", "relevance_score": 0.91, "relevance_reason": "agenda keeps 1:1s focused"},
		{"gem_id": "t9", "relevance_score": 0.99, "relevance_reason": "not a candidate"},
		{"gem_id": "t1", "relevance_score": 0.4, "relevance_reason": "weak"}
	]}` + "\n```"}
	c := NewClient(scorer)

	res := c.Match(context.Background(), "1:1 with Sarah", testCandidates, nil)

	require.NoError(t, res.Err)
	assert.False(t, res.Degraded())
	require.Len(t, res.Matches, 1)
	assert.Equal(t, Match{ThoughtID: "t2", Score: 0.91, Reason: "agenda keeps 1:1s focused"}, res.Matches[0])
	assert.Positive(t, res.ProcessingTime)
}

func TestClient_MalformedResponseFailsOpen(t *testing.T) {
	scorer := &fakeScorer{response: "I think thought t1 is great"}
	c := NewClient(scorer)

	res := c.Match(context.Background(), "planning", testCandidates, nil)

	assert.Empty(t, res.Matches)
	assert.ErrorIs(t, res.Err, ErrMalformedResponse)
	assert.True(t, res.Degraded())
	assert.Positive(t, res.ProcessingTime)
}

func TestClient_ScorerErrorFailsOpen(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("503 overloaded")}
	c := NewClient(scorer)

	res := c.Match(context.Background(), "planning", testCandidates, nil)

	assert.Empty(t, res.Matches)
	assert.ErrorIs(t, res.Err, ErrScorerFailed)
	assert.Contains(t, res.Err.Error(), "503 overloaded")
}

func TestClient_TimeoutWithUncooperativeScorer(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	scorer := ScorerFunc(func(context.Context, string) (string, error) {
		<-release // ignores ctx
		return `[]`, nil
	})
	c := NewClient(scorer, WithTimeout(50*time.Millisecond))

	start := time.Now()
	res := c.Match(context.Background(), "review", testCandidates, nil)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, res.Matches)
	assert.ErrorIs(t, res.Err, ErrScorerTimeout)
	assert.GreaterOrEqual(t, res.ProcessingTime, 50*time.Millisecond)
}

func TestClient_TimeoutWithCooperativeScorer(t *testing.T) {
	scorer := ScorerFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	c := NewClient(scorer, WithTimeout(20*time.Millisecond))

	res := c.Match(context.Background(), "review", testCandidates, nil)

	assert.ErrorIs(t, res.Err, ErrScorerTimeout)
}

func TestClient_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scorer := ScorerFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	c := NewClient(scorer)

	res := c.Match(ctx, "review", testCandidates, nil)

	assert.ErrorIs(t, res.Err, ErrScorerFailed)
	assert.NotErrorIs(t, res.Err, ErrScorerTimeout)
}

func TestClient_ScorerPanicFailsOpen(t *testing.T) {
	scorer := ScorerFunc(func(context.Context, string) (string, error) {
		panic("boom")
	})
	c := NewClient(scorer)

	res := c.Match(context.Background(), "review", testCandidates, nil)

	assert.Empty(t, res.Matches)
	assert.ErrorIs(t, res.Err, ErrScorerFailed)
}

func TestClient_NilScorer(t *testing.T) {
	res := NewClient(nil).Match(context.Background(), "review", testCandidates, nil)
	assert.ErrorIs(t, res.Err, ErrScorerFailed)
}

func TestClient_PromptContents(t *testing.T) {
	scorer := &fakeScorer{response: `[]`}
	c := NewClient(scorer)
	hints := []Hint{{ThoughtID: "t1", Confidence: 0.83, HelpfulCount: 5}}

	c.Match(context.Background(), "Quarterly planning", testCandidates, hints)

	require.Equal(t, 1, scorer.calls())
	prompt := scorer.prompts[0]
	assert.Contains(t, prompt, "Quarterly planning")
	assert.Contains(t, prompt, "previously helpful for similar situations")
	assert.Contains(t, prompt, "- t1 (helpful 5 times, 83% of the time)")
	assert.Contains(t, prompt, "1. [id: t1] Listen more than you talk (context: leadership)")
	assert.Contains(t, prompt, "2. [id: t2] Write the agenda first (context: meetings, source: High Output Management)")
}

func TestClient_PromptWithoutHints(t *testing.T) {
	scorer := &fakeScorer{response: `[]`}
	NewClient(scorer).Match(context.Background(), "standup", testCandidates, nil)

	require.Equal(t, 1, scorer.calls())
	assert.NotContains(t, scorer.prompts[0], "previously helpful")
}

func TestClient_PromptIsScrubbed(t *testing.T) {
	scrubber, err := secrets.New(secrets.DefaultConfig())
	require.NoError(t, err)
	scorer := &fakeScorer{response: `[]`}
	c := NewClient(scorer, WithScrubber(scrubber))

	key := "AKIA" + strings.Repeat("Z", 16)
	c.Match(context.Background(), "rotate "+key+" before the review", testCandidates, nil)

	require.Equal(t, 1, scorer.calls())
	assert.NotContains(t, scorer.prompts[0], key)
	assert.Contains(t, scorer.prompts[0], "rotate ")
}
