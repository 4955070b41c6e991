// Package matching scores a moment description against a user's thoughts
// with an external AI scorer and sanitizes the result.
//
// The scorer is untrusted: its response is parsed into a generic JSON value
// and every field is coerced and checked by Validate before anything reaches
// the caller. Every failure mode of the scorer (timeout, provider error,
// malformed output) yields an empty match list with the elapsed time and a
// typed Err, never a panic or a returned error.
package matching

import (
	"context"
	"errors"
	"time"
)

const (
	// MinRelevanceScore is the lowest score that survives validation.
	// Lower scores are noise and are dropped, not deprioritized.
	MinRelevanceScore = 0.5

	// MaxMatches caps the matches returned for one scoring call.
	MaxMatches = 5

	// MaxReasonLength bounds relevance reasons, in characters.
	MaxReasonLength = 500

	// DefaultTimeout bounds a single scorer call.
	DefaultTimeout = 5 * time.Second
)

var (
	// ErrScorerTimeout means the scorer did not answer within the timeout.
	ErrScorerTimeout = errors.New("scorer timed out")

	// ErrScorerFailed means the scorer returned an error or was cancelled.
	ErrScorerFailed = errors.New("scorer failed")

	// ErrMalformedResponse means the scorer's output was not parseable JSON.
	ErrMalformedResponse = errors.New("malformed scorer response")
)

// Scorer sends a prompt to a generative model and returns its raw text,
// which is expected to hold JSON.
type Scorer interface {
	Score(ctx context.Context, prompt string) (string, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, prompt string) (string, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Candidate is a thought offered to the scorer.
type Candidate struct {
	ID         string
	Content    string
	ContextTag string
	Source     string
}

// Hint is a thought that was repeatedly helpful in similar situations.
type Hint struct {
	ThoughtID    string
	Content      string
	Confidence   float64
	HelpfulCount int
}

// Match is a validated scorer result for one thought.
type Match struct {
	ThoughtID string  `json:"thought_id"`
	Score     float64 `json:"relevance_score"`
	Reason    string  `json:"relevance_reason"`
}

// Result is the outcome of one Client.Match call. Err is nil on success,
// including when no candidate was relevant.
type Result struct {
	Matches        []Match
	ProcessingTime time.Duration
	Err            error
}

// Degraded reports whether the scorer failed and the matches are empty
// for that reason rather than because nothing was relevant.
func (r Result) Degraded() bool {
	return r.Err != nil
}
