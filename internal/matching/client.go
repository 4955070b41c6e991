package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/momentd/internal/logging"
	"github.com/fyrsmithlabs/momentd/internal/secrets"
)

// Client scores candidates with a Scorer and validates the response.
// It is safe for concurrent use.
type Client struct {
	scorer   Scorer
	scrubber secrets.Scrubber
	timeout  time.Duration
	logger   *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithScrubber sets the scrubber applied to prompt text.
func WithScrubber(s secrets.Scrubber) Option {
	return func(c *Client) {
		if s != nil {
			c.scrubber = s
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client around scorer.
func NewClient(scorer Scorer, opts ...Option) *Client {
	c := &Client{
		scorer:   scorer,
		scrubber: secrets.NoopScrubber{},
		timeout:  DefaultTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type scoreResult struct {
	text string
	err  error
}

// Match asks the scorer which candidates are relevant to description.
//
// With no candidates it returns an empty Result without calling the scorer.
// Scorer failures are reported through Result.Err with an empty match list;
// Match itself never fails.
func (c *Client) Match(ctx context.Context, description string, candidates []Candidate, hints []Hint) Result {
	if len(candidates) == 0 {
		return Result{Matches: []Match{}}
	}

	start := time.Now()
	fail := func(err error) Result {
		elapsed := time.Since(start)
		MatchDuration.WithLabelValues(outcomeLabel(err)).Observe(elapsed.Seconds())
		return Result{Matches: []Match{}, ProcessingTime: elapsed, Err: err}
	}

	if c.scorer == nil {
		return fail(fmt.Errorf("%w: no scorer configured", ErrScorerFailed))
	}

	validIDs := make(map[string]struct{}, len(candidates))
	for _, cand := range candidates {
		validIDs[cand.ID] = struct{}{}
	}

	prompt := buildPrompt(description, candidates, hints, c.scrub)
	c.logger.Trace(ctx, "scoring candidates",
		zap.Int("candidates", len(candidates)),
		zap.Int("hints", len(hints)),
		zap.Int("prompt_len", len(prompt)),
	)

	text, err := c.score(ctx, prompt)
	if err != nil {
		return fail(err)
	}

	parsed, err := parseResponse(text)
	if err != nil {
		c.logger.Debug(ctx, "unparseable scorer response",
			zap.Int("response_len", len(text)),
			zap.Error(err),
		)
		return fail(err)
	}

	matches := Validate(parsed, validIDs)
	elapsed := time.Since(start)
	MatchDuration.WithLabelValues(outcomeLabel(nil)).Observe(elapsed.Seconds())
	MatchesTotal.Add(float64(len(matches)))

	return Result{Matches: matches, ProcessingTime: elapsed}
}

// score runs the scorer in its own goroutine and waits for it or the
// deadline, whichever comes first. A scorer that ignores ctx is abandoned;
// the buffered channel lets it finish without leaking.
func (c *Client) score(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan scoreResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- scoreResult{err: fmt.Errorf("%w: panic: %v", ErrScorerFailed, r)}
			}
		}()
		text, err := c.scorer.Score(ctx, prompt)
		done <- scoreResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			return res.text, nil
		}
		if errors.Is(res.err, ErrScorerFailed) {
			return "", res.err
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrScorerTimeout, c.timeout)
		}
		return "", fmt.Errorf("%w: %v", ErrScorerFailed, res.err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrScorerTimeout, c.timeout)
		}
		return "", fmt.Errorf("%w: %v", ErrScorerFailed, ctx.Err())
	}
}

func (c *Client) scrub(s string) string {
	if s == "" {
		return s
	}
	return c.scrubber.Scrub(s).Scrubbed
}
