// Package scorer provides the AI relevance scorers behind matching.Scorer.
//
// Two providers are supported: OpenAI (and OpenAI-compatible endpoints)
// through langchaingo, and Anthropic's Messages API over plain HTTP. Both
// are rate limited client-side. Neither retries: the matching client bounds
// each call and treats failures as "no matches".
package scorer

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/momentd/internal/config"
	"github.com/fyrsmithlabs/momentd/internal/matching"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-haiku-20241022"
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIModel      = "gpt-4o-mini"

	// Relevance responses are short JSON documents.
	defaultMaxTokens   = 1024
	defaultTemperature = 0.2

	maxErrorBodyLen = 512
)

// ErrDisabled is returned by the scorer used when ai.provider is "disabled".
var ErrDisabled = errors.New("ai scorer disabled")

// ErrMissingAPIKey is returned by New when a provider needs a key and none is set.
var ErrMissingAPIKey = errors.New("api key required")

// New builds the scorer selected by cfg.Provider.
func New(cfg config.AIConfig) (matching.Scorer, error) {
	switch cfg.Provider {
	case "disabled":
		return Disabled{}, nil
	case "openai", "":
		return NewOpenAI(cfg)
	case "anthropic":
		return NewAnthropic(cfg)
	default:
		return nil, fmt.Errorf("unknown ai provider: %q", cfg.Provider)
	}
}

// Disabled is a scorer that always fails, so every moment is created with
// zero matches.
type Disabled struct{}

// Score returns ErrDisabled.
func (Disabled) Score(context.Context, string) (string, error) {
	return "", ErrDisabled
}

func newLimiter(cfg config.AIConfig) *rate.Limiter {
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(limit, burst)
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBodyLen {
		return string(body[:maxErrorBodyLen]) + "..."
	}
	return string(body)
}

var (
	_ matching.Scorer = Disabled{}
	_ matching.Scorer = (*OpenAI)(nil)
	_ matching.Scorer = (*Anthropic)(nil)
)
