package http

import "github.com/fyrsmithlabs/momentd/internal/moments"

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// EnrichRequest is the request body for POST /api/v1/moments/:id/context.
type EnrichRequest struct {
	UserContext string `json:"user_context"`
}

// FeedbackRequest is the request body for POST /api/v1/moments/:id/feedback.
type FeedbackRequest struct {
	ThoughtID string `json:"thought_id"`
	Helpful   *bool  `json:"helpful"`
}

// StatusRequest is the request body for POST /api/v1/moments/:id/status.
type StatusRequest struct {
	Status moments.Status `json:"status"`
}

// ThoughtRequest is the request body for POST /api/v1/thoughts.
type ThoughtRequest struct {
	Content    string `json:"content"`
	ContextTag string `json:"context_tag"`
	Source     string `json:"source,omitempty"`
}

// ThoughtsResponse is the response body for GET /api/v1/thoughts.
type ThoughtsResponse struct {
	Thoughts []moments.Thought `json:"thoughts"`
}
