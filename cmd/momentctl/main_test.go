package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/momentd/internal/moments"
)

type recordedRequest struct {
	Method string
	Path   string
	UserID string
	Body   string
}

// fakeAPI records requests and answers each route with a canned response.
type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	response any
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		UserID: r.Header.Get("X-User-ID"),
		Body:   string(body),
	})
	status, response := f.status, f.response
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	if response == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func (f *fakeAPI) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func runCLI(t *testing.T, api *fakeAPI, args ...string) (string, error) {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--server", srv.URL, "--user", "user-1", "--timeout", "5s"}, args...))
	err := root.Execute()
	return out.String(), err
}

func sampleMoment() *moments.MomentWithMatches {
	thought := &moments.Thought{ID: "t-1", Content: "Anchor high and let them counter", ContextTag: "negotiation"}
	return &moments.MomentWithMatches{
		Moment: &moments.Moment{
			ID:               "m-1",
			Description:      "Salary negotiation",
			Status:           moments.StatusActive,
			MatchState:       moments.MatchStateMatched,
			ProcessingTimeMs: 42,
			CreatedAt:        time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
		},
		Matches: []moments.Match{
			{MomentID: "m-1", ThoughtID: "t-1", Score: 0.92, Reason: "Directly about negotiating", Thought: thought},
		},
	}
}

func TestMomentCreate(t *testing.T) {
	api := &fakeAPI{status: http.StatusCreated, response: sampleMoment()}

	out, err := runCLI(t, api, "moment", "create", "Salary", "negotiation",
		"--context", "with my manager",
		"--source", "calendar",
		"--event-id", "evt-9",
		"--event-type", "one_on_one",
		"--start", "2026-03-02T15:00:00Z",
		"--attendee", "ana@example.com",
		"--attendee", "bo@example.com",
	)
	require.NoError(t, err)

	req := api.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/moments", req.Path)
	assert.Equal(t, "user-1", req.UserID)

	var sent moments.CreateRequest
	require.NoError(t, json.Unmarshal([]byte(req.Body), &sent))
	assert.Equal(t, "Salary negotiation", sent.Description)
	assert.Equal(t, moments.SourceCalendar, sent.Source)
	assert.Equal(t, "with my manager", sent.UserContext)
	assert.Equal(t, "one_on_one", string(sent.EventType))
	require.NotNil(t, sent.Calendar)
	assert.Equal(t, "evt-9", sent.Calendar.ExternalEventID)
	assert.Equal(t, []string{"ana@example.com", "bo@example.com"}, sent.Calendar.Attendees)
	require.NotNil(t, sent.Calendar.StartTime)
	assert.True(t, sent.Calendar.StartTime.Equal(time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)))

	assert.Contains(t, out, "Moment m-1 (active, matched)")
	assert.Contains(t, out, "1 match(es) in 42ms")
	assert.Contains(t, out, "0.92  t-1  Anchor high and let them counter")
	assert.Contains(t, out, "Directly about negotiating")
}

func TestMomentCreate_ManualHasNoCalendar(t *testing.T) {
	api := &fakeAPI{status: http.StatusCreated, response: sampleMoment()}

	_, err := runCLI(t, api, "moment", "create", "Quick chat")
	require.NoError(t, err)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(api.last(t).Body), &sent))
	assert.Equal(t, "manual", sent["source"])
	assert.NotContains(t, sent, "calendar")
}

func TestMomentCreate_InvalidStart(t *testing.T) {
	api := &fakeAPI{}

	_, err := runCLI(t, api, "moment", "create", "x", "--start", "tomorrow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --start")
	assert.Empty(t, api.requests)
}

func TestMomentGet_JSON(t *testing.T) {
	api := &fakeAPI{response: sampleMoment()}

	out, err := runCLI(t, api, "--json", "moment", "get", "m-1")
	require.NoError(t, err)

	req := api.last(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/v1/moments/m-1", req.Path)

	var got moments.MomentWithMatches
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "m-1", got.Moment.ID)
	require.Len(t, got.Matches, 1)
	assert.Equal(t, "t-1", got.Matches[0].ThoughtID)
}

func TestMomentEnrich(t *testing.T) {
	api := &fakeAPI{response: sampleMoment()}

	_, err := runCLI(t, api, "moment", "enrich", "m-1", "They", "care", "about", "headcount")
	require.NoError(t, err)

	req := api.last(t)
	assert.Equal(t, "/api/v1/moments/m-1/context", req.Path)
	assert.JSONEq(t, `{"user_context":"They care about headcount"}`, req.Body)
}

func TestMomentFeedback(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantBody string
		wantOut  string
	}{
		{
			name:     "helpful by default",
			args:     []string{"moment", "feedback", "m-1", "t-1"},
			wantBody: `{"thought_id":"t-1","helpful":true}`,
			wantOut:  "Recorded t-1 as helpful",
		},
		{
			name:     "not helpful",
			args:     []string{"moment", "feedback", "m-1", "t-1", "--not-helpful"},
			wantBody: `{"thought_id":"t-1","helpful":false}`,
			wantOut:  "Recorded t-1 as not helpful",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{status: http.StatusNoContent}

			out, err := runCLI(t, api, tt.args...)
			require.NoError(t, err)

			req := api.last(t)
			assert.Equal(t, "/api/v1/moments/m-1/feedback", req.Path)
			assert.JSONEq(t, tt.wantBody, req.Body)
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestMomentStatus(t *testing.T) {
	api := &fakeAPI{response: &moments.Moment{ID: "m-1", Status: moments.StatusCompleted}}

	out, err := runCLI(t, api, "moment", "status", "m-1", "completed")
	require.NoError(t, err)

	req := api.last(t)
	assert.Equal(t, "/api/v1/moments/m-1/status", req.Path)
	assert.JSONEq(t, `{"status":"completed"}`, req.Body)
	assert.Contains(t, out, "Moment m-1 is completed")
}

func TestThoughtAdd(t *testing.T) {
	api := &fakeAPI{status: http.StatusCreated, response: &moments.Thought{ID: "t-7"}}

	out, err := runCLI(t, api, "thought", "add", "Ask", "open", "questions", "--tag", "interview", "--source", "book")
	require.NoError(t, err)

	req := api.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/thoughts", req.Path)
	assert.JSONEq(t, `{"content":"Ask open questions","context_tag":"interview","source":"book"}`, req.Body)
	assert.Contains(t, out, "Added thought t-7")
}

func TestThoughtAdd_RequiresTag(t *testing.T) {
	api := &fakeAPI{}

	_, err := runCLI(t, api, "thought", "add", "no tag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tag")
	assert.Empty(t, api.requests)
}

func TestThoughtList(t *testing.T) {
	api := &fakeAPI{response: ThoughtsResponse{Thoughts: []moments.Thought{
		{ID: "t-1", Content: "Anchor high", ContextTag: "negotiation", Status: moments.ThoughtActive},
		{ID: "t-2", Content: strings.Repeat("long ", 30), ContextTag: "general", Status: moments.ThoughtRetired},
	}}}

	out, err := runCLI(t, api, "thought", "list")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/thoughts", api.last(t).Path)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "t-1")
	assert.Contains(t, out, "negotiation")
	assert.Contains(t, out, "retired")
	assert.Contains(t, out, "...")
}

func TestThoughtList_Empty(t *testing.T) {
	api := &fakeAPI{response: ThoughtsResponse{Thoughts: []moments.Thought{}}}

	out, err := runCLI(t, api, "thought", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No thoughts yet")
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		api := &fakeAPI{response: HealthResponse{Status: "ok", Checks: map[string]string{"database": "ok"}}}

		out, err := runCLI(t, api, "health")
		require.NoError(t, err)
		assert.Equal(t, "/health", api.last(t).Path)
		assert.Contains(t, out, "Server Status: ok")
		assert.Contains(t, out, "database: ok")
	})

	t.Run("unavailable still prints checks", func(t *testing.T) {
		api := &fakeAPI{
			status:   http.StatusServiceUnavailable,
			response: HealthResponse{Status: "unavailable", Checks: map[string]string{"nats": "connection closed"}},
		}

		out, err := runCLI(t, api, "health")
		require.Error(t, err)
		assert.Contains(t, out, "Server Status: unavailable")
		assert.Contains(t, out, "nats: connection closed")
	})
}

func TestAPIError(t *testing.T) {
	api := &fakeAPI{status: http.StatusNotFound, response: map[string]string{"message": "moment not found"}}

	_, err := runCLI(t, api, "moment", "get", "missing")
	require.Error(t, err)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "moment not found", apiErr.Message)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "héllo w...", truncate("héllo wörld!", 10))
}
