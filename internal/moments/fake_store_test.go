package moments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/momentd/internal/learning"
	"github.com/fyrsmithlabs/momentd/internal/matching"
	"github.com/fyrsmithlabs/momentd/internal/patterns"
)

// fakeStore is an in-memory Store with injectable failures.
type fakeStore struct {
	mu       sync.Mutex
	moments  map[string]*Moment
	thoughts map[string]*Thought
	matches  map[string]map[string]*Match

	errCreate   error
	errThoughts error
	errInsert   error
	errUpdate   error
	errMatches  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		moments:  make(map[string]*Moment),
		thoughts: make(map[string]*Thought),
		matches:  make(map[string]map[string]*Match),
	}
}

func (f *fakeStore) addThought(userID, id, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thoughts[id] = &Thought{ID: id, UserID: userID, Content: content, ContextTag: "work", Status: ThoughtActive}
}

func (f *fakeStore) moment(id string) Moment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.moments[id]
}

func (f *fakeStore) CreateMoment(_ context.Context, m *Moment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errCreate != nil {
		return f.errCreate
	}
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	cp := *m
	f.moments[m.ID] = &cp
	return nil
}

func (f *fakeStore) GetMoment(_ context.Context, userID, momentID string) (*Moment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.moments[momentID]
	if !ok || m.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) ActiveMomentByExternalEvent(_ context.Context, userID, externalEventID string) (*Moment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *Moment
	for _, m := range f.moments {
		if m.UserID != userID || m.Status != StatusActive || m.Calendar == nil || m.Calendar.ExternalEventID != externalEventID {
			continue
		}
		if found == nil || m.CreatedAt.After(found.CreatedAt) {
			found = m
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (f *fakeStore) SetMatchState(_ context.Context, momentID string, state MatchState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.moments[momentID]; ok {
		m.MatchState = state
	}
	return nil
}

func (f *fakeStore) UpdateMomentMatching(_ context.Context, momentID string, upd MatchUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errUpdate != nil {
		return f.errUpdate
	}
	m := f.moments[momentID]
	m.GemsMatchedCount = upd.GemsMatchedCount
	m.ProcessingTimeMs += upd.AddProcessingMs
	m.MatchState = upd.MatchState
	return nil
}

func (f *fakeStore) UpdateUserContext(_ context.Context, userID, momentID, userContext string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.moments[momentID]
	if !ok || m.UserID != userID {
		return ErrNotFound
	}
	m.UserContext = userContext
	return nil
}

func (f *fakeStore) SetStatus(_ context.Context, userID, momentID string, status Status, completedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.moments[momentID]
	if !ok || m.UserID != userID {
		return ErrNotFound
	}
	m.Status = status
	m.CompletedAt = completedAt
	return nil
}

func (f *fakeStore) CreateThought(_ context.Context, t *Thought) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = uuid.NewString()
	cp := *t
	f.thoughts[t.ID] = &cp
	return nil
}

func (f *fakeStore) GetThought(_ context.Context, userID, thoughtID string) (*Thought, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.thoughts[thoughtID]
	if !ok || t.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) ListThoughts(_ context.Context, userID string) ([]Thought, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Thought
	for _, t := range f.thoughts {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) EligibleThoughts(ctx context.Context, userID string) ([]Thought, error) {
	if f.errThoughts != nil {
		return nil, f.errThoughts
	}
	all, _ := f.ListThoughts(ctx, userID)
	var out []Thought
	for _, t := range all {
		if t.Status == ThoughtActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertMatches(_ context.Context, momentID string, matches []matching.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errInsert != nil {
		return f.errInsert
	}
	rows, ok := f.matches[momentID]
	if !ok {
		rows = make(map[string]*Match)
		f.matches[momentID] = rows
	}
	for _, m := range matches {
		if _, exists := rows[m.ThoughtID]; exists {
			continue
		}
		rows[m.ThoughtID] = &Match{MomentID: momentID, ThoughtID: m.ThoughtID, Score: m.Score, Reason: m.Reason}
	}
	return nil
}

func (f *fakeStore) UpgradeMatches(_ context.Context, momentID string, matches []matching.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range matches {
		row, ok := f.matches[momentID][m.ThoughtID]
		if ok && row.Score < m.Score {
			row.Score = m.Score
			row.Reason = m.Reason
		}
	}
	return nil
}

func (f *fakeStore) Matches(_ context.Context, momentID string) ([]Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errMatches != nil {
		return nil, f.errMatches
	}
	out := make([]Match, 0, len(f.matches[momentID]))
	for _, m := range f.matches[momentID] {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (f *fakeStore) CountMatches(_ context.Context, momentID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errMatches != nil {
		return 0, f.errMatches
	}
	return len(f.matches[momentID]), nil
}

func (f *fakeStore) MarkMatchFeedback(_ context.Context, momentID, thoughtID string, helpful bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.matches[momentID][thoughtID]
	if !ok {
		return false, ErrMatchNotFound
	}
	if row.WasHelpful != nil && *row.WasHelpful == helpful {
		return false, nil
	}
	row.WasReviewed = true
	row.WasHelpful = &helpful
	return true, nil
}

// fakeLearner records feedback and returns canned hints.
type fakeLearner struct {
	mu        sync.Mutex
	hints     []learning.Hint
	hintsErr  error
	recordErr error
	hintCalls [][]patterns.Pattern
	feedback  []learnedFeedback
}

type learnedFeedback struct {
	userID, thoughtID string
	patterns          []patterns.Pattern
	helpful           bool
}

func (f *fakeLearner) Hints(_ context.Context, _ string, ps []patterns.Pattern) ([]learning.Hint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hintCalls = append(f.hintCalls, ps)
	return f.hints, f.hintsErr
}

func (f *fakeLearner) RecordFeedback(_ context.Context, userID, thoughtID string, ps []patterns.Pattern, helpful bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.feedback = append(f.feedback, learnedFeedback{userID, thoughtID, ps, helpful})
	return nil
}

// recordingNotifier keeps every event.
type recordingNotifier struct {
	mu       sync.Mutex
	matched  []*MomentWithMatches
	feedback []FeedbackEvent
}

func (r *recordingNotifier) MomentMatched(_ context.Context, m *MomentWithMatches) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matched = append(r.matched, m)
}

func (r *recordingNotifier) FeedbackRecorded(_ context.Context, e FeedbackEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedback = append(r.feedback, e)
}
