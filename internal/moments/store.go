package moments

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/momentd/internal/matching"
)

// Store persists moments, thoughts and matches. Every read and write that
// takes a userID is scoped to that user; lookups outside the scope return
// ErrNotFound.
type Store interface {
	// CreateMoment assigns m an ID and timestamps and inserts it.
	CreateMoment(ctx context.Context, m *Moment) error
	GetMoment(ctx context.Context, userID, momentID string) (*Moment, error)
	SetMatchState(ctx context.Context, momentID string, state MatchState) error
	UpdateMomentMatching(ctx context.Context, momentID string, upd MatchUpdate) error
	UpdateUserContext(ctx context.Context, userID, momentID, userContext string) error
	SetStatus(ctx context.Context, userID, momentID string, status Status, completedAt *time.Time) error
	// ActiveMomentByExternalEvent returns the newest active moment created
	// for a calendar event, or ErrNotFound.
	ActiveMomentByExternalEvent(ctx context.Context, userID, externalEventID string) (*Moment, error)

	CreateThought(ctx context.Context, t *Thought) error
	GetThought(ctx context.Context, userID, thoughtID string) (*Thought, error)
	ListThoughts(ctx context.Context, userID string) ([]Thought, error)
	// EligibleThoughts returns the user's active thoughts.
	EligibleThoughts(ctx context.Context, userID string) ([]Thought, error)

	// InsertMatches adds match rows, ignoring thoughts already matched.
	InsertMatches(ctx context.Context, momentID string, matches []matching.Match) error
	// UpgradeMatches raises score and reason of existing rows, only where
	// the stored score is lower.
	UpgradeMatches(ctx context.Context, momentID string, matches []matching.Match) error
	// Matches returns the moment's matches by score descending.
	Matches(ctx context.Context, momentID string) ([]Match, error)
	CountMatches(ctx context.Context, momentID string) (int, error)
	// MarkMatchFeedback records helpfulness and reports whether the stored
	// vote changed. ErrMatchNotFound if no row.
	MarkMatchFeedback(ctx context.Context, momentID, thoughtID string, helpful bool) (bool, error)
}
