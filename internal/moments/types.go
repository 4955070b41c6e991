package moments

import (
	"time"

	"github.com/fyrsmithlabs/momentd/internal/patterns"
)

const (
	// MaxDescriptionLength bounds moment descriptions, in characters.
	MaxDescriptionLength = 500

	// MaxUserContextLength bounds user-supplied context, in characters.
	MaxUserContextLength = 500

	// MaxThoughtLength bounds thought content, in characters.
	MaxThoughtLength = 500

	enrichmentSeparator = "\n\nAdditional context: "
)

// Source is where a moment came from.
type Source string

const (
	SourceManual   Source = "manual"
	SourceCalendar Source = "calendar"
)

// IsValid reports whether s is a known source.
func (s Source) IsValid() bool {
	return s == SourceManual || s == SourceCalendar
}

// Status is the user-visible lifecycle of a moment.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusDismissed Status = "dismissed"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusCompleted || s == StatusDismissed
}

// MatchState tracks the matching pipeline for a moment.
type MatchState string

const (
	MatchStateCreated  MatchState = "created"
	MatchStateMatching MatchState = "matching"
	MatchStateMatched  MatchState = "matched"
)

// ThoughtStatus is the lifecycle of a thought. Only active thoughts are
// matched.
type ThoughtStatus string

const (
	ThoughtActive    ThoughtStatus = "active"
	ThoughtRetired   ThoughtStatus = "retired"
	ThoughtGraduated ThoughtStatus = "graduated"
)

// Thought is a captured piece of advice.
type Thought struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	Content    string        `json:"content"`
	ContextTag string        `json:"context_tag"`
	Source     string        `json:"source,omitempty"`
	Status     ThoughtStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// CalendarData links a moment to a calendar event.
type CalendarData struct {
	ExternalEventID string     `json:"external_event_id,omitempty"`
	Title           string     `json:"title,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	Attendees       []string   `json:"attendees,omitempty"`
}

// Moment is a situation thoughts are matched against.
type Moment struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	Description      string             `json:"description"`
	Source           Source             `json:"source"`
	Calendar         *CalendarData      `json:"calendar,omitempty"`
	UserContext      string             `json:"user_context,omitempty"`
	EventType        patterns.EventType `json:"event_type,omitempty"`
	GemsMatchedCount int                `json:"gems_matched_count"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
	Status           Status             `json:"status"`
	MatchState       MatchState         `json:"match_state"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Match is a persisted thought match for a moment.
type Match struct {
	MomentID    string    `json:"moment_id"`
	ThoughtID   string    `json:"thought_id"`
	Score       float64   `json:"relevance_score"`
	Reason      string    `json:"relevance_reason"`
	WasHelpful  *bool     `json:"was_helpful"`
	WasReviewed bool      `json:"was_reviewed"`
	Thought     *Thought  `json:"thought,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MomentWithMatches is a moment and its matches ordered by score descending.
type MomentWithMatches struct {
	Moment  *Moment `json:"moment"`
	Matches []Match `json:"matches"`
}

// CreateRequest is the input of Service.CreateAndMatch.
type CreateRequest struct {
	UserID      string             `json:"-"`
	Description string             `json:"description"`
	Source      Source             `json:"source"`
	Calendar    *CalendarData      `json:"calendar,omitempty"`
	UserContext string             `json:"user_context,omitempty"`
	EventType   patterns.EventType `json:"event_type,omitempty"`
}

// MatchUpdate is the outcome of a matching pass written back to a moment.
type MatchUpdate struct {
	GemsMatchedCount int
	// AddProcessingMs is added to the stored total.
	AddProcessingMs int64
	MatchState      MatchState
}

// patternInput converts m into the pattern extractor's input.
func (m *Moment) patternInput() patterns.Input {
	in := patterns.Input{
		Description: m.Description,
		EventType:   m.EventType,
	}
	if m.Calendar != nil {
		in.ExternalEventID = m.Calendar.ExternalEventID
		in.Attendees = m.Calendar.Attendees
	}
	return in
}

// enrichedDescription is the text sent to the scorer. The stored
// description is never changed.
func enrichedDescription(description, userContext string) string {
	if userContext == "" {
		return description
	}
	return description + enrichmentSeparator + userContext
}
