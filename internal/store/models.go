package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fyrsmithlabs/momentd/internal/learning"
	"github.com/fyrsmithlabs/momentd/internal/moments"
	"github.com/fyrsmithlabs/momentd/internal/patterns"
)

type thoughtModel struct {
	ID         string    `gorm:"primaryKey;size:36"`
	UserID     string    `gorm:"size:128;not null;index:idx_thoughts_user_status,priority:1"`
	Content    string    `gorm:"type:text;not null"`
	ContextTag string    `gorm:"size:128;not null"`
	Source     string    `gorm:"size:255"`
	Status     string    `gorm:"size:16;not null;default:active;index:idx_thoughts_user_status,priority:2"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (thoughtModel) TableName() string { return "thoughts" }

func (t *thoughtModel) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

type momentModel struct {
	ID               string                      `gorm:"primaryKey;size:36"`
	UserID           string                      `gorm:"size:128;not null;index"`
	Description      string                      `gorm:"type:text;not null"`
	Source           string                      `gorm:"size:16;not null"`
	ExternalEventID  string                      `gorm:"size:255;index"`
	CalendarTitle    string                      `gorm:"size:500"`
	StartTime        *time.Time                  `gorm:"column:start_time"`
	Attendees        datatypes.JSONSlice[string] `gorm:"column:attendees"`
	UserContext      string                      `gorm:"type:text"`
	EventType        string                      `gorm:"size:32"`
	GemsMatchedCount int                         `gorm:"not null;default:0"`
	ProcessingTimeMs int64                       `gorm:"not null;default:0"`
	Status           string                      `gorm:"size:16;not null;default:active;index"`
	MatchState       string                      `gorm:"size:16;not null;default:created"`
	CompletedAt      *time.Time                  `gorm:"column:completed_at"`
	CreatedAt        time.Time                   `gorm:"not null"`
	UpdatedAt        time.Time                   `gorm:"not null"`
}

func (momentModel) TableName() string { return "moments" }

func (m *momentModel) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type matchModel struct {
	ID              string        `gorm:"primaryKey;size:36"`
	MomentID        string        `gorm:"size:36;not null;uniqueIndex:idx_moment_thought,priority:1"`
	ThoughtID       string        `gorm:"size:36;not null;uniqueIndex:idx_moment_thought,priority:2;index"`
	RelevanceScore  float64       `gorm:"not null"`
	RelevanceReason string        `gorm:"type:text;not null"`
	WasHelpful      *bool         `gorm:"column:was_helpful"`
	WasReviewed     bool          `gorm:"not null;default:false"`
	Thought         *thoughtModel `gorm:"foreignKey:ThoughtID;references:ID"`
	CreatedAt       time.Time     `gorm:"not null"`
	UpdatedAt       time.Time     `gorm:"not null"`
}

func (matchModel) TableName() string { return "moment_thought_matches" }

func (m *matchModel) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type learningRecordModel struct {
	ID              string     `gorm:"primaryKey;size:36"`
	UserID          string     `gorm:"size:128;not null;uniqueIndex:idx_learning_record,priority:1;index:idx_learning_lookup,priority:1"`
	PatternType     string     `gorm:"size:16;not null;uniqueIndex:idx_learning_record,priority:2"`
	PatternKey      string     `gorm:"size:320;not null;uniqueIndex:idx_learning_record,priority:3;index:idx_learning_lookup,priority:2"`
	ThoughtID       string     `gorm:"size:36;not null;uniqueIndex:idx_learning_record,priority:4"`
	HelpfulCount    int        `gorm:"not null;default:0"`
	NotHelpfulCount int        `gorm:"not null;default:0"`
	LastHelpfulAt   *time.Time `gorm:"column:last_helpful_at"`
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

func (learningRecordModel) TableName() string { return "learning_records" }

func (r *learningRecordModel) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func toThought(t *thoughtModel) moments.Thought {
	return moments.Thought{
		ID:         t.ID,
		UserID:     t.UserID,
		Content:    t.Content,
		ContextTag: t.ContextTag,
		Source:     t.Source,
		Status:     moments.ThoughtStatus(t.Status),
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func fromMoment(m *moments.Moment) *momentModel {
	row := &momentModel{
		ID:               m.ID,
		UserID:           m.UserID,
		Description:      m.Description,
		Source:           string(m.Source),
		UserContext:      m.UserContext,
		EventType:        string(m.EventType),
		GemsMatchedCount: m.GemsMatchedCount,
		ProcessingTimeMs: m.ProcessingTimeMs,
		Status:           string(m.Status),
		MatchState:       string(m.MatchState),
		CompletedAt:      m.CompletedAt,
	}
	if c := m.Calendar; c != nil {
		row.ExternalEventID = c.ExternalEventID
		row.CalendarTitle = c.Title
		row.StartTime = c.StartTime
		if len(c.Attendees) > 0 {
			row.Attendees = datatypes.NewJSONSlice(c.Attendees)
		}
	}
	return row
}

func toMoment(row *momentModel) *moments.Moment {
	m := &moments.Moment{
		ID:               row.ID,
		UserID:           row.UserID,
		Description:      row.Description,
		Source:           moments.Source(row.Source),
		UserContext:      row.UserContext,
		EventType:        patterns.EventType(row.EventType),
		GemsMatchedCount: row.GemsMatchedCount,
		ProcessingTimeMs: row.ProcessingTimeMs,
		Status:           moments.Status(row.Status),
		MatchState:       moments.MatchState(row.MatchState),
		CompletedAt:      row.CompletedAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if row.ExternalEventID != "" || row.CalendarTitle != "" || row.StartTime != nil || len(row.Attendees) > 0 {
		c := &moments.CalendarData{
			ExternalEventID: row.ExternalEventID,
			Title:           row.CalendarTitle,
			StartTime:       row.StartTime,
		}
		if len(row.Attendees) > 0 {
			c.Attendees = []string(row.Attendees)
		}
		m.Calendar = c
	}
	return m
}

func toMatch(row *matchModel) moments.Match {
	m := moments.Match{
		MomentID:    row.MomentID,
		ThoughtID:   row.ThoughtID,
		Score:       row.RelevanceScore,
		Reason:      row.RelevanceReason,
		WasHelpful:  row.WasHelpful,
		WasReviewed: row.WasReviewed,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.Thought != nil {
		t := toThought(row.Thought)
		m.Thought = &t
	}
	return m
}

func toRecord(row *learningRecordModel) learning.Record {
	return learning.Record{
		UserID:          row.UserID,
		PatternType:     patterns.Type(row.PatternType),
		PatternKey:      row.PatternKey,
		ThoughtID:       row.ThoughtID,
		HelpfulCount:    row.HelpfulCount,
		NotHelpfulCount: row.NotHelpfulCount,
		LastHelpfulAt:   row.LastHelpfulAt,
	}
}
