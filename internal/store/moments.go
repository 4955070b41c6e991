package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fyrsmithlabs/momentd/internal/matching"
	"github.com/fyrsmithlabs/momentd/internal/moments"
)

// CreateMoment inserts m and copies the generated ID and timestamps back.
func (s *Store) CreateMoment(ctx context.Context, m *moments.Moment) error {
	if m.Status == "" {
		m.Status = moments.StatusActive
	}
	if m.MatchState == "" {
		m.MatchState = moments.MatchStateCreated
	}
	row := fromMoment(m)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	m.ID = row.ID
	m.CreatedAt = row.CreatedAt
	m.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *Store) ActiveMomentByExternalEvent(ctx context.Context, userID, externalEventID string) (*moments.Moment, error) {
	var row momentModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND external_event_id = ? AND status = ?", userID, externalEventID, string(moments.StatusActive)).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, moments.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toMoment(&row), nil
}

func (s *Store) GetMoment(ctx context.Context, userID, momentID string) (*moments.Moment, error) {
	var row momentModel
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", momentID, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, moments.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toMoment(&row), nil
}

func (s *Store) SetMatchState(ctx context.Context, momentID string, state moments.MatchState) error {
	res := s.db.WithContext(ctx).Model(&momentModel{}).
		Where("id = ?", momentID).
		Update("match_state", string(state))
	return rowsOrNotFound(res, moments.ErrNotFound)
}

func (s *Store) UpdateMomentMatching(ctx context.Context, momentID string, upd moments.MatchUpdate) error {
	res := s.db.WithContext(ctx).Model(&momentModel{}).
		Where("id = ?", momentID).
		Updates(map[string]interface{}{
			"gems_matched_count": upd.GemsMatchedCount,
			"processing_time_ms": gorm.Expr("processing_time_ms + ?", upd.AddProcessingMs),
			"match_state":        string(upd.MatchState),
		})
	return rowsOrNotFound(res, moments.ErrNotFound)
}

func (s *Store) UpdateUserContext(ctx context.Context, userID, momentID, userContext string) error {
	res := s.db.WithContext(ctx).Model(&momentModel{}).
		Where("id = ? AND user_id = ?", momentID, userID).
		Update("user_context", userContext)
	return rowsOrNotFound(res, moments.ErrNotFound)
}

// SetStatus only moves active moments. A moment that exists but has
// already left active yields ErrInvalidStatus.
func (s *Store) SetStatus(ctx context.Context, userID, momentID string, status moments.Status, completedAt *time.Time) error {
	res := s.db.WithContext(ctx).Model(&momentModel{}).
		Where("id = ? AND user_id = ? AND status = ?", momentID, userID, string(moments.StatusActive)).
		Updates(map[string]interface{}{
			"status":       string(status),
			"completed_at": completedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	err := s.db.WithContext(ctx).Model(&momentModel{}).
		Where("id = ? AND user_id = ?", momentID, userID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return moments.ErrNotFound
	}
	return moments.ErrInvalidStatus
}

func (s *Store) CreateThought(ctx context.Context, t *moments.Thought) error {
	if t.Status == "" {
		t.Status = moments.ThoughtActive
	}
	row := &thoughtModel{
		ID:         t.ID,
		UserID:     t.UserID,
		Content:    t.Content,
		ContextTag: t.ContextTag,
		Source:     t.Source,
		Status:     string(t.Status),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	t.ID = row.ID
	t.CreatedAt = row.CreatedAt
	t.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *Store) GetThought(ctx context.Context, userID, thoughtID string) (*moments.Thought, error) {
	var row thoughtModel
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", thoughtID, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, moments.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t := toThought(&row)
	return &t, nil
}

func (s *Store) ListThoughts(ctx context.Context, userID string) ([]moments.Thought, error) {
	return s.findThoughts(ctx, s.db.Where("user_id = ?", userID))
}

func (s *Store) EligibleThoughts(ctx context.Context, userID string) ([]moments.Thought, error) {
	return s.findThoughts(ctx, s.db.Where("user_id = ? AND status = ?", userID, string(moments.ThoughtActive)))
}

func (s *Store) findThoughts(ctx context.Context, q *gorm.DB) ([]moments.Thought, error) {
	var rows []thoughtModel
	if err := q.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]moments.Thought, 0, len(rows))
	for i := range rows {
		out = append(out, toThought(&rows[i]))
	}
	return out, nil
}

func (s *Store) InsertMatches(ctx context.Context, momentID string, matches []matching.Match) error {
	if len(matches) == 0 {
		return nil
	}
	rows := make([]matchModel, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, matchModel{
			MomentID:        momentID,
			ThoughtID:       m.ThoughtID,
			RelevanceScore:  m.Score,
			RelevanceReason: m.Reason,
		})
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "moment_id"}, {Name: "thought_id"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}

func (s *Store) UpgradeMatches(ctx context.Context, momentID string, matches []matching.Match) error {
	if len(matches) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range matches {
			err := tx.Model(&matchModel{}).
				Where("moment_id = ? AND thought_id = ? AND relevance_score < ?", momentID, m.ThoughtID, m.Score).
				Updates(map[string]interface{}{
					"relevance_score":  m.Score,
					"relevance_reason": m.Reason,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Matches(ctx context.Context, momentID string) ([]moments.Match, error) {
	var rows []matchModel
	err := s.db.WithContext(ctx).
		Preload("Thought").
		Where("moment_id = ?", momentID).
		Order("relevance_score DESC, thought_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]moments.Match, 0, len(rows))
	for i := range rows {
		out = append(out, toMatch(&rows[i]))
	}
	return out, nil
}

func (s *Store) CountMatches(ctx context.Context, momentID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&matchModel{}).
		Where("moment_id = ?", momentID).
		Count(&n).Error
	return int(n), err
}

// MarkMatchFeedback only writes when the stored vote differs, so a repeated
// vote reports false.
func (s *Store) MarkMatchFeedback(ctx context.Context, momentID, thoughtID string, helpful bool) (bool, error) {
	res := s.db.WithContext(ctx).Model(&matchModel{}).
		Where("moment_id = ? AND thought_id = ?", momentID, thoughtID).
		Where("(was_helpful IS NULL OR was_helpful <> ?)", helpful).
		Updates(map[string]interface{}{
			"was_helpful":  helpful,
			"was_reviewed": true,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var n int64
	err := s.db.WithContext(ctx).Model(&matchModel{}).
		Where("moment_id = ? AND thought_id = ?", momentID, thoughtID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, moments.ErrMatchNotFound
	}
	return false, nil
}

// rowsOrNotFound maps an update that touched nothing to notFound.
func rowsOrNotFound(res *gorm.DB, notFound error) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound
	}
	return nil
}
