package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fyrsmithlabs/momentd/internal/learning"
)

func (s *Store) LearningRecords(ctx context.Context, userID string, keys []string) ([]learning.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var rows []learningRecordModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND pattern_key IN ?", userID, keys).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]learning.Record, 0, len(rows))
	for i := range rows {
		out = append(out, toRecord(&rows[i]))
	}
	return out, nil
}

// ApplyLearningDeltas upserts all deltas in one statement. Conflicting rows
// are incremented in place so concurrent feedback never loses a count.
func (s *Store) ApplyLearningDeltas(ctx context.Context, deltas []learning.Delta) error {
	if len(deltas) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]learningRecordModel, 0, len(deltas))
	for _, d := range deltas {
		rows = append(rows, learningRecordModel{
			UserID:          d.UserID,
			PatternType:     string(d.PatternType),
			PatternKey:      d.PatternKey,
			ThoughtID:       d.ThoughtID,
			HelpfulCount:    d.HelpfulDelta,
			NotHelpfulCount: d.NotHelpfulDelta,
			LastHelpfulAt:   d.HelpfulAt,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "pattern_type"},
				{Name: "pattern_key"},
				{Name: "thought_id"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"helpful_count":     gorm.Expr("learning_records.helpful_count + excluded.helpful_count"),
				"not_helpful_count": gorm.Expr("learning_records.not_helpful_count + excluded.not_helpful_count"),
				"last_helpful_at":   gorm.Expr("COALESCE(excluded.last_helpful_at, learning_records.last_helpful_at)"),
				"updated_at":        gorm.Expr("excluded.updated_at"),
			}),
		}).Create(&rows).Error
	})
}
