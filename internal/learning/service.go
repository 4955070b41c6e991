package learning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/momentd/internal/logging"
	"github.com/fyrsmithlabs/momentd/internal/patterns"
)

// Service reads and writes learning records.
type Service struct {
	store  Store
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a learning service.
func NewService(store Store, logger *logging.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("learning store cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}, nil
}

type tally struct {
	helpful    int
	notHelpful int
}

// Hints returns the thoughts whose feedback, summed over every record
// matching one of ps by type and key, reaches HelpfulThreshold helpful votes and
// ConfidenceThreshold confidence. Results are ordered by confidence, then
// helpful count, and capped at MaxHints.
func (s *Service) Hints(ctx context.Context, userID string, ps []patterns.Pattern) ([]Hint, error) {
	keys := patterns.Keys(ps)
	if len(keys) == 0 {
		return []Hint{}, nil
	}

	records, err := s.store.LearningRecords(ctx, userID, keys)
	if err != nil {
		return nil, storeErr(err)
	}

	// Keys are shared across types ("review" is both a keyword and an event
	// type), so records are matched on the full pattern.
	current := make(map[patterns.Pattern]struct{}, len(ps))
	for _, p := range ps {
		current[p] = struct{}{}
	}

	byThought := make(map[string]*tally)
	for _, r := range records {
		if _, ok := current[patterns.Pattern{Type: r.PatternType, Key: r.PatternKey}]; !ok {
			continue
		}
		t, ok := byThought[r.ThoughtID]
		if !ok {
			t = &tally{}
			byThought[r.ThoughtID] = t
		}
		t.helpful += r.HelpfulCount
		t.notHelpful += r.NotHelpfulCount
	}

	hints := make([]Hint, 0, len(byThought))
	for id, t := range byThought {
		if t.helpful < HelpfulThreshold {
			continue
		}
		conf, ok := Confidence(t.helpful, t.notHelpful)
		if !ok || conf < ConfidenceThreshold {
			continue
		}
		hints = append(hints, Hint{
			ThoughtID:       id,
			Confidence:      conf,
			HelpfulCount:    t.helpful,
			NotHelpfulCount: t.notHelpful,
		})
	}

	sort.Slice(hints, func(i, j int) bool {
		if hints[i].Confidence != hints[j].Confidence {
			return hints[i].Confidence > hints[j].Confidence
		}
		if hints[i].HelpfulCount != hints[j].HelpfulCount {
			return hints[i].HelpfulCount > hints[j].HelpfulCount
		}
		return hints[i].ThoughtID < hints[j].ThoughtID
	})
	if len(hints) > MaxHints {
		hints = hints[:MaxHints]
	}

	HintsTotal.Add(float64(len(hints)))
	s.logger.Debug(ctx, "learning hints resolved",
		zap.Int("patterns", len(keys)),
		zap.Int("records", len(records)),
		zap.Int("hints", len(hints)),
	)
	return hints, nil
}

// RecordFeedback increments the helpful or not-helpful count of thoughtID
// for every distinct pattern in ps, in one atomic batch.
func (s *Service) RecordFeedback(ctx context.Context, userID, thoughtID string, ps []patterns.Pattern, helpful bool) error {
	ps = patterns.Dedupe(ps)
	if len(ps) == 0 {
		s.logger.Debug(ctx, "feedback has no patterns to learn from",
			zap.String("thought_id", thoughtID))
		return nil
	}

	var helpfulAt *time.Time
	if helpful {
		now := s.now().UTC()
		helpfulAt = &now
	}

	deltas := make([]Delta, 0, len(ps))
	for _, p := range ps {
		d := Delta{
			UserID:      userID,
			PatternType: p.Type,
			PatternKey:  p.Key,
			ThoughtID:   thoughtID,
			HelpfulAt:   helpfulAt,
		}
		if helpful {
			d.HelpfulDelta = 1
		} else {
			d.NotHelpfulDelta = 1
		}
		deltas = append(deltas, d)
	}

	if err := s.store.ApplyLearningDeltas(ctx, deltas); err != nil {
		return storeErr(err)
	}

	FeedbackTotal.WithLabelValues(strconv.FormatBool(helpful)).Inc()
	s.logger.Info(ctx, "learning feedback recorded",
		zap.String("thought_id", thoughtID),
		zap.Bool("helpful", helpful),
		zap.Int("patterns", len(deltas)),
	)
	return nil
}

func storeErr(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
