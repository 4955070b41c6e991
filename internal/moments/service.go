// Package moments runs the moment matching pipeline.
//
// A moment is persisted first and matched second: once CreateAndMatch has
// stored the moment, every later failure (thought lookup, learning hints,
// the AI scorer, writing matches) degrades the result instead of failing
// the call. Each degradation is logged at WARN and counted in
// momentd_matching_degraded_total.
package moments

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/momentd/internal/learning"
	"github.com/fyrsmithlabs/momentd/internal/logging"
	"github.com/fyrsmithlabs/momentd/internal/matching"
	"github.com/fyrsmithlabs/momentd/internal/patterns"
)

const tracerName = "github.com/fyrsmithlabs/momentd/internal/moments"

// Matcher scores candidates. *matching.Client implements it.
type Matcher interface {
	Match(ctx context.Context, description string, candidates []matching.Candidate, hints []matching.Hint) matching.Result
}

// Learner reads hints and records feedback. *learning.Service implements it.
type Learner interface {
	Hints(ctx context.Context, userID string, ps []patterns.Pattern) ([]learning.Hint, error)
	RecordFeedback(ctx context.Context, userID, thoughtID string, ps []patterns.Pattern, helpful bool) error
}

// Service orchestrates moment creation, re-matching and feedback.
type Service struct {
	store    Store
	learner  Learner
	matcher  Matcher
	notifier Notifier
	logger   *logging.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNotifier sets the receiver of lifecycle events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithTracerProvider sets where spans are sent. The global provider is
// used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewService creates a moments service.
func NewService(store Store, learner Learner, matcher Matcher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if learner == nil {
		return nil, fmt.Errorf("learner cannot be nil")
	}
	if matcher == nil {
		return nil, fmt.Errorf("matcher cannot be nil")
	}

	s := &Service{
		store:    store,
		learner:  learner,
		matcher:  matcher,
		notifier: nopNotifier{},
		logger:   logging.NewNop(),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateAndMatch validates req, persists the moment and matches it against
// the user's active thoughts. Only validation and the moment insert can
// fail the call.
func (s *Service) CreateAndMatch(ctx context.Context, req CreateRequest) (*MomentWithMatches, error) {
	ctx, span := s.tracer.Start(ctx, "moments.CreateAndMatch",
		trace.WithAttributes(attribute.String("moment.source", string(req.Source))))
	defer span.End()

	if req.Source == "" {
		req.Source = SourceManual
	}
	req.Description = strings.TrimSpace(req.Description)
	req.UserContext = strings.TrimSpace(req.UserContext)
	if err := validateCreate(req); err != nil {
		return nil, spanErr(span, err)
	}

	ctx = logging.WithUserID(ctx, req.UserID)

	m := &Moment{
		UserID:      req.UserID,
		Description: req.Description,
		Source:      req.Source,
		Calendar:    req.Calendar,
		UserContext: req.UserContext,
		EventType:   req.EventType,
		Status:      StatusActive,
		MatchState:  MatchStateCreated,
	}
	if err := s.store.CreateMoment(ctx, m); err != nil {
		s.logger.Error(ctx, "failed to persist moment", zap.Error(err))
		return nil, spanErr(span, fmt.Errorf("%w: %w", ErrPersistMoment, err))
	}
	MomentsCreatedTotal.WithLabelValues(string(m.Source)).Inc()

	ctx = logging.WithMomentID(ctx, m.ID)
	span.SetAttributes(attribute.String("moment.id", m.ID))

	result := s.match(ctx, m, enrichedDescription(m.Description, m.UserContext))

	count := 0
	if len(result.Matches) > 0 {
		if err := s.store.InsertMatches(ctx, m.ID, result.Matches); err != nil {
			s.degrade(ctx, reasonPersistMatches, err)
		} else {
			count = len(result.Matches)
		}
	}

	s.finalize(ctx, m, MatchUpdate{
		GemsMatchedCount: count,
		AddProcessingMs:  result.ProcessingTime.Milliseconds(),
		MatchState:       MatchStateMatched,
	})

	out := &MomentWithMatches{Moment: m, Matches: s.readMatches(ctx, m.ID, result.Matches)}
	span.SetAttributes(attribute.Int("moment.matches", len(out.Matches)))
	s.logger.Info(ctx, "moment matched",
		zap.String("source", string(m.Source)),
		zap.Int("matches", len(out.Matches)),
		zap.Int64("processing_time_ms", m.ProcessingTimeMs),
	)
	s.notifier.MomentMatched(ctx, out)
	return out, nil
}

// EnrichAndRematch stores additional user context on a moment and matches
// it again. New matches are added, existing ones only ever gain score, and
// none are removed. Any moment status is accepted.
func (s *Service) EnrichAndRematch(ctx context.Context, userID, momentID, userContext string) (*MomentWithMatches, error) {
	ctx, span := s.tracer.Start(ctx, "moments.EnrichAndRematch",
		trace.WithAttributes(attribute.String("moment.id", momentID)))
	defer span.End()

	userContext = strings.TrimSpace(userContext)
	if userID == "" {
		return nil, spanErr(span, ErrMissingUser)
	}
	if userContext == "" {
		return nil, spanErr(span, invalid("user context is required"))
	}
	if utf8.RuneCountInString(userContext) > MaxUserContextLength {
		return nil, spanErr(span, ErrContextTooLong)
	}

	ctx = logging.WithMomentID(logging.WithUserID(ctx, userID), momentID)

	m, err := s.store.GetMoment(ctx, userID, momentID)
	if err != nil {
		return nil, spanErr(span, err)
	}
	if err := s.store.UpdateUserContext(ctx, userID, momentID, userContext); err != nil {
		return nil, spanErr(span, fmt.Errorf("updating user context: %w", err))
	}
	m.UserContext = userContext

	result := s.match(ctx, m, enrichedDescription(m.Description, userContext))

	existing, err := s.store.Matches(ctx, m.ID)
	var plan MergePlan
	if err != nil {
		// Both writes are conditional in the store, so applying every fresh
		// match as insert and upgrade is still additive and upgrade-only.
		s.degrade(ctx, reasonReadMatches, err)
		plan = MergePlan{Inserts: result.Matches, Upgrades: result.Matches}
	} else {
		plan = Merge(existing, result.Matches)
	}

	if len(plan.Inserts) > 0 {
		if err := s.store.InsertMatches(ctx, m.ID, plan.Inserts); err != nil {
			s.degrade(ctx, reasonPersistMatches, err)
		}
	}
	if len(plan.Upgrades) > 0 {
		if err := s.store.UpgradeMatches(ctx, m.ID, plan.Upgrades); err != nil {
			s.degrade(ctx, reasonPersistMatches, err)
		}
	}

	count, err := s.store.CountMatches(ctx, m.ID)
	if err != nil {
		s.degrade(ctx, reasonReadMatches, err)
		count = max(plan.Total, m.GemsMatchedCount)
	}

	s.finalize(ctx, m, MatchUpdate{
		GemsMatchedCount: count,
		AddProcessingMs:  result.ProcessingTime.Milliseconds(),
		MatchState:       MatchStateMatched,
	})

	out := &MomentWithMatches{Moment: m, Matches: s.readMatches(ctx, m.ID, nil)}
	s.logger.Info(ctx, "moment re-matched",
		zap.Int("inserted", len(plan.Inserts)),
		zap.Int("upgraded", len(plan.Upgrades)),
		zap.Int("matches", count),
	)
	s.notifier.MomentMatched(ctx, out)
	return out, nil
}

// RecordFeedback marks a matched thought helpful or not and feeds the vote
// into the learning store under every pattern of the moment. Repeating the
// stored vote is a no-op. A flipped vote adds a signal for the new value;
// learning counts never decrease.
func (s *Service) RecordFeedback(ctx context.Context, userID, momentID, thoughtID string, helpful bool) error {
	ctx, span := s.tracer.Start(ctx, "moments.RecordFeedback", trace.WithAttributes(
		attribute.String("moment.id", momentID),
		attribute.String("thought.id", thoughtID),
		attribute.Bool("feedback.helpful", helpful),
	))
	defer span.End()

	if userID == "" {
		return spanErr(span, ErrMissingUser)
	}
	ctx = logging.WithMomentID(logging.WithUserID(ctx, userID), momentID)

	m, err := s.store.GetMoment(ctx, userID, momentID)
	if err != nil {
		return spanErr(span, err)
	}
	if _, err := s.store.GetThought(ctx, userID, thoughtID); err != nil {
		return spanErr(span, err)
	}
	changed, err := s.store.MarkMatchFeedback(ctx, momentID, thoughtID, helpful)
	if err != nil {
		return spanErr(span, err)
	}
	if !changed {
		span.SetAttributes(attribute.Bool("feedback.repeated", true))
		s.logger.Debug(ctx, "feedback unchanged, learning skipped", zap.String("thought.id", thoughtID))
		return nil
	}

	ps := patterns.Extract(m.patternInput())
	if err := s.learner.RecordFeedback(ctx, userID, thoughtID, ps, helpful); err != nil {
		s.degrade(ctx, reasonLearningUnavailable, err)
	}

	s.notifier.FeedbackRecorded(ctx, FeedbackEvent{
		UserID:     userID,
		MomentID:   momentID,
		ThoughtID:  thoughtID,
		Helpful:    helpful,
		Patterns:   len(patterns.Dedupe(ps)),
		RecordedAt: s.now().UTC(),
	})
	return nil
}

// FindCalendarMoment returns the active moment already created for a
// calendar event, with its matches. ErrNotFound when there is none.
func (s *Service) FindCalendarMoment(ctx context.Context, userID, externalEventID string) (*MomentWithMatches, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if strings.TrimSpace(externalEventID) == "" {
		return nil, ErrNotFound
	}
	m, err := s.store.ActiveMomentByExternalEvent(ctx, userID, externalEventID)
	if err != nil {
		return nil, err
	}
	matches, err := s.store.Matches(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("reading matches: %w", err)
	}
	return &MomentWithMatches{Moment: m, Matches: matches}, nil
}

// GetMoment returns a moment with its matches.
func (s *Service) GetMoment(ctx context.Context, userID, momentID string) (*MomentWithMatches, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	m, err := s.store.GetMoment(ctx, userID, momentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.store.Matches(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("reading matches: %w", err)
	}
	return &MomentWithMatches{Moment: m, Matches: matches}, nil
}

// SetStatus moves an active moment to completed or dismissed.
func (s *Service) SetStatus(ctx context.Context, userID, momentID string, status Status) (*Moment, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if status != StatusCompleted && status != StatusDismissed {
		return nil, ErrInvalidStatus
	}

	m, err := s.store.GetMoment(ctx, userID, momentID)
	if err != nil {
		return nil, err
	}
	if m.Status != StatusActive {
		return nil, fmt.Errorf("%w: moment is %s", ErrInvalidStatus, m.Status)
	}

	var completedAt *time.Time
	if status == StatusCompleted {
		now := s.now().UTC()
		completedAt = &now
	}
	if err := s.store.SetStatus(ctx, userID, momentID, status, completedAt); err != nil {
		return nil, err
	}

	m.Status = status
	m.CompletedAt = completedAt
	return m, nil
}

// AddThought stores a new active thought.
func (s *Service) AddThought(ctx context.Context, userID, content, contextTag, source string) (*Thought, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	content = strings.TrimSpace(content)
	contextTag = strings.TrimSpace(contextTag)
	if content == "" || contextTag == "" || utf8.RuneCountInString(content) > MaxThoughtLength {
		return nil, ErrInvalidThought
	}

	t := &Thought{
		UserID:     userID,
		Content:    content,
		ContextTag: contextTag,
		Source:     strings.TrimSpace(source),
		Status:     ThoughtActive,
	}
	if err := s.store.CreateThought(ctx, t); err != nil {
		return nil, fmt.Errorf("creating thought: %w", err)
	}
	return t, nil
}

// ListThoughts returns all of the user's thoughts.
func (s *Service) ListThoughts(ctx context.Context, userID string) ([]Thought, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	return s.store.ListThoughts(ctx, userID)
}

// match gathers candidates and hints and calls the scorer. It never fails;
// a failed step yields an empty or hint-less result.
func (s *Service) match(ctx context.Context, m *Moment, description string) matching.Result {
	if err := s.store.SetMatchState(ctx, m.ID, MatchStateMatching); err != nil {
		s.logger.Debug(ctx, "failed to mark moment matching", zap.Error(err))
	} else {
		m.MatchState = MatchStateMatching
	}

	thoughts, err := s.store.EligibleThoughts(ctx, m.UserID)
	if err != nil {
		s.degrade(ctx, reasonThoughtsUnavailable, err)
		return matching.Result{Matches: []matching.Match{}}
	}
	if len(thoughts) == 0 {
		s.logger.Debug(ctx, "no eligible thoughts")
		return matching.Result{Matches: []matching.Match{}}
	}

	candidates := make([]matching.Candidate, 0, len(thoughts))
	byID := make(map[string]*Thought, len(thoughts))
	for i := range thoughts {
		t := &thoughts[i]
		byID[t.ID] = t
		candidates = append(candidates, matching.Candidate{
			ID:         t.ID,
			Content:    t.Content,
			ContextTag: t.ContextTag,
			Source:     t.Source,
		})
	}

	var hints []matching.Hint
	learned, err := s.learner.Hints(ctx, m.UserID, patterns.Extract(m.patternInput()))
	if err != nil {
		s.degrade(ctx, reasonHintsUnavailable, err)
	}
	for _, h := range learned {
		t, ok := byID[h.ThoughtID]
		if !ok {
			continue
		}
		hints = append(hints, matching.Hint{
			ThoughtID:    h.ThoughtID,
			Content:      t.Content,
			Confidence:   h.Confidence,
			HelpfulCount: h.HelpfulCount,
		})
	}

	result := s.matcher.Match(ctx, description, candidates, hints)
	if result.Err != nil {
		s.degrade(ctx, scorerReason(result.Err), result.Err,
			zap.Duration("processing_time", result.ProcessingTime))
	}
	return result
}

// finalize writes the matching outcome to the moment. A failed write is
// logged; m reflects the outcome either way.
func (s *Service) finalize(ctx context.Context, m *Moment, upd MatchUpdate) {
	if err := s.store.UpdateMomentMatching(ctx, m.ID, upd); err != nil {
		s.degrade(ctx, reasonUpdateMoment, err)
	}
	m.GemsMatchedCount = upd.GemsMatchedCount
	m.ProcessingTimeMs += upd.AddProcessingMs
	m.MatchState = upd.MatchState
}

// readMatches loads persisted matches, falling back to the scorer's result
// when the read fails.
func (s *Service) readMatches(ctx context.Context, momentID string, fallback []matching.Match) []Match {
	matches, err := s.store.Matches(ctx, momentID)
	if err == nil {
		return matches
	}
	s.degrade(ctx, reasonReadMatches, err)

	out := make([]Match, 0, len(fallback))
	for _, f := range fallback {
		out = append(out, Match{MomentID: momentID, ThoughtID: f.ThoughtID, Score: f.Score, Reason: f.Reason})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func (s *Service) degrade(ctx context.Context, reason string, err error, fields ...zap.Field) {
	DegradedTotal.WithLabelValues(reason).Inc()
	trace.SpanFromContext(ctx).AddEvent("degraded", trace.WithAttributes(attribute.String("reason", reason)))
	s.logger.Warn(ctx, "moment matching degraded",
		append([]zap.Field{zap.String("reason", reason), zap.Error(err)}, fields...)...)
}

func validateCreate(req CreateRequest) error {
	if req.UserID == "" {
		return ErrMissingUser
	}
	if req.Description == "" {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(req.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if utf8.RuneCountInString(req.UserContext) > MaxUserContextLength {
		return ErrContextTooLong
	}
	if !req.Source.IsValid() {
		return ErrInvalidSource
	}
	if req.EventType != "" && !req.EventType.IsValid() {
		return ErrInvalidEventType
	}
	return nil
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
