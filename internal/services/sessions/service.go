package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillbridge/backend/internal/domain/enums"
	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("session not found")
	ErrUnauthorized = errors.New("not a participant")
	ErrNotActive    = errors.New("mentorship is not active")
	ErrPastDate     = errors.New("session must be scheduled in the future")
)

const (
	minDurationMin = 15
	maxDurationMin = 240
)

type SessionStore interface {
	GetByID(ctx context.Context, mentorshipID int64) (pgrepo.MentorshipRecord, error)
	AddSession(ctx context.Context, tx pgx.Tx, mentorshipID int64, scheduledAt time.Time, durationMin int, notes string) (int64, error)
	GetSessionByID(ctx context.Context, sessionID int64) (pgrepo.SessionRecord, error)
	UpdateSessionStatus(ctx context.Context, sessionID int64, status string) error
	SetMentorFeedback(ctx context.Context, sessionID int64, feedback string, rating int) error
	SetMenteeFeedback(ctx context.Context, sessionID int64, feedback string, rating int) error
	ListUpcomingSessions(ctx context.Context, userID int64, after time.Time) ([]pgrepo.SessionRecord, error)
	ListSessionHistory(ctx context.Context, userID int64) ([]pgrepo.SessionRecord, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, event, title, message string, data map[string]any) error
}

type Service struct {
	pool     *pgxpool.Pool
	store    SessionStore
	notifier Notifier
	runTx    func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	now      func() time.Time
}

type Dependencies struct {
	Pool     *pgxpool.Pool
	Store    SessionStore
	Notifier Notifier
}

func NewService(deps Dependencies) *Service {
	s := &Service{
		pool:     deps.Pool,
		store:    deps.Store,
		notifier: deps.Notifier,
		now:      time.Now,
	}
	s.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return pgrepo.WithTx(ctx, s.pool, fn)
	}
	return s
}

// Schedule books a session on an active mentorship. Only participants
// may schedule, and the date must be in the future.
func (s *Service) Schedule(ctx context.Context, userID, mentorshipID int64, scheduledAt time.Time, durationMin int, notes string) (int64, error) {
	if userID <= 0 || mentorshipID <= 0 {
		return 0, ErrValidation
	}
	if s.store == nil {
		return 0, fmt.Errorf("session dependencies are not configured")
	}
	if durationMin == 0 {
		durationMin = 60
	}
	if durationMin < minDurationMin || durationMin > maxDurationMin {
		return 0, ErrValidation
	}
	if !scheduledAt.After(s.now()) {
		return 0, ErrPastDate
	}

	mentorship, err := s.store.GetByID(ctx, mentorshipID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMentorshipNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if mentorship.MentorID != userID && mentorship.MenteeID != userID {
		return 0, ErrUnauthorized
	}
	if mentorship.Status != "active" {
		return 0, ErrNotActive
	}

	var sessionID int64
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		id, err := s.store.AddSession(txCtx, tx, mentorshipID, scheduledAt, durationMin, notes)
		if err != nil {
			return err
		}
		sessionID = id
		return nil
	}); err != nil {
		return 0, err
	}

	other := mentorship.MentorID
	if userID == mentorship.MentorID {
		other = mentorship.MenteeID
	}
	s.notify(ctx, other, "session_scheduled", "Session scheduled",
		"A new mentorship session has been scheduled.", map[string]any{
			"session_id":   sessionID,
			"scheduled_at": scheduledAt.UTC().Format(time.RFC3339),
		})

	return sessionID, nil
}

// UpdateStatus sets the session status. Transitions are caller-driven,
// so any of the known status values may be set from any current state.
func (s *Service) UpdateStatus(ctx context.Context, userID, sessionID int64, status string) error {
	if userID <= 0 || sessionID <= 0 {
		return ErrValidation
	}
	if !enums.IsValidSessionStatus(status) {
		return ErrValidation
	}

	session, err := s.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrSessionNotFound) {
			return ErrNotFound
		}
		return err
	}
	if session.MentorID != userID && session.MenteeID != userID {
		return ErrUnauthorized
	}

	if err := s.store.UpdateSessionStatus(ctx, sessionID, status); err != nil {
		if errors.Is(err, pgrepo.ErrSessionNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// SubmitFeedback records feedback on a session, attributed by the
// caller's role in the mentorship. Ratings run 1 to 5.
func (s *Service) SubmitFeedback(ctx context.Context, userID, sessionID int64, feedback string, rating int) error {
	if userID <= 0 || sessionID <= 0 {
		return ErrValidation
	}
	if rating < 1 || rating > 5 {
		return ErrValidation
	}

	session, err := s.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrSessionNotFound) {
			return ErrNotFound
		}
		return err
	}

	switch userID {
	case session.MentorID:
		err = s.store.SetMentorFeedback(ctx, sessionID, feedback, rating)
	case session.MenteeID:
		err = s.store.SetMenteeFeedback(ctx, sessionID, feedback, rating)
	default:
		return ErrUnauthorized
	}
	if err != nil {
		if errors.Is(err, pgrepo.ErrSessionNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) ListUpcoming(ctx context.Context, userID int64) ([]pgrepo.SessionRecord, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	return s.store.ListUpcomingSessions(ctx, userID, s.now())
}

func (s *Service) ListHistory(ctx context.Context, userID int64) ([]pgrepo.SessionRecord, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	return s.store.ListSessionHistory(ctx, userID)
}

func (s *Service) notify(ctx context.Context, userID int64, event, title, message string, data map[string]any) {
	if s.notifier == nil || userID <= 0 {
		return
	}
	_ = s.notifier.Notify(ctx, userID, event, title, message, data)
}
