package mentorships

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("mentorship not found")
	ErrUnauthorized      = errors.New("not a participant")
	ErrNotPending        = errors.New("mentorship is not pending")
	ErrNotActive         = errors.New("mentorship is not active")
	ErrDuplicateRequest  = errors.New("mentorship request already exists")
	ErrCapacityExceeded  = errors.New("mentor capacity exceeded")
	ErrMentorUnavailable = errors.New("mentor unavailable")
)

type MentorshipStore interface {
	Create(ctx context.Context, tx pgx.Tx, mentorID, menteeID int64, focusAreas []string, learningGoals, requestMessage string) (int64, error)
	GetByID(ctx context.Context, mentorshipID int64) (pgrepo.MentorshipRecord, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, mentorshipID int64) (pgrepo.MentorshipRecord, error)
	HasActivePair(ctx context.Context, mentorID, menteeID int64) (bool, error)
	CountActiveForMentor(ctx context.Context, mentorID int64) (int, error)
	CountActiveForMentorTx(ctx context.Context, tx pgx.Tx, mentorID int64) (int, error)
	MarkActive(ctx context.Context, tx pgx.Tx, mentorshipID int64, at time.Time) error
	MarkCancelled(ctx context.Context, tx pgx.Tx, mentorshipID int64, at time.Time) error
	MarkCompleted(ctx context.Context, mentorshipID int64) error
	ListPendingForMentor(ctx context.Context, mentorID int64) ([]pgrepo.MentorshipRecord, error)
	ListActiveForUser(ctx context.Context, userID int64) ([]pgrepo.MentorshipRecord, error)
	ListAllForUser(ctx context.Context, userID int64) ([]pgrepo.MentorshipRecord, error)
}

type MentorStore interface {
	GetMentor(ctx context.Context, userID int64) (pgrepo.MentorRecord, error)
	IncrementTotalMentees(ctx context.Context, tx pgx.Tx, mentorID int64, delta int) error
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, event, title, message string, data map[string]any) error
}

type Service struct {
	pool        *pgxpool.Pool
	mentorships MentorshipStore
	mentors     MentorStore
	notifier    Notifier
	runTx       func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	now         func() time.Time
}

type Dependencies struct {
	Pool        *pgxpool.Pool
	Mentorships MentorshipStore
	Mentors     MentorStore
	Notifier    Notifier
}

func NewService(deps Dependencies) *Service {
	s := &Service{
		pool:        deps.Pool,
		mentorships: deps.Mentorships,
		mentors:     deps.Mentors,
		notifier:    deps.Notifier,
		now:         time.Now,
	}
	s.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return pgrepo.WithTx(ctx, s.pool, fn)
	}
	return s
}

// Request creates a pending mentorship request from mentee to mentor.
// A pair can only hold one pending or active mentorship at a time, and a
// mentor already at capacity is rejected up front.
func (s *Service) Request(ctx context.Context, menteeID, mentorID int64, focusAreas []string, learningGoals, requestMessage string) (int64, error) {
	if menteeID <= 0 || mentorID <= 0 || menteeID == mentorID {
		return 0, ErrValidation
	}
	focusAreas = cleanList(focusAreas)
	if len(focusAreas) == 0 {
		return 0, ErrValidation
	}
	if s.mentorships == nil || s.mentors == nil {
		return 0, fmt.Errorf("mentorship dependencies are not configured")
	}

	mentor, err := s.mentors.GetMentor(ctx, mentorID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return 0, ErrMentorUnavailable
		}
		return 0, fmt.Errorf("lookup mentor: %w", err)
	}

	exists, err := s.mentorships.HasActivePair(ctx, mentorID, menteeID)
	if err != nil {
		return 0, fmt.Errorf("check existing mentorship: %w", err)
	}
	if exists {
		return 0, ErrDuplicateRequest
	}

	active, err := s.mentorships.CountActiveForMentor(ctx, mentorID)
	if err != nil {
		return 0, fmt.Errorf("count active mentorships: %w", err)
	}
	if active >= mentor.Capacity {
		return 0, ErrCapacityExceeded
	}

	var mentorshipID int64
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		id, err := s.mentorships.Create(txCtx, tx, mentorID, menteeID, focusAreas, learningGoals, requestMessage)
		if err != nil {
			return err
		}
		mentorshipID = id
		return nil
	}); err != nil {
		return 0, err
	}

	s.notify(ctx, mentorID, "mentorship_requested", "New mentorship request",
		"You have a new mentorship request.", map[string]any{"mentorship_id": mentorshipID})

	return mentorshipID, nil
}

// Accept flips a pending request to active. The row is locked and the
// mentor's capacity re-checked inside the transaction, so two
// simultaneous accepts cannot push a mentor past capacity.
func (s *Service) Accept(ctx context.Context, mentorID, mentorshipID int64) error {
	if mentorID <= 0 || mentorshipID <= 0 {
		return ErrValidation
	}
	if s.mentorships == nil || s.mentors == nil {
		return fmt.Errorf("mentorship dependencies are not configured")
	}

	var menteeID int64
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		mentorship, err := s.mentorships.GetByIDForUpdate(txCtx, tx, mentorshipID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrMentorshipNotFound) {
				return ErrNotFound
			}
			return err
		}
		if mentorship.MentorID != mentorID {
			return ErrUnauthorized
		}
		if mentorship.Status != "pending" {
			return ErrNotPending
		}

		mentor, err := s.mentors.GetMentor(txCtx, mentorID)
		if err != nil {
			return fmt.Errorf("lookup mentor: %w", err)
		}
		active, err := s.mentorships.CountActiveForMentorTx(txCtx, tx, mentorID)
		if err != nil {
			return err
		}
		if active >= mentor.Capacity {
			return ErrCapacityExceeded
		}

		if err := s.mentorships.MarkActive(txCtx, tx, mentorshipID, s.now()); err != nil {
			if errors.Is(err, pgrepo.ErrMentorshipNotFound) {
				return ErrNotPending
			}
			return err
		}
		if err := s.mentors.IncrementTotalMentees(txCtx, tx, mentorID, 1); err != nil {
			return err
		}

		menteeID = mentorship.MenteeID
		return nil
	}); err != nil {
		return err
	}

	s.notify(ctx, menteeID, "mentorship_accepted", "Mentorship request accepted",
		"Your mentorship request was accepted.", map[string]any{"mentorship_id": mentorshipID})

	return nil
}

// Decline cancels a pending request. Only the requested mentor may
// decline.
func (s *Service) Decline(ctx context.Context, mentorID, mentorshipID int64) error {
	if mentorID <= 0 || mentorshipID <= 0 {
		return ErrValidation
	}
	if s.mentorships == nil {
		return fmt.Errorf("mentorship dependencies are not configured")
	}

	var menteeID int64
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		mentorship, err := s.mentorships.GetByIDForUpdate(txCtx, tx, mentorshipID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrMentorshipNotFound) {
				return ErrNotFound
			}
			return err
		}
		if mentorship.MentorID != mentorID {
			return ErrUnauthorized
		}
		if mentorship.Status != "pending" {
			return ErrNotPending
		}

		if err := s.mentorships.MarkCancelled(txCtx, tx, mentorshipID, s.now()); err != nil {
			if errors.Is(err, pgrepo.ErrMentorshipNotFound) {
				return ErrNotPending
			}
			return err
		}

		menteeID = mentorship.MenteeID
		return nil
	}); err != nil {
		return err
	}

	s.notify(ctx, menteeID, "mentorship_declined", "Mentorship request declined",
		"Your mentorship request was declined.", map[string]any{"mentorship_id": mentorshipID})

	return nil
}

// Complete marks an active mentorship finished. Either participant may
// complete it.
func (s *Service) Complete(ctx context.Context, userID, mentorshipID int64) error {
	if userID <= 0 || mentorshipID <= 0 {
		return ErrValidation
	}
	if s.mentorships == nil {
		return fmt.Errorf("mentorship dependencies are not configured")
	}

	mentorship, err := s.mentorships.GetByID(ctx, mentorshipID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMentorshipNotFound) {
			return ErrNotFound
		}
		return err
	}
	if mentorship.MentorID != userID && mentorship.MenteeID != userID {
		return ErrUnauthorized
	}
	if mentorship.Status != "active" {
		return ErrNotActive
	}

	if err := s.mentorships.MarkCompleted(ctx, mentorshipID); err != nil {
		if errors.Is(err, pgrepo.ErrMentorshipNotFound) {
			return ErrNotActive
		}
		return err
	}

	other := mentorship.MentorID
	if userID == mentorship.MentorID {
		other = mentorship.MenteeID
	}
	s.notify(ctx, other, "mentorship_completed", "Mentorship completed",
		"Your mentorship has been marked completed.", map[string]any{"mentorship_id": mentorshipID})

	return nil
}

func (s *Service) Get(ctx context.Context, userID, mentorshipID int64) (pgrepo.MentorshipRecord, error) {
	if userID <= 0 || mentorshipID <= 0 {
		return pgrepo.MentorshipRecord{}, ErrValidation
	}

	mentorship, err := s.mentorships.GetByID(ctx, mentorshipID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMentorshipNotFound) {
			return pgrepo.MentorshipRecord{}, ErrNotFound
		}
		return pgrepo.MentorshipRecord{}, err
	}
	if mentorship.MentorID != userID && mentorship.MenteeID != userID {
		return pgrepo.MentorshipRecord{}, ErrUnauthorized
	}
	return mentorship, nil
}

func (s *Service) ListPendingForMentor(ctx context.Context, mentorID int64) ([]pgrepo.MentorshipRecord, error) {
	if mentorID <= 0 {
		return nil, ErrValidation
	}
	return s.mentorships.ListPendingForMentor(ctx, mentorID)
}

func (s *Service) ListActive(ctx context.Context, userID int64) ([]pgrepo.MentorshipRecord, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	return s.mentorships.ListActiveForUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context, userID int64) ([]pgrepo.MentorshipRecord, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	return s.mentorships.ListAllForUser(ctx, userID)
}

// notify is best effort; a failed notification never rolls back the
// state change that triggered it.
func (s *Service) notify(ctx context.Context, userID int64, event, title, message string, data map[string]any) {
	if s.notifier == nil || userID <= 0 {
		return
	}
	_ = s.notifier.Notify(ctx, userID, event, title, message, data)
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
