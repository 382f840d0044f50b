package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
)

type memorySessionStore struct {
	mentorships map[int64]pgrepo.MentorshipRecord
	sessions    map[int64]*pgrepo.SessionRecord
	nextID      int64
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{
		mentorships: make(map[int64]pgrepo.MentorshipRecord),
		sessions:    make(map[int64]*pgrepo.SessionRecord),
		nextID:      1,
	}
}

func (s *memorySessionStore) GetByID(_ context.Context, id int64) (pgrepo.MentorshipRecord, error) {
	record, ok := s.mentorships[id]
	if !ok {
		return pgrepo.MentorshipRecord{}, pgrepo.ErrMentorshipNotFound
	}
	return record, nil
}

func (s *memorySessionStore) AddSession(_ context.Context, _ pgx.Tx, mentorshipID int64, scheduledAt time.Time, durationMin int, notes string) (int64, error) {
	mentorship := s.mentorships[mentorshipID]
	id := s.nextID
	s.nextID++
	s.sessions[id] = &pgrepo.SessionRecord{
		ID:           id,
		MentorshipID: mentorshipID,
		MentorID:     mentorship.MentorID,
		MenteeID:     mentorship.MenteeID,
		ScheduledAt:  scheduledAt,
		DurationMin:  durationMin,
		Status:       "scheduled",
		Notes:        notes,
		CreatedAt:    time.Now(),
	}
	return id, nil
}

func (s *memorySessionStore) GetSessionByID(_ context.Context, id int64) (pgrepo.SessionRecord, error) {
	session, ok := s.sessions[id]
	if !ok {
		return pgrepo.SessionRecord{}, pgrepo.ErrSessionNotFound
	}
	return *session, nil
}

func (s *memorySessionStore) UpdateSessionStatus(_ context.Context, id int64, status string) error {
	session, ok := s.sessions[id]
	if !ok {
		return pgrepo.ErrSessionNotFound
	}
	session.Status = status
	return nil
}

func (s *memorySessionStore) SetMentorFeedback(_ context.Context, id int64, feedback string, rating int) error {
	session, ok := s.sessions[id]
	if !ok {
		return pgrepo.ErrSessionNotFound
	}
	session.MentorFeedback = &feedback
	session.MentorRating = &rating
	return nil
}

func (s *memorySessionStore) SetMenteeFeedback(_ context.Context, id int64, feedback string, rating int) error {
	session, ok := s.sessions[id]
	if !ok {
		return pgrepo.ErrSessionNotFound
	}
	session.MenteeFeedback = &feedback
	session.MenteeRating = &rating
	return nil
}

func (s *memorySessionStore) ListUpcomingSessions(_ context.Context, userID int64, after time.Time) ([]pgrepo.SessionRecord, error) {
	var out []pgrepo.SessionRecord
	for _, session := range s.sessions {
		if (session.MentorID == userID || session.MenteeID == userID) &&
			session.Status == "scheduled" && !session.ScheduledAt.Before(after) {
			out = append(out, *session)
		}
	}
	return out, nil
}

func (s *memorySessionStore) ListSessionHistory(_ context.Context, userID int64) ([]pgrepo.SessionRecord, error) {
	var out []pgrepo.SessionRecord
	for _, session := range s.sessions {
		if session.MentorID == userID || session.MenteeID == userID {
			out = append(out, *session)
		}
	}
	return out, nil
}

func newServiceForTest() (*Service, *memorySessionStore) {
	store := newMemorySessionStore()
	svc := NewService(Dependencies{Store: store})
	svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	return svc, store
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestScheduleRequiresActiveMentorshipAndFutureDate(t *testing.T) {
	svc, store := newServiceForTest()
	svc.now = func() time.Time { return testNow }

	store.mentorships[1] = pgrepo.MentorshipRecord{ID: 1, MentorID: 10, MenteeID: 20, Status: "active"}
	store.mentorships[2] = pgrepo.MentorshipRecord{ID: 2, MentorID: 10, MenteeID: 21, Status: "pending"}

	ctx := context.Background()

	id, err := svc.Schedule(ctx, 20, 1, testNow.Add(48*time.Hour), 60, "weekly check-in")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	session, _ := store.GetSessionByID(ctx, id)
	if session.Status != "scheduled" || session.DurationMin != 60 {
		t.Fatalf("unexpected session: %+v", session)
	}

	if _, err := svc.Schedule(ctx, 20, 1, testNow.Add(-time.Hour), 60, ""); !errors.Is(err, ErrPastDate) {
		t.Fatalf("expected ErrPastDate, got %v", err)
	}
	if _, err := svc.Schedule(ctx, 21, 2, testNow.Add(time.Hour), 60, ""); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	if _, err := svc.Schedule(ctx, 99, 1, testNow.Add(time.Hour), 60, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Schedule(ctx, 20, 5, testNow.Add(time.Hour), 60, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Schedule(ctx, 20, 1, testNow.Add(time.Hour), 5, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for short duration, got %v", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	svc, store := newServiceForTest()
	svc.now = func() time.Time { return testNow }
	store.mentorships[1] = pgrepo.MentorshipRecord{ID: 1, MentorID: 10, MenteeID: 20, Status: "active"}

	ctx := context.Background()
	id, err := svc.Schedule(ctx, 10, 1, testNow.Add(time.Hour), 60, "")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if err := svc.UpdateStatus(ctx, 10, id, "done"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown status, got %v", err)
	}
	if err := svc.UpdateStatus(ctx, 99, id, "completed"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.UpdateStatus(ctx, 10, id, "completed"); err != nil {
		t.Fatalf("complete session: %v", err)
	}

	// Transitions are caller-driven, so reversing a status is allowed.
	if err := svc.UpdateStatus(ctx, 10, id, "scheduled"); err != nil {
		t.Fatalf("reschedule session: %v", err)
	}
	if err := svc.UpdateStatus(ctx, 10, id, "cancelled"); err != nil {
		t.Fatalf("cancel session: %v", err)
	}
	session, _ := store.GetSessionByID(ctx, id)
	if session.Status != "cancelled" {
		t.Fatalf("expected cancelled status, got %q", session.Status)
	}
}

func TestSubmitFeedbackAttributedByRole(t *testing.T) {
	svc, store := newServiceForTest()
	svc.now = func() time.Time { return testNow }
	store.mentorships[1] = pgrepo.MentorshipRecord{ID: 1, MentorID: 10, MenteeID: 20, Status: "active"}

	ctx := context.Background()
	id, err := svc.Schedule(ctx, 10, 1, testNow.Add(time.Hour), 60, "")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	// Feedback does not require a completed session.
	if err := svc.SubmitFeedback(ctx, 10, id, "mentee made progress", 5); err != nil {
		t.Fatalf("mentor feedback: %v", err)
	}
	if err := svc.SubmitFeedback(ctx, 20, id, "learned a lot", 4); err != nil {
		t.Fatalf("mentee feedback: %v", err)
	}
	if err := svc.SubmitFeedback(ctx, 99, id, "who am I", 3); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.SubmitFeedback(ctx, 10, id, "bad rating", 6); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for rating out of range, got %v", err)
	}

	session, _ := store.GetSessionByID(ctx, id)
	if session.MentorRating == nil || *session.MentorRating != 5 {
		t.Fatalf("expected mentor rating 5, got %+v", session.MentorRating)
	}
	if session.MenteeRating == nil || *session.MenteeRating != 4 {
		t.Fatalf("expected mentee rating 4, got %+v", session.MenteeRating)
	}
}

func TestListUpcomingExcludesPastAndFinished(t *testing.T) {
	svc, store := newServiceForTest()
	svc.now = func() time.Time { return testNow }
	store.mentorships[1] = pgrepo.MentorshipRecord{ID: 1, MentorID: 10, MenteeID: 20, Status: "active"}

	ctx := context.Background()
	future, err := svc.Schedule(ctx, 10, 1, testNow.Add(24*time.Hour), 60, "")
	if err != nil {
		t.Fatalf("schedule future: %v", err)
	}
	finished, err := svc.Schedule(ctx, 10, 1, testNow.Add(2*time.Hour), 60, "")
	if err != nil {
		t.Fatalf("schedule second: %v", err)
	}
	if err := svc.UpdateStatus(ctx, 10, finished, "completed"); err != nil {
		t.Fatalf("complete second: %v", err)
	}

	upcoming, err := svc.ListUpcoming(ctx, 20)
	if err != nil {
		t.Fatalf("list upcoming: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].ID != future {
		t.Fatalf("unexpected upcoming sessions: %+v", upcoming)
	}

	history, err := svc.ListHistory(ctx, 20)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history sessions, got %d", len(history))
	}
}
