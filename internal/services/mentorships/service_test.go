package mentorships

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
)

type memoryMentorshipStore struct {
	nextID  int64
	records map[int64]*pgrepo.MentorshipRecord
}

func newMemoryMentorshipStore() *memoryMentorshipStore {
	return &memoryMentorshipStore{
		nextID:  1,
		records: make(map[int64]*pgrepo.MentorshipRecord),
	}
}

func (s *memoryMentorshipStore) Create(_ context.Context, _ pgx.Tx, mentorID, menteeID int64, focusAreas []string, learningGoals, requestMessage string) (int64, error) {
	id := s.nextID
	s.nextID++
	s.records[id] = &pgrepo.MentorshipRecord{
		ID:             id,
		MentorID:       mentorID,
		MenteeID:       menteeID,
		FocusAreas:     focusAreas,
		LearningGoals:  learningGoals,
		RequestMessage: requestMessage,
		Status:         "pending",
		CreatedAt:      time.Now(),
	}
	return id, nil
}

func (s *memoryMentorshipStore) GetByID(_ context.Context, id int64) (pgrepo.MentorshipRecord, error) {
	record, ok := s.records[id]
	if !ok {
		return pgrepo.MentorshipRecord{}, pgrepo.ErrMentorshipNotFound
	}
	return *record, nil
}

func (s *memoryMentorshipStore) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id int64) (pgrepo.MentorshipRecord, error) {
	return s.GetByID(ctx, id)
}

func (s *memoryMentorshipStore) HasActivePair(_ context.Context, mentorID, menteeID int64) (bool, error) {
	for _, record := range s.records {
		if record.MentorID == mentorID && record.MenteeID == menteeID &&
			(record.Status == "pending" || record.Status == "active") {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryMentorshipStore) CountActiveForMentor(_ context.Context, mentorID int64) (int, error) {
	count := 0
	for _, record := range s.records {
		if record.MentorID == mentorID && record.Status == "active" {
			count++
		}
	}
	return count, nil
}

func (s *memoryMentorshipStore) CountActiveForMentorTx(ctx context.Context, _ pgx.Tx, mentorID int64) (int, error) {
	return s.CountActiveForMentor(ctx, mentorID)
}

func (s *memoryMentorshipStore) MarkActive(_ context.Context, _ pgx.Tx, id int64, at time.Time) error {
	record, ok := s.records[id]
	if !ok || record.Status != "pending" {
		return pgrepo.ErrMentorshipNotFound
	}
	record.Status = "active"
	record.RespondedAt = &at
	record.StartDate = &at
	return nil
}

func (s *memoryMentorshipStore) MarkCancelled(_ context.Context, _ pgx.Tx, id int64, at time.Time) error {
	record, ok := s.records[id]
	if !ok || record.Status != "pending" {
		return pgrepo.ErrMentorshipNotFound
	}
	record.Status = "cancelled"
	record.RespondedAt = &at
	return nil
}

func (s *memoryMentorshipStore) MarkCompleted(_ context.Context, id int64) error {
	record, ok := s.records[id]
	if !ok || record.Status != "active" {
		return pgrepo.ErrMentorshipNotFound
	}
	record.Status = "completed"
	return nil
}

func (s *memoryMentorshipStore) ListPendingForMentor(_ context.Context, mentorID int64) ([]pgrepo.MentorshipRecord, error) {
	var out []pgrepo.MentorshipRecord
	for _, record := range s.records {
		if record.MentorID == mentorID && record.Status == "pending" {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (s *memoryMentorshipStore) ListActiveForUser(_ context.Context, userID int64) ([]pgrepo.MentorshipRecord, error) {
	var out []pgrepo.MentorshipRecord
	for _, record := range s.records {
		if (record.MentorID == userID || record.MenteeID == userID) && record.Status == "active" {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (s *memoryMentorshipStore) ListAllForUser(_ context.Context, userID int64) ([]pgrepo.MentorshipRecord, error) {
	var out []pgrepo.MentorshipRecord
	for _, record := range s.records {
		if record.MentorID == userID || record.MenteeID == userID {
			out = append(out, *record)
		}
	}
	return out, nil
}

type memoryMentorStore struct {
	mentors      map[int64]pgrepo.MentorRecord
	totalMentees map[int64]int
}

func newMemoryMentorStore() *memoryMentorStore {
	return &memoryMentorStore{
		mentors:      make(map[int64]pgrepo.MentorRecord),
		totalMentees: make(map[int64]int),
	}
}

func (s *memoryMentorStore) GetMentor(_ context.Context, userID int64) (pgrepo.MentorRecord, error) {
	mentor, ok := s.mentors[userID]
	if !ok {
		return pgrepo.MentorRecord{}, pgrepo.ErrUserNotFound
	}
	return mentor, nil
}

func (s *memoryMentorStore) IncrementTotalMentees(_ context.Context, _ pgx.Tx, mentorID int64, delta int) error {
	s.totalMentees[mentorID] += delta
	return nil
}

type recordedNotification struct {
	userID int64
	event  string
}

type memoryNotifier struct {
	sent []recordedNotification
}

func (n *memoryNotifier) Notify(_ context.Context, userID int64, event, _, _ string, _ map[string]any) error {
	n.sent = append(n.sent, recordedNotification{userID: userID, event: event})
	return nil
}

func newServiceForTest() (*Service, *memoryMentorshipStore, *memoryMentorStore, *memoryNotifier) {
	mentorships := newMemoryMentorshipStore()
	mentors := newMemoryMentorStore()
	notifier := &memoryNotifier{}

	svc := NewService(Dependencies{
		Mentorships: mentorships,
		Mentors:     mentors,
		Notifier:    notifier,
	})
	svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	return svc, mentorships, mentors, notifier
}

func TestRequestCreatesPendingAndNotifiesMentor(t *testing.T) {
	svc, store, mentors, notifier := newServiceForTest()
	mentors.mentors[10] = pgrepo.MentorRecord{UserID: 10, Capacity: 3}

	ctx := context.Background()
	id, err := svc.Request(ctx, 20, 10, []string{"Go"}, "learn Go", "please mentor me")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	record, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get created mentorship: %v", err)
	}
	if record.Status != "pending" {
		t.Fatalf("expected pending status, got %q", record.Status)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].userID != 10 || notifier.sent[0].event != "mentorship_requested" {
		t.Fatalf("unexpected notifications: %+v", notifier.sent)
	}
}

func TestRequestRejectsDuplicatePair(t *testing.T) {
	svc, _, mentors, _ := newServiceForTest()
	mentors.mentors[10] = pgrepo.MentorRecord{UserID: 10, Capacity: 3}

	ctx := context.Background()
	if _, err := svc.Request(ctx, 20, 10, []string{"Go"}, "", ""); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := svc.Request(ctx, 20, 10, []string{"Go"}, "", ""); !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest, got %v", err)
	}
}

func TestRequestRejectsMentorAtCapacity(t *testing.T) {
	svc, store, mentors, _ := newServiceForTest()
	mentors.mentors[10] = pgrepo.MentorRecord{UserID: 10, Capacity: 1}

	ctx := context.Background()
	id, err := svc.Request(ctx, 20, 10, []string{"Go"}, "", "")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := svc.Accept(ctx, 10, id); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := svc.Request(ctx, 21, 10, []string{"Go"}, "", ""); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	_ = store
}

func TestRequestValidation(t *testing.T) {
	svc, _, mentors, _ := newServiceForTest()
	mentors.mentors[10] = pgrepo.MentorRecord{UserID: 10, Capacity: 3}

	ctx := context.Background()
	if _, err := svc.Request(ctx, 20, 20, []string{"Go"}, "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for self request, got %v", err)
	}
	if _, err := svc.Request(ctx, 20, 10, nil, "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty focus areas, got %v", err)
	}
	if _, err := svc.Request(ctx, 20, 99, []string{"Go"}, "", ""); !errors.Is(err, ErrMentorUnavailable) {
		t.Fatalf("expected ErrMentorUnavailable, got %v", err)
	}
}

func TestAcceptActivatesAndIncrementsTotalMentees(t *testing.T) {
	svc, store, mentors, notifier := newServiceForTest()
	mentors.mentors[10] = pgrepo.MentorRecord{UserID: 10, Capacity: 3}

	ctx := context.Background()
	id, err := svc.Request(ctx, 20, 10, []string{"Go"}, "", "")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if err := svc.Accept(ctx, 10, id); err != nil {
		t.Fatalf("accept: %v", err)
	}

	record, _ := store.GetByID(ctx, id)
	if record.Status != "active" {
		t.Fatalf("expected active status, got %q", record.Status)
	}
	if record.StartDate == nil || record.RespondedAt == nil {
		t.Fatalf("expected start and responded timestamps set")
	}
	if mentors.totalMentees[10] != 1 {
		t.Fatalf("expected total mentees incremented, got %d", mentors.totalMentees[10])
	}

	var menteeNotified bool
	for _, sent := range notifier.sent {
		if sent.userID == 20 && sent.event == "mentorship_accepted" {
			menteeNotified = true
		}
	}
	if !menteeNotified {
		t.Fatalf("expected mentee acceptance notification, got %+v", notifier.sent)
	}
}

func TestAcceptRejectsWrongMentorAndWrongState(t *testing.T) {
	svc, _, mentors, _ := newServiceForTest()
	mentors.mentors[10] = pgrepo.MentorRecord{UserID: 10, Capacity: 3}

	ctx := context.Background()
	id, err := svc.Request(ctx, 20, 10, []string{"Go"}, "", "")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if err := svc.Accept(ctx, 11, id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.Accept(ctx, 10, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := svc.Accept(ctx, 10, id); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := svc.Accept(ctx, 10, id); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending on second accept, got %v", err)
	}
}

func TestAcceptRechecksCapacityInsideTransaction(t *testing.T) {
	svc, _, mentors, _ := newServiceForTest()
	mentors.mentors[10] = pgrepo.MentorRecord{UserID: 10, Capacity: 1}

	ctx := context.Background()
	first, err := svc.Request(ctx, 20, 10, []string{"Go"}, "", "")
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := svc.Request(ctx, 21, 10, []string{"Go"}, "", "")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}

	if err := svc.Accept(ctx, 10, first); err != nil {
		t.Fatalf("accept first: %v", err)
	}
	if err := svc.Accept(ctx, 10, second); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded on second accept, got %v", err)
	}
	if mentors.totalMentees[10] != 1 {
		t.Fatalf("expected single mentee increment, got %d", mentors.totalMentees[10])
	}
}

func TestDeclineCancelsPendingRequest(t *testing.T) {
	svc, store, mentors, notifier := newServiceForTest()
	mentors.mentors[10] = pgrepo.MentorRecord{UserID: 10, Capacity: 3}

	ctx := context.Background()
	id, err := svc.Request(ctx, 20, 10, []string{"Go"}, "", "")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if err := svc.Decline(ctx, 10, id); err != nil {
		t.Fatalf("decline: %v", err)
	}

	record, _ := store.GetByID(ctx, id)
	if record.Status != "cancelled" {
		t.Fatalf("expected cancelled status, got %q", record.Status)
	}
	if err := svc.Decline(ctx, 10, id); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending on second decline, got %v", err)
	}

	var menteeNotified bool
	for _, sent := range notifier.sent {
		if sent.userID == 20 && sent.event == "mentorship_declined" {
			menteeNotified = true
		}
	}
	if !menteeNotified {
		t.Fatalf("expected mentee decline notification, got %+v", notifier.sent)
	}
}

func TestCompleteRequiresActiveAndParticipant(t *testing.T) {
	svc, store, mentors, _ := newServiceForTest()
	mentors.mentors[10] = pgrepo.MentorRecord{UserID: 10, Capacity: 3}

	ctx := context.Background()
	id, err := svc.Request(ctx, 20, 10, []string{"Go"}, "", "")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if err := svc.Complete(ctx, 20, id); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive on pending mentorship, got %v", err)
	}

	if err := svc.Accept(ctx, 10, id); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := svc.Complete(ctx, 99, id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for outsider, got %v", err)
	}
	if err := svc.Complete(ctx, 20, id); err != nil {
		t.Fatalf("complete: %v", err)
	}

	record, _ := store.GetByID(ctx, id)
	if record.Status != "completed" {
		t.Fatalf("expected completed status, got %q", record.Status)
	}
}
