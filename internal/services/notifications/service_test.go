package notifications

import (
	"context"
	"errors"
	"testing"

	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
)

type memoryNotificationStore struct {
	nextID  int64
	records map[int64]*pgrepo.NotificationRecord
}

func newMemoryNotificationStore() *memoryNotificationStore {
	return &memoryNotificationStore{nextID: 1, records: make(map[int64]*pgrepo.NotificationRecord)}
}

func (s *memoryNotificationStore) Create(_ context.Context, p pgrepo.CreateNotificationParams) (int64, error) {
	id := s.nextID
	s.nextID++
	priority := p.Priority
	if priority == "" {
		priority = "normal"
	}
	s.records[id] = &pgrepo.NotificationRecord{
		ID:        id,
		UserID:    p.UserID,
		Type:      p.Type,
		Title:     p.Title,
		Message:   p.Message,
		Data:      p.Data,
		ActionURL: p.ActionURL,
		Priority:  priority,
	}
	return id, nil
}

func (s *memoryNotificationStore) ListForUser(_ context.Context, userID int64, unreadOnly bool, _ int) ([]pgrepo.NotificationRecord, error) {
	var out []pgrepo.NotificationRecord
	for _, record := range s.records {
		if record.UserID != userID {
			continue
		}
		if unreadOnly && record.IsRead {
			continue
		}
		out = append(out, *record)
	}
	return out, nil
}

func (s *memoryNotificationStore) MarkRead(_ context.Context, userID, notificationID int64) error {
	record, ok := s.records[notificationID]
	if !ok || record.UserID != userID {
		return pgrepo.ErrNotificationNotFound
	}
	record.IsRead = true
	return nil
}

func (s *memoryNotificationStore) CountUnread(_ context.Context, userID int64) (int, error) {
	count := 0
	for _, record := range s.records {
		if record.UserID == userID && !record.IsRead {
			count++
		}
	}
	return count, nil
}

func TestNotifyAssignsPriorityByEvent(t *testing.T) {
	store := newMemoryNotificationStore()
	svc := NewService(store, nil)

	ctx := context.Background()
	if err := svc.Notify(ctx, 10, "mentorship_accepted", "Accepted", "Your request was accepted.", nil); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := svc.Notify(ctx, 10, "dispute_opened", "Dispute", "A dispute was opened.", map[string]any{"dispute_id": "DSP-1-0001"}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	records, _ := store.ListForUser(ctx, 10, false, 0)
	priorities := map[string]string{}
	actions := map[string]string{}
	for _, record := range records {
		priorities[record.Type] = record.Priority
		actions[record.Type] = record.ActionURL
	}
	if priorities["mentorship_accepted"] != "normal" {
		t.Fatalf("expected normal priority, got %q", priorities["mentorship_accepted"])
	}
	if priorities["dispute_opened"] != "high" {
		t.Fatalf("expected high priority, got %q", priorities["dispute_opened"])
	}
	if actions["dispute_opened"] != "/disputes/DSP-1-0001" {
		t.Fatalf("expected dispute action url, got %q", actions["dispute_opened"])
	}
	if actions["mentorship_accepted"] != "" {
		t.Fatalf("expected empty action url, got %q", actions["mentorship_accepted"])
	}
}

func TestMarkReadScopedToOwner(t *testing.T) {
	store := newMemoryNotificationStore()
	svc := NewService(store, nil)

	ctx := context.Background()
	if err := svc.Notify(ctx, 10, "session_scheduled", "Session", "A session was scheduled.", nil); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if err := svc.MarkRead(ctx, 99, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
	if err := svc.MarkRead(ctx, 10, 1); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	count, err := svc.CountUnread(ctx, 10)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no unread notifications, got %d", count)
	}
}
