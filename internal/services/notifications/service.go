package notifications

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
)

var ErrNotFound = errors.New("notification not found")

type NotificationStore interface {
	Create(ctx context.Context, p pgrepo.CreateNotificationParams) (int64, error)
	ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]pgrepo.NotificationRecord, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
	CountUnread(ctx context.Context, userID int64) (int, error)
}

// highPriorityEvents are delivered with elevated priority so clients can
// surface them ahead of routine updates.
var highPriorityEvents = map[string]struct{}{
	"flag_escalated":          {},
	"moderation_action":       {},
	"dispute_opened":          {},
	"dispute_deadline_passed": {},
}

type Service struct {
	store  NotificationStore
	logger *zap.Logger
}

func NewService(store NotificationStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Notify persists an in-app notification. Callers treat delivery as best
// effort, so failures are logged but still returned for tests.
func (s *Service) Notify(ctx context.Context, userID int64, event, title, message string, data map[string]any) error {
	priority := "normal"
	if _, ok := highPriorityEvents[event]; ok {
		priority = "high"
	}

	if _, err := s.store.Create(ctx, pgrepo.CreateNotificationParams{
		UserID:    userID,
		Type:      event,
		Title:     title,
		Message:   message,
		Data:      data,
		ActionURL: actionURL(data),
		Priority:  priority,
	}); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.Int64("user_id", userID),
			zap.String("event", event),
			zap.Error(err))
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// actionURL points the client at the entity the event concerns, when
// the payload identifies one.
func actionURL(data map[string]any) string {
	if data == nil {
		return ""
	}
	if id, ok := data["dispute_id"]; ok {
		return fmt.Sprintf("/disputes/%v", id)
	}
	if id, ok := data["flag_id"]; ok {
		return fmt.Sprintf("/moddash/flags/%v", id)
	}
	if id, ok := data["mentorship_id"]; ok {
		return fmt.Sprintf("/mentorships/%v", id)
	}
	if id, ok := data["session_id"]; ok {
		return fmt.Sprintf("/sessions/%v", id)
	}
	return ""
}

func (s *Service) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]pgrepo.NotificationRecord, error) {
	return s.store.ListForUser(ctx, userID, unreadOnly, limit)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if err := s.store.MarkRead(ctx, userID, notificationID); err != nil {
		if errors.Is(err, pgrepo.ErrNotificationNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) CountUnread(ctx context.Context, userID int64) (int, error) {
	return s.store.CountUnread(ctx, userID)
}
