package handlers

import (
	"errors"
	"net/http"
	"strconv"

	authsvc "github.com/skillbridge/backend/internal/services/auth"
	notifysvc "github.com/skillbridge/backend/internal/services/notifications"
	"github.com/skillbridge/backend/internal/transport/http/dto"
	httperrors "github.com/skillbridge/backend/internal/transport/http/errors"
)

type NotificationHandler struct {
	service *notifysvc.Service
}

func NewNotificationHandler(service *notifysvc.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.service.ListForUser(r.Context(), identity.UserID, unreadOnly, limit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list notifications")
		return
	}

	items := make([]dto.NotificationResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NotificationResponse{
			ID:        record.ID,
			Type:      record.Type,
			Title:     record.Title,
			Message:   record.Message,
			Data:      record.Data,
			ActionURL: record.ActionURL,
			Priority:  record.Priority,
			IsRead:    record.IsRead,
			CreatedAt: record.CreatedAt,
		})
	}
	httperrors.Write(w, http.StatusOK, dto.NotificationsResponse{Items: items})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid notification id")
		return
	}

	if err := h.service.MarkRead(r.Context(), identity.UserID, id); err != nil {
		if errors.Is(err, notifysvc.ErrNotFound) {
			writeNotFound(w, "NOT_FOUND", "notification not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to mark notification read")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	count, err := h.service.CountUnread(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to count notifications")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.UnreadCountResponse{Count: count})
}

func (h *NotificationHandler) identity(w http.ResponseWriter, r *http.Request) (authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, false
	}
	if h.service == nil {
		writeInternal(w, "NOTIFICATION_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return authsvc.Identity{}, false
	}
	return identity, true
}
