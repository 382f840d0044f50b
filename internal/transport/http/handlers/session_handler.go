package handlers

import (
	"errors"
	"net/http"

	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
	authsvc "github.com/skillbridge/backend/internal/services/auth"
	sessionsvc "github.com/skillbridge/backend/internal/services/sessions"
	"github.com/skillbridge/backend/internal/transport/http/dto"
	httperrors "github.com/skillbridge/backend/internal/transport/http/errors"
)

type SessionHandler struct {
	service *sessionsvc.Service
}

func NewSessionHandler(service *sessionsvc.Service) *SessionHandler {
	return &SessionHandler{service: service}
}

func (h *SessionHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req dto.ScheduleSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	id, err := h.service.Schedule(r.Context(), identity.UserID, req.MentorshipID, req.ScheduledAt, req.DurationMin, req.Notes)
	if err != nil {
		handleSessionError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.IDResponse{ID: id})
}

func (h *SessionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid session id")
		return
	}

	var req dto.SessionStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.service.UpdateStatus(r.Context(), identity.UserID, id, req.Status); err != nil {
		handleSessionError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *SessionHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid session id")
		return
	}

	var req dto.SessionFeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.service.SubmitFeedback(r.Context(), identity.UserID, id, req.Feedback, req.Rating); err != nil {
		handleSessionError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *SessionHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	sessions, err := h.service.ListUpcoming(r.Context(), identity.UserID)
	if err != nil {
		handleSessionError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, mapSessions(sessions))
}

func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	sessions, err := h.service.ListHistory(r.Context(), identity.UserID)
	if err != nil {
		handleSessionError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, mapSessions(sessions))
}

func (h *SessionHandler) identity(w http.ResponseWriter, r *http.Request) (authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, false
	}
	if h.service == nil {
		writeInternal(w, "SESSION_SERVICE_UNAVAILABLE", "session service is unavailable")
		return authsvc.Identity{}, false
	}
	return identity, true
}

func handleSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid session request")
	case errors.Is(err, sessionsvc.ErrPastDate):
		writeBadRequest(w, "PAST_DATE", "session must be scheduled in the future")
	case errors.Is(err, sessionsvc.ErrUnauthorized):
		writeForbidden(w, "FORBIDDEN", "not a session participant")
	case errors.Is(err, sessionsvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "session or mentorship not found")
	case errors.Is(err, sessionsvc.ErrNotActive):
		writeConflict(w, "NOT_ACTIVE", "mentorship is not active")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process session request")
	}
}

func mapSessions(records []pgrepo.SessionRecord) dto.SessionsResponse {
	items := make([]dto.SessionResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.SessionResponse{
			ID:             record.ID,
			MentorshipID:   record.MentorshipID,
			MentorID:       record.MentorID,
			MenteeID:       record.MenteeID,
			ScheduledAt:    record.ScheduledAt,
			DurationMin:    record.DurationMin,
			Status:         record.Status,
			Notes:          record.Notes,
			MentorFeedback: record.MentorFeedback,
			MentorRating:   record.MentorRating,
			MenteeFeedback: record.MenteeFeedback,
			MenteeRating:   record.MenteeRating,
		})
	}
	return dto.SessionsResponse{Items: items}
}
