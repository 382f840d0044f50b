package handlers

import (
	"errors"
	"net/http"

	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
	authsvc "github.com/skillbridge/backend/internal/services/auth"
	mentorshipsvc "github.com/skillbridge/backend/internal/services/mentorships"
	"github.com/skillbridge/backend/internal/transport/http/dto"
	httperrors "github.com/skillbridge/backend/internal/transport/http/errors"
)

type MentorshipHandler struct {
	service *mentorshipsvc.Service
}

func NewMentorshipHandler(service *mentorshipsvc.Service) *MentorshipHandler {
	return &MentorshipHandler{service: service}
}

func (h *MentorshipHandler) Request(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req dto.MentorshipRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	id, err := h.service.Request(r.Context(), identity.UserID, req.MentorID, req.FocusAreas, req.LearningGoals, req.RequestMessage)
	if err != nil {
		handleMentorshipError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.IDResponse{ID: id})
}

func (h *MentorshipHandler) Accept(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid mentorship id")
		return
	}

	if err := h.service.Accept(r.Context(), identity.UserID, id); err != nil {
		handleMentorshipError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *MentorshipHandler) Decline(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid mentorship id")
		return
	}

	if err := h.service.Decline(r.Context(), identity.UserID, id); err != nil {
		handleMentorshipError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *MentorshipHandler) Complete(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid mentorship id")
		return
	}

	if err := h.service.Complete(r.Context(), identity.UserID, id); err != nil {
		handleMentorshipError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *MentorshipHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid mentorship id")
		return
	}

	mentorship, err := h.service.Get(r.Context(), identity.UserID, id)
	if err != nil {
		handleMentorshipError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, mapMentorship(mentorship))
}

func (h *MentorshipHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	mentorships, err := h.service.ListPendingForMentor(r.Context(), identity.UserID)
	if err != nil {
		handleMentorshipError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, mapMentorships(mentorships))
}

func (h *MentorshipHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var (
		mentorships []pgrepo.MentorshipRecord
		err         error
	)
	if r.URL.Query().Get("status") == "active" {
		mentorships, err = h.service.ListActive(r.Context(), identity.UserID)
	} else {
		mentorships, err = h.service.ListAll(r.Context(), identity.UserID)
	}
	if err != nil {
		handleMentorshipError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, mapMentorships(mentorships))
}

func (h *MentorshipHandler) identity(w http.ResponseWriter, r *http.Request) (authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, false
	}
	if h.service == nil {
		writeInternal(w, "MENTORSHIP_SERVICE_UNAVAILABLE", "mentorship service is unavailable")
		return authsvc.Identity{}, false
	}
	return identity, true
}

func handleMentorshipError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mentorshipsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid mentorship request")
	case errors.Is(err, mentorshipsvc.ErrUnauthorized):
		writeForbidden(w, "FORBIDDEN", "not a mentorship participant")
	case errors.Is(err, mentorshipsvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "mentorship not found")
	case errors.Is(err, mentorshipsvc.ErrMentorUnavailable):
		writeNotFound(w, "MENTOR_UNAVAILABLE", "mentor not found or inactive")
	case errors.Is(err, mentorshipsvc.ErrDuplicateRequest):
		writeConflict(w, "DUPLICATE_REQUEST", "an open mentorship already exists for this pair")
	case errors.Is(err, mentorshipsvc.ErrCapacityExceeded):
		writeConflict(w, "CAPACITY_EXCEEDED", "mentor has no open capacity")
	case errors.Is(err, mentorshipsvc.ErrNotPending):
		writeConflict(w, "NOT_PENDING", "mentorship is not pending")
	case errors.Is(err, mentorshipsvc.ErrNotActive):
		writeConflict(w, "NOT_ACTIVE", "mentorship is not active")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process mentorship request")
	}
}

func mapMentorship(record pgrepo.MentorshipRecord) dto.MentorshipResponse {
	return dto.MentorshipResponse{
		ID:             record.ID,
		MentorID:       record.MentorID,
		MenteeID:       record.MenteeID,
		FocusAreas:     record.FocusAreas,
		LearningGoals:  record.LearningGoals,
		RequestMessage: record.RequestMessage,
		Status:         record.Status,
		SessionCount:   record.SessionCount,
		CreatedAt:      record.CreatedAt,
		RespondedAt:    record.RespondedAt,
		StartDate:      record.StartDate,
	}
}

func mapMentorships(records []pgrepo.MentorshipRecord) dto.MentorshipsResponse {
	items := make([]dto.MentorshipResponse, 0, len(records))
	for _, record := range records {
		items = append(items, mapMentorship(record))
	}
	return dto.MentorshipsResponse{Items: items}
}
