package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/skillbridge/backend/internal/services/auth"
	userssvc "github.com/skillbridge/backend/internal/services/users"
	httperrors "github.com/skillbridge/backend/internal/transport/http/errors"
)

type MeHandler struct {
	service *userssvc.Service
}

func NewMeHandler(service *userssvc.Service) *MeHandler {
	return &MeHandler{service: service}
}

func (h *MeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}

	profile, err := h.service.Profile(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, userssvc.ErrNotFound) {
			writeNotFound(w, "NOT_FOUND", "user not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load profile")
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		ID          int64  `json:"id"`
		Email       string `json:"email"`
		Role        string `json:"role"`
		DisplayName string `json:"display_name,omitempty"`
		IsActive    bool   `json:"is_active"`
	}{
		ID:          profile.ID,
		Email:       profile.Email,
		Role:        profile.Role,
		DisplayName: profile.DisplayName,
		IsActive:    profile.IsActive,
	})
}

// Mentor exposes a mentor's public profile.
func (h *MeHandler) Mentor(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid mentor id")
		return
	}

	mentor, err := h.service.MentorProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, userssvc.ErrNotFound) {
			writeNotFound(w, "NOT_FOUND", "mentor not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load mentor profile")
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		UserID          int64    `json:"user_id"`
		DisplayName     string   `json:"display_name,omitempty"`
		ExpertiseAreas  []string `json:"expertise_areas"`
		ExperienceYears int      `json:"experience_years"`
		Capacity        int      `json:"capacity"`
		Rating          float64  `json:"rating"`
		TotalMentees    int      `json:"total_mentees"`
		IsVerified      bool     `json:"is_verified"`
	}{
		UserID:          mentor.UserID,
		DisplayName:     mentor.DisplayName,
		ExpertiseAreas:  mentor.ExpertiseAreas,
		ExperienceYears: mentor.ExperienceYears,
		Capacity:        mentor.Capacity,
		Rating:          mentor.Rating,
		TotalMentees:    mentor.TotalMentees,
		IsVerified:      mentor.IsVerified,
	})
}
