package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/skillbridge/backend/internal/services/auth"
	matchingsvc "github.com/skillbridge/backend/internal/services/matching"
	"github.com/skillbridge/backend/internal/transport/http/dto"
	httperrors "github.com/skillbridge/backend/internal/transport/http/errors"
)

type MatchingHandler struct {
	service *matchingsvc.Service
}

func NewMatchingHandler(service *matchingsvc.Service) *MatchingHandler {
	return &MatchingHandler{service: service}
}

func (h *MatchingHandler) Find(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHING_SERVICE_UNAVAILABLE", "matching service is unavailable")
		return
	}

	var req dto.MatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	matches, err := h.service.FindMatches(r.Context(), matchingsvc.Request{
		Skills:          req.Skills,
		FocusAreas:      req.FocusAreas,
		ExperienceLevel: req.ExperienceLevel,
	})
	if err != nil {
		if errors.Is(err, matchingsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "skills or focus areas are required")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to find matches")
		return
	}

	items := make([]dto.MatchItemResponse, 0, len(matches))
	for _, match := range matches {
		items = append(items, dto.MatchItemResponse{
			MentorID:        match.MentorID,
			DisplayName:     match.DisplayName,
			Score:           match.Score,
			SkillScore:      match.SkillScore,
			FocusScore:      match.FocusScore,
			ExperienceScore: match.ExperienceScore,
			RatingScore:     match.RatingScore,
			ExpertiseAreas:  match.ExpertiseAreas,
			ExperienceYears: match.ExperienceYears,
			Rating:          match.Rating,
			OpenSlots:       match.OpenSlots,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{Items: items})
}
