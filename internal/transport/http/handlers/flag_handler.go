package handlers

import (
	"errors"
	"net/http"
	"strconv"

	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
	adminauthsvc "github.com/skillbridge/backend/internal/services/adminauth"
	authsvc "github.com/skillbridge/backend/internal/services/auth"
	modsvc "github.com/skillbridge/backend/internal/services/moderation"
	ratesvc "github.com/skillbridge/backend/internal/services/rate"
	"github.com/skillbridge/backend/internal/transport/http/dto"
	httperrors "github.com/skillbridge/backend/internal/transport/http/errors"
)

type FlagHandler struct {
	service *modsvc.Service
	limiter *ratesvc.Limiter
}

func NewFlagHandler(service *modsvc.Service, limiter *ratesvc.Limiter) *FlagHandler {
	return &FlagHandler{service: service, limiter: limiter}
}

func (h *FlagHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}

	var req dto.FlagCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	id, err := h.service.FlagContent(r.Context(), identity.UserID, req.ContentType, req.ContentID, req.Reason, req.Description)
	if err != nil {
		if errors.Is(err, modsvc.ErrRateLimited) {
			retryAfter := int64(0)
			if h.limiter != nil {
				retryAfter, _ = h.limiter.RetryAfterFlag(r.Context(), identity.UserID)
			}
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "FLAG_RATE_LIMITED",
				Message:       "too many flags submitted, try again later",
				RetryAfterSec: retryAfter,
			})
			return
		}
		handleFlagError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.IDResponse{ID: id})
}

func (h *FlagHandler) Queue(w http.ResponseWriter, r *http.Request) {
	if !h.moderator(w, r) {
		return
	}

	status := r.URL.Query().Get("status")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	flags, err := h.service.ListQueue(r.Context(), status, limit)
	if err != nil {
		handleFlagError(w, err)
		return
	}

	items := make([]dto.FlagResponse, 0, len(flags))
	for _, flag := range flags {
		items = append(items, mapFlag(flag))
	}
	httperrors.Write(w, http.StatusOK, dto.FlagsResponse{Items: items})
}

func (h *FlagHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.moderator(w, r) {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid flag id")
		return
	}

	flag, evidence, err := h.service.GetFlag(r.Context(), id)
	if err != nil {
		handleFlagError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.FlagDetailResponse{
		Flag:     mapFlag(flag),
		Evidence: mapFlagEvidence(evidence),
	})
}

func (h *FlagHandler) Assign(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.moderatorClaims(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid flag id")
		return
	}

	if err := h.service.AssignFlag(r.Context(), claims.ModeratorID, id); err != nil {
		handleFlagError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *FlagHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.moderatorClaims(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid flag id")
		return
	}

	var req dto.FlagEscalateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.service.EscalateFlag(r.Context(), claims.ModeratorID, id, req.Priority, req.Severity); err != nil {
		handleFlagError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *FlagHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.moderatorClaims(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid flag id")
		return
	}

	var req dto.FlagResolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.service.ResolveFlag(r.Context(), claims.ModeratorID, id, req.Resolution, req.Notes); err != nil {
		handleFlagError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *FlagHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.moderatorClaims(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid flag id")
		return
	}

	var req dto.FlagDismissRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.service.DismissFlag(r.Context(), claims.ModeratorID, id, req.Notes); err != nil {
		handleFlagError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *FlagHandler) AddEvidence(w http.ResponseWriter, r *http.Request) {
	if !h.moderator(w, r) {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid flag id")
		return
	}

	var req dto.FlagEvidenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	evidenceID, err := h.service.AttachEvidence(r.Context(), id, req.Kind, req.ObjectKey, req.Note)
	if err != nil {
		handleFlagError(w, err)
		return
	}
	httperrors.Write(w, http.StatusCreated, dto.EvidenceCreatedResponse{ID: evidenceID.String()})
}

func (h *FlagHandler) EvidenceURL(w http.ResponseWriter, r *http.Request) {
	if !h.moderator(w, r) {
		return
	}

	objectKey := r.URL.Query().Get("object_key")
	if objectKey == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "object_key is required")
		return
	}

	url, err := h.service.EvidenceURL(r.Context(), objectKey)
	if err != nil {
		handleFlagError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.EvidenceURLResponse{URL: url})
}

func (h *FlagHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !h.moderator(w, r) {
		return
	}

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleFlagError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.FlagStatsResponse{
		ByStatus:          stats.ByStatus,
		ByReason:          stats.ByReason,
		AvgResolutionSecs: stats.AvgResolutionSecs,
	})
}

func (h *FlagHandler) moderator(w http.ResponseWriter, r *http.Request) bool {
	_, ok := h.moderatorClaims(w, r)
	return ok
}

func (h *FlagHandler) moderatorClaims(w http.ResponseWriter, r *http.Request) (adminauthsvc.Claims, bool) {
	claims, ok := adminauthsvc.ModeratorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "moderator authentication required")
		return adminauthsvc.Claims{}, false
	}
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return adminauthsvc.Claims{}, false
	}
	return claims, true
}

func handleFlagError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, modsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid flag request")
	case errors.Is(err, modsvc.ErrSelfFlag):
		writeBadRequest(w, "SELF_FLAG", "own content cannot be flagged")
	case errors.Is(err, modsvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "flag not found")
	case errors.Is(err, modsvc.ErrDuplicateFlag):
		writeConflict(w, "DUPLICATE_FLAG", "an open flag for this content already exists")
	case errors.Is(err, modsvc.ErrInvalidState):
		writeConflict(w, "INVALID_STATE", "flag is not in an open state")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process flag request")
	}
}

func mapFlag(flag pgrepo.FlagRecord) dto.FlagResponse {
	return dto.FlagResponse{
		ID:           flag.ID,
		ReporterID:   flag.ReporterID,
		ContentType:  flag.ContentType,
		ContentID:    flag.ContentID,
		TargetUserID: flag.TargetUserID,
		Reason:       flag.Reason,
		Description:  flag.Description,
		Status:       flag.Status,
		Priority:     flag.Priority,
		Severity:     flag.Severity,
		ModeratorID:  flag.ModeratorID,
		Resolution:   flag.Resolution,
		ResolvedAt:   flag.ResolvedAt,
		AutoDetected: flag.AutoDetected,
		CreatedAt:    flag.CreatedAt,
	}
}

func mapFlagEvidence(records []pgrepo.FlagEvidenceRecord) []dto.EvidenceItemResponse {
	items := make([]dto.EvidenceItemResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.EvidenceItemResponse{
			ID:        record.ID.String(),
			Kind:      record.Kind,
			ObjectKey: record.ObjectKey,
			Note:      record.Note,
			CreatedAt: record.CreatedAt,
		})
	}
	return items
}
