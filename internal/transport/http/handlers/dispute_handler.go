package handlers

import (
	"errors"
	"net/http"

	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
	adminauthsvc "github.com/skillbridge/backend/internal/services/adminauth"
	authsvc "github.com/skillbridge/backend/internal/services/auth"
	disputesvc "github.com/skillbridge/backend/internal/services/disputes"
	"github.com/skillbridge/backend/internal/transport/http/dto"
	httperrors "github.com/skillbridge/backend/internal/transport/http/errors"
)

type DisputeHandler struct {
	service *disputesvc.Service
}

func NewDisputeHandler(service *disputesvc.Service) *DisputeHandler {
	return &DisputeHandler{service: service}
}

func (h *DisputeHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req dto.DisputeCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	id, disputeID, err := h.service.Create(r.Context(), identity.UserID, disputesvc.CreateRequest{
		Type:              req.Type,
		Priority:          req.Priority,
		RespondentID:      req.RespondentID,
		RelatedEntityType: req.RelatedEntityType,
		RelatedEntityID:   req.RelatedEntityID,
		Title:             req.Title,
		Description:       req.Description,
	})
	if err != nil {
		handleDisputeError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.DisputeCreatedResponse{ID: id, DisputeID: disputeID})
}

func (h *DisputeHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid dispute id")
		return
	}

	detail, err := h.service.Get(r.Context(), disputesvc.Actor{ID: identity.UserID, Role: identity.Role}, id)
	if err != nil {
		handleDisputeError(w, err)
		return
	}

	timeline := make([]dto.DisputeTimelineResponse, 0, len(detail.Timeline))
	for _, entry := range detail.Timeline {
		timeline = append(timeline, dto.DisputeTimelineResponse{
			Action:    entry.Action,
			ActorID:   entry.ActorID,
			Details:   entry.Details,
			CreatedAt: entry.CreatedAt,
		})
	}
	messages := make([]dto.DisputeMessageResponse, 0, len(detail.Messages))
	for _, message := range detail.Messages {
		messages = append(messages, dto.DisputeMessageResponse{
			ID:        message.ID,
			SenderID:  message.SenderID,
			Message:   message.Message,
			IsPrivate: message.IsPrivate,
			CreatedAt: message.CreatedAt,
		})
	}
	evidence := make([]dto.EvidenceItemResponse, 0, len(detail.Evidence))
	for _, item := range detail.Evidence {
		evidence = append(evidence, dto.EvidenceItemResponse{
			ID:        item.ID.String(),
			Kind:      item.Kind,
			ObjectKey: item.ObjectKey,
			Note:      item.Note,
			CreatedAt: item.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.DisputeDetailResponse{
		Dispute:  mapDispute(detail.Dispute),
		Timeline: timeline,
		Messages: messages,
		Evidence: evidence,
	})
}

func (h *DisputeHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	disputes, err := h.service.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		handleDisputeError(w, err)
		return
	}

	items := make([]dto.DisputeResponse, 0, len(disputes))
	for _, dispute := range disputes {
		items = append(items, mapDispute(dispute))
	}
	httperrors.Write(w, http.StatusOK, dto.DisputesResponse{Items: items})
}

func (h *DisputeHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid dispute id")
		return
	}

	var req dto.DisputeMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	messageID, err := h.service.AddMessage(r.Context(), disputesvc.Actor{ID: identity.UserID, Role: identity.Role}, id, req.Message, req.IsPrivate)
	if err != nil {
		handleDisputeError(w, err)
		return
	}
	httperrors.Write(w, http.StatusCreated, dto.IDResponse{ID: messageID})
}

func (h *DisputeHandler) AddEvidence(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid dispute id")
		return
	}

	var req dto.DisputeEvidenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	evidenceID, err := h.service.AddEvidence(r.Context(), disputesvc.Actor{ID: identity.UserID, Role: identity.Role}, id, req.Kind, req.ObjectKey, req.Note)
	if err != nil {
		handleDisputeError(w, err)
		return
	}
	httperrors.Write(w, http.StatusCreated, dto.EvidenceCreatedResponse{ID: evidenceID.String()})
}

func (h *DisputeHandler) EvidenceURL(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid dispute id")
		return
	}

	objectKey := r.URL.Query().Get("object_key")
	if objectKey == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "object_key is required")
		return
	}

	url, err := h.service.EvidenceURL(r.Context(), disputesvc.Actor{ID: identity.UserID, Role: identity.Role}, id, objectKey)
	if err != nil {
		handleDisputeError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.EvidenceURLResponse{URL: url})
}

func (h *DisputeHandler) StartReview(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.moderatorClaims(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid dispute id")
		return
	}

	if err := h.service.StartReview(r.Context(), claims.ModeratorID, id); err != nil {
		handleDisputeError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *DisputeHandler) AssignMediator(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.moderatorClaims(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid dispute id")
		return
	}

	var req dto.DisputeAssignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.service.AssignMediator(r.Context(), claims.ModeratorID, id, req.MediatorID); err != nil {
		handleDisputeError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *DisputeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.moderatorClaims(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid dispute id")
		return
	}

	var req dto.DisputeResolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	followUps := make([]disputesvc.FollowUpRequest, 0, len(req.FollowUps))
	for _, followUp := range req.FollowUps {
		followUps = append(followUps, disputesvc.FollowUpRequest{
			Description: followUp.Description,
			AssignedTo:  followUp.AssignedTo,
			Deadline:    followUp.Deadline,
		})
	}

	err := h.service.Resolve(r.Context(), claims.ModeratorID, id, disputesvc.ResolveRequest{
		ResolutionType: req.ResolutionType,
		Description:    req.Description,
		Compensation:   req.Compensation,
		FollowUps:      followUps,
	})
	if err != nil {
		handleDisputeError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *DisputeHandler) Close(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.moderatorClaims(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid dispute id")
		return
	}

	if err := h.service.Close(r.Context(), claims.ModeratorID, id); err != nil {
		handleDisputeError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *DisputeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.moderatorClaims(w, r); !ok {
		return
	}

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleDisputeError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.DisputeStatsResponse{
		ByStatus:          stats.ByStatus,
		ByType:            stats.ByType,
		AvgResolutionSecs: stats.AvgResolutionSecs,
	})
}

func (h *DisputeHandler) identity(w http.ResponseWriter, r *http.Request) (authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, false
	}
	if h.service == nil {
		writeInternal(w, "DISPUTE_SERVICE_UNAVAILABLE", "dispute service is unavailable")
		return authsvc.Identity{}, false
	}
	return identity, true
}

func (h *DisputeHandler) moderatorClaims(w http.ResponseWriter, r *http.Request) (adminauthsvc.Claims, bool) {
	claims, ok := adminauthsvc.ModeratorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "moderator authentication required")
		return adminauthsvc.Claims{}, false
	}
	if h.service == nil {
		writeInternal(w, "DISPUTE_SERVICE_UNAVAILABLE", "dispute service is unavailable")
		return adminauthsvc.Claims{}, false
	}
	return claims, true
}

func handleDisputeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, disputesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid dispute request")
	case errors.Is(err, disputesvc.ErrUnauthorized):
		writeForbidden(w, "FORBIDDEN", "not a dispute participant")
	case errors.Is(err, disputesvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "dispute not found")
	case errors.Is(err, disputesvc.ErrAlreadyResolved):
		writeConflict(w, "ALREADY_RESOLVED", "dispute is already resolved or closed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process dispute request")
	}
}

func mapDispute(record pgrepo.DisputeRecord) dto.DisputeResponse {
	return dto.DisputeResponse{
		ID:                 record.ID,
		DisputeID:          record.DisputeID,
		Type:               record.Type,
		Status:             record.Status,
		Priority:           record.Priority,
		InitiatorID:        record.InitiatorID,
		RespondentID:       record.RespondentID,
		MediatorID:         record.MediatorID,
		RelatedEntityType:  record.RelatedEntityType,
		RelatedEntityID:    record.RelatedEntityID,
		Title:              record.Title,
		Description:        record.Description,
		ResponseDeadline:   record.ResponseDeadline,
		MediationDeadline:  record.MediationDeadline,
		ResolutionDeadline: record.ResolutionDeadline,
		ResolutionType:     record.ResolutionType,
		ResolutionDesc:     record.ResolutionDesc,
		Compensation:       record.Compensation,
		ResolvedBy:         record.ResolvedBy,
		ResolvedAt:         record.ResolvedAt,
		CreatedAt:          record.CreatedAt,
	}
}
