package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	adminauthsvc "github.com/skillbridge/backend/internal/services/adminauth"
	"github.com/skillbridge/backend/internal/transport/http/dto"
	httperrors "github.com/skillbridge/backend/internal/transport/http/errors"
)

// ModDashHandler serves the moderator dashboard auth flow.
type ModDashHandler struct {
	service *adminauthsvc.Service
}

func NewModDashHandler(service *adminauthsvc.Service) *ModDashHandler {
	return &ModDashHandler{service: service}
}

func (h *ModDashHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.service == nil || !h.service.IsConfigured() {
		writeInternal(w, "MODDASH_UNAVAILABLE", "moderator dashboard is unavailable")
		return
	}

	var req dto.ModeratorLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password, req.TOTPCode)
	if err != nil {
		handleModDashError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.ModeratorTokenResponse{AccessToken: token})
}

func (h *ModDashHandler) EnrollTOTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	enrollment, err := h.service.EnrollTOTP(r.Context(), claims.ModeratorID)
	if err != nil {
		handleModDashError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.TOTPEnrollResponse{
		Secret: enrollment.Secret,
		QRPNG:  base64.StdEncoding.EncodeToString(enrollment.QRPNG),
	})
}

func (h *ModDashHandler) VerifyTOTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	var req dto.TOTPVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.VerifyTOTP(r.Context(), claims.ModeratorID, req.Code); err != nil {
		handleModDashError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *ModDashHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	if err := h.service.Logout(r.Context(), claims.SID); err != nil {
		handleModDashError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.LogoutResponse{OK: true})
}

func (h *ModDashHandler) claims(w http.ResponseWriter, r *http.Request) (adminauthsvc.Claims, bool) {
	claims, ok := adminauthsvc.ModeratorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "moderator authentication required")
		return adminauthsvc.Claims{}, false
	}
	if h.service == nil {
		writeInternal(w, "MODDASH_UNAVAILABLE", "moderator dashboard is unavailable")
		return adminauthsvc.Claims{}, false
	}
	return claims, true
}

func handleModDashError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, adminauthsvc.ErrTOTPRequired):
		writeUnauthorized(w, "TOTP_REQUIRED", "one-time code is required")
	case errors.Is(err, adminauthsvc.ErrUnauthorized):
		writeUnauthorized(w, "UNAUTHORIZED", "authentication failed")
	case errors.Is(err, adminauthsvc.ErrSessionExpired):
		writeUnauthorized(w, "SESSION_EXPIRED", "session has expired")
	case errors.Is(err, adminauthsvc.ErrUnavailable):
		writeInternal(w, "MODDASH_UNAVAILABLE", "moderator dashboard is unavailable")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
