package dto

type ModeratorLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

type ModeratorTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type TOTPEnrollResponse struct {
	Secret string `json:"secret"`
	QRPNG  string `json:"qr_png_base64"`
}

type TOTPVerifyRequest struct {
	Code string `json:"code"`
}
