package adminauth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/crypto/bcrypt"

	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSessionExpired = errors.New("session expired")
	ErrTOTPRequired   = errors.New("totp code required")
	ErrUnavailable    = errors.New("moderator auth is unavailable")
)

const totpIssuer = "SkillBridge Moderation"

type ModeratorStore interface {
	GetByEmail(ctx context.Context, email string) (pgrepo.ModeratorRecord, error)
	GetByID(ctx context.Context, id int64) (pgrepo.ModeratorRecord, error)
	SetTOTPSecret(ctx context.Context, id int64, secret string) error
	ConfirmTOTP(ctx context.Context, id int64) error
}

type SessionStore interface {
	Create(ctx context.Context, sid uuid.UUID, moderatorID int64, expiresAt time.Time, idleTimeout time.Duration) error
	Touch(ctx context.Context, sid uuid.UUID, moderatorID int64, idleTimeout time.Duration) error
	Revoke(ctx context.Context, sid uuid.UUID) error
}

type Service struct {
	secret      []byte
	moderators  ModeratorStore
	sessions    SessionStore
	idleTimeout time.Duration
	sessionTTL  time.Duration
	configured  bool
	now         func() time.Time
}

type Claims struct {
	ModeratorID int64
	Email       string
	SID         string
}

type tokenClaims struct {
	ModeratorID int64  `json:"mid"`
	Email       string `json:"email,omitempty"`
	SID         string `json:"sid"`
	jwt.RegisteredClaims
}

// Enrollment carries a freshly generated TOTP secret plus a QR code PNG
// the dashboard renders for the authenticator app.
type Enrollment struct {
	Secret string
	QRPNG  []byte
}

func NewService(jwtSecret string, idleTimeout time.Duration, moderators ModeratorStore, sessions SessionStore) *Service {
	secret := strings.TrimSpace(jwtSecret)
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Service{
		secret:      []byte(secret),
		moderators:  moderators,
		sessions:    sessions,
		idleTimeout: idleTimeout,
		sessionTTL:  12 * time.Hour,
		configured:  secret != "" && moderators != nil && sessions != nil,
		now:         time.Now,
	}
}

func (s *Service) IsConfigured() bool {
	return s != nil && s.configured
}

// Login checks the password and, when enrolled, the TOTP code. A
// moderator with TOTP enabled but no code gets ErrTOTPRequired so the
// dashboard can prompt for the second factor.
func (s *Service) Login(ctx context.Context, email, password, totpCode string) (string, error) {
	if !s.IsConfigured() {
		return "", ErrUnavailable
	}
	if strings.TrimSpace(email) == "" || password == "" {
		return "", ErrUnauthorized
	}

	moderator, err := s.moderators.GetByEmail(ctx, email)
	if err != nil {
		return "", ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(moderator.PasswordHash), []byte(password)) != nil {
		return "", ErrUnauthorized
	}

	if moderator.TOTPEnabled {
		if strings.TrimSpace(totpCode) == "" {
			return "", ErrTOTPRequired
		}
		if !totp.Validate(strings.TrimSpace(totpCode), moderator.TOTPSecret) {
			return "", ErrUnauthorized
		}
	}

	sid := uuid.New()
	expiresAt := s.now().Add(s.sessionTTL)
	if err := s.sessions.Create(ctx, sid, moderator.ID, expiresAt, s.idleTimeout); err != nil {
		return "", fmt.Errorf("create moderator session: %w", err)
	}

	return s.sign(moderator, sid, expiresAt)
}

// EnrollTOTP generates a pending secret for the moderator; it only
// becomes active after VerifyTOTP confirms a valid code.
func (s *Service) EnrollTOTP(ctx context.Context, moderatorID int64) (Enrollment, error) {
	if !s.IsConfigured() {
		return Enrollment{}, ErrUnavailable
	}

	moderator, err := s.moderators.GetByID(ctx, moderatorID)
	if err != nil {
		return Enrollment{}, ErrUnauthorized
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: moderator.Email,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("generate totp key: %w", err)
	}

	if err := s.moderators.SetTOTPSecret(ctx, moderator.ID, key.Secret()); err != nil {
		return Enrollment{}, fmt.Errorf("store totp secret: %w", err)
	}

	img, err := key.Image(256, 256)
	if err != nil {
		return Enrollment{}, fmt.Errorf("render totp qr image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		// Fall back to encoding the provisioning URL directly.
		fallback, qErr := qrcode.Encode(key.URL(), qrcode.Medium, 256)
		if qErr != nil {
			return Enrollment{}, fmt.Errorf("encode totp qr: %w", err)
		}
		return Enrollment{Secret: key.Secret(), QRPNG: fallback}, nil
	}

	return Enrollment{Secret: key.Secret(), QRPNG: buf.Bytes()}, nil
}

func (s *Service) VerifyTOTP(ctx context.Context, moderatorID int64, code string) error {
	if !s.IsConfigured() {
		return ErrUnavailable
	}

	moderator, err := s.moderators.GetByID(ctx, moderatorID)
	if err != nil {
		return ErrUnauthorized
	}
	if moderator.TOTPSecret == "" {
		return ErrUnauthorized
	}
	if !totp.Validate(strings.TrimSpace(code), moderator.TOTPSecret) {
		return ErrUnauthorized
	}

	if err := s.moderators.ConfirmTOTP(ctx, moderator.ID); err != nil {
		return fmt.Errorf("confirm totp enrollment: %w", err)
	}
	return nil
}

func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (Claims, error) {
	if !s.IsConfigured() {
		return Claims{}, ErrUnavailable
	}

	claims, err := s.parse(accessToken)
	if err != nil {
		return Claims{}, ErrUnauthorized
	}

	sid, err := uuid.Parse(strings.TrimSpace(claims.SID))
	if err != nil {
		return Claims{}, ErrUnauthorized
	}
	if err := s.sessions.Touch(ctx, sid, claims.ModeratorID, s.idleTimeout); err != nil {
		if errors.Is(err, pgrepo.ErrModeratorSessionNotFound) {
			return Claims{}, ErrSessionExpired
		}
		return Claims{}, fmt.Errorf("touch moderator session: %w", err)
	}
	return claims, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if !s.IsConfigured() {
		return ErrUnavailable
	}

	parsed, err := uuid.Parse(strings.TrimSpace(sid))
	if err != nil {
		return ErrUnauthorized
	}
	if err := s.sessions.Revoke(ctx, parsed); err != nil {
		return fmt.Errorf("revoke moderator session: %w", err)
	}
	return nil
}

func (s *Service) sign(moderator pgrepo.ModeratorRecord, sid uuid.UUID, expiresAt time.Time) (string, error) {
	now := s.now().UTC()
	claims := tokenClaims{
		ModeratorID: moderator.ID,
		Email:       moderator.Email,
		SID:         sid.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign moderator token: %w", err)
	}
	return signed, nil
}

func (s *Service) parse(accessToken string) (Claims, error) {
	token, err := jwt.ParseWithClaims(accessToken, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrUnauthorized
		}
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, ErrUnauthorized
	}
	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrUnauthorized
	}
	if tc.ModeratorID <= 0 || strings.TrimSpace(tc.SID) == "" {
		return Claims{}, ErrUnauthorized
	}
	return Claims{
		ModeratorID: tc.ModeratorID,
		Email:       strings.TrimSpace(tc.Email),
		SID:         strings.TrimSpace(tc.SID),
	}, nil
}
