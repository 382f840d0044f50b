package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	redrepo "github.com/skillbridge/backend/internal/repo/redis"
	authsvc "github.com/skillbridge/backend/internal/services/auth"
)

type credStoreStub struct {
	creds map[string]authsvc.Credentials
}

func (s credStoreStub) CredentialsByEmail(_ context.Context, email string) (authsvc.Credentials, error) {
	creds, ok := s.creds[email]
	if !ok {
		return authsvc.Credentials{}, errors.New("not found")
	}
	return creds, nil
}

func newAuthServiceForTest(t *testing.T, users authsvc.CredentialStore) (*authsvc.Service, func()) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	repo := redrepo.NewSessionRepo(client)
	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	svc := authsvc.NewService(jwtManager, repo, users, 30*24*time.Hour)

	cleanup := func() {
		_ = client.Close()
		mini.Close()
	}
	return svc, cleanup
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func TestLoginIssuesTokensAndValidates(t *testing.T) {
	users := credStoreStub{creds: map[string]authsvc.Credentials{
		"mentee@example.com": {
			UserID:       101,
			PasswordHash: hashPassword(t, "correct horse"),
			Role:         "freelancer",
			DisplayName:  "Jordan",
			IsActive:     true,
		},
	}}
	svc, cleanup := newAuthServiceForTest(t, users)
	defer cleanup()

	ctx := context.Background()
	result, err := svc.Login(ctx, "mentee@example.com", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("expected issued tokens, got %+v", result)
	}
	if result.Me.ID != 101 || result.Me.Role != "freelancer" {
		t.Fatalf("unexpected identity: %+v", result.Me)
	}

	claims, err := svc.ValidateAccessToken(ctx, result.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.UserID != 101 || claims.Role != "freelancer" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	users := credStoreStub{creds: map[string]authsvc.Credentials{
		"mentee@example.com": {
			UserID:       101,
			PasswordHash: hashPassword(t, "correct horse"),
			Role:         "freelancer",
			IsActive:     true,
		},
	}}
	svc, cleanup := newAuthServiceForTest(t, users)
	defer cleanup()

	if _, err := svc.Login(context.Background(), "mentee@example.com", "wrong"); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "ghost@example.com", "anything"); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown account, got %v", err)
	}
}

func TestLoginRejectsBannedAccount(t *testing.T) {
	users := credStoreStub{creds: map[string]authsvc.Credentials{
		"banned@example.com": {
			UserID:       55,
			PasswordHash: hashPassword(t, "pw"),
			Role:         "client",
			IsActive:     false,
			IsBanned:     true,
		},
	}}
	svc, cleanup := newAuthServiceForTest(t, users)
	defer cleanup()

	if _, err := svc.Login(context.Background(), "banned@example.com", "pw"); !errors.Is(err, authsvc.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestRefreshRotatesAndInvalidatesOldToken(t *testing.T) {
	users := credStoreStub{creds: map[string]authsvc.Credentials{
		"mentor@example.com": {
			UserID:       7,
			PasswordHash: hashPassword(t, "pw"),
			Role:         "mentor",
			IsActive:     true,
		},
	}}
	svc, cleanup := newAuthServiceForTest(t, users)
	defer cleanup()

	ctx := context.Background()
	first, err := svc.Login(ctx, "mentor@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("expected rotated refresh token")
	}

	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected old refresh token rejected, got %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	users := credStoreStub{creds: map[string]authsvc.Credentials{
		"mentor@example.com": {
			UserID:       7,
			PasswordHash: hashPassword(t, "pw"),
			Role:         "mentor",
			IsActive:     true,
		},
	}}
	svc, cleanup := newAuthServiceForTest(t, users)
	defer cleanup()

	ctx := context.Background()
	result, err := svc.Login(ctx, "mentor@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.ValidateAccessToken(ctx, result.AccessToken)
	if err != nil {
		t.Fatalf("validate before logout: %v", err)
	}

	if err := svc.Logout(ctx, claims.SID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := svc.ValidateAccessToken(ctx, result.AccessToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}
