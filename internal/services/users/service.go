package users

import (
	"context"
	"errors"
	"fmt"

	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
	authsvc "github.com/skillbridge/backend/internal/services/auth"
)

var ErrNotFound = errors.New("user not found")

type UserStore interface {
	GetByID(ctx context.Context, userID int64) (pgrepo.UserRecord, error)
	GetByEmail(ctx context.Context, email string) (pgrepo.UserRecord, error)
	GetMentor(ctx context.Context, userID int64) (pgrepo.MentorRecord, error)
}

// Service exposes directory lookups and adapts the user store for the
// auth login path.
type Service struct {
	store UserStore
}

func NewService(store UserStore) *Service {
	return &Service{store: store}
}

type Profile struct {
	ID          int64
	Email       string
	Role        string
	DisplayName string
	IsActive    bool
}

func (s *Service) Profile(ctx context.Context, userID int64) (Profile, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return Profile{
		ID:          user.ID,
		Email:       user.Email,
		Role:        user.Role,
		DisplayName: user.DisplayName,
		IsActive:    user.IsActive,
	}, nil
}

func (s *Service) MentorProfile(ctx context.Context, userID int64) (pgrepo.MentorRecord, error) {
	mentor, err := s.store.GetMentor(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return pgrepo.MentorRecord{}, ErrNotFound
		}
		return pgrepo.MentorRecord{}, fmt.Errorf("load mentor profile: %w", err)
	}
	return mentor, nil
}

// CredentialsByEmail satisfies the auth credential store.
func (s *Service) CredentialsByEmail(ctx context.Context, email string) (authsvc.Credentials, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return authsvc.Credentials{}, err
	}
	return authsvc.Credentials{
		UserID:       user.ID,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		DisplayName:  user.DisplayName,
		IsActive:     user.IsActive,
		IsBanned:     user.IsBanned,
	}, nil
}
