package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrModeratorNotFound = errors.New("moderator not found")

// ModeratorRecord is a dashboard account, separate from marketplace
// users so dashboard credentials never mix with member logins.
type ModeratorRecord struct {
	ID           int64
	UserID       int64
	Email        string
	PasswordHash string
	TOTPSecret   string
	TOTPEnabled  bool
	CreatedAt    time.Time
}

type ModeratorRepo struct {
	pool *pgxpool.Pool
}

func NewModeratorRepo(pool *pgxpool.Pool) *ModeratorRepo {
	return &ModeratorRepo{pool: pool}
}

const moderatorColumns = `
SELECT m.id,
       m.user_id,
       m.email,
       m.password_hash,
       COALESCE(m.totp_secret, ''),
       m.totp_enabled,
       m.created_at
FROM moderators m
`

func (r *ModeratorRepo) GetByEmail(ctx context.Context, email string) (ModeratorRecord, error) {
	if r.pool == nil {
		return ModeratorRecord{}, fmt.Errorf("postgres pool is nil")
	}
	clean := strings.ToLower(strings.TrimSpace(email))
	if clean == "" {
		return ModeratorRecord{}, ErrModeratorNotFound
	}
	return r.scanOne(ctx, moderatorColumns+`WHERE LOWER(m.email) = $1 LIMIT 1`, clean)
}

func (r *ModeratorRepo) GetByID(ctx context.Context, id int64) (ModeratorRecord, error) {
	if r.pool == nil {
		return ModeratorRecord{}, fmt.Errorf("postgres pool is nil")
	}
	return r.scanOne(ctx, moderatorColumns+`WHERE m.id = $1 LIMIT 1`, id)
}

func (r *ModeratorRepo) scanOne(ctx context.Context, query string, arg any) (ModeratorRecord, error) {
	var record ModeratorRecord
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&record.ID,
		&record.UserID,
		&record.Email,
		&record.PasswordHash,
		&record.TOTPSecret,
		&record.TOTPEnabled,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ModeratorRecord{}, ErrModeratorNotFound
		}
		return ModeratorRecord{}, fmt.Errorf("lookup moderator: %w", err)
	}
	return record, nil
}

// SetTOTPSecret stores a pending secret; it is not considered enrolled
// until ConfirmTOTP succeeds with a valid code.
func (r *ModeratorRepo) SetTOTPSecret(ctx context.Context, id int64, secret string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE moderators
SET totp_secret = $2,
    totp_enabled = FALSE
WHERE id = $1
`, id, secret)
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrModeratorNotFound
	}
	return nil
}

func (r *ModeratorRepo) ConfirmTOTP(ctx context.Context, id int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE moderators
SET totp_enabled = TRUE
WHERE id = $1
  AND totp_secret IS NOT NULL
  AND totp_secret <> ''
`, id)
	if err != nil {
		return fmt.Errorf("confirm totp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrModeratorNotFound
	}
	return nil
}
