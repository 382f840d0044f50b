package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrModeratorSessionNotFound = errors.New("moderator session not found")

type ModeratorSessionRepo struct {
	pool *pgxpool.Pool
}

func NewModeratorSessionRepo(pool *pgxpool.Pool) *ModeratorSessionRepo {
	return &ModeratorSessionRepo{pool: pool}
}

func (r *ModeratorSessionRepo) Create(ctx context.Context, sid uuid.UUID, moderatorID int64, expiresAt time.Time, idleTimeout time.Duration) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if moderatorID <= 0 {
		return fmt.Errorf("invalid moderator id")
	}

	seconds := int64(idleTimeout.Seconds())
	if seconds <= 0 {
		seconds = 1800
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO moderator_sessions (id, moderator_id, created_at, last_seen_at, expires_at, idle_expires_at)
VALUES ($1, $2, NOW(), NOW(), $3, NOW() + ($4 * INTERVAL '1 second'))
`, sid, moderatorID, expiresAt.UTC(), seconds); err != nil {
		return fmt.Errorf("create moderator session: %w", err)
	}
	return nil
}

// Touch slides the idle window; expired or revoked sessions return
// ErrModeratorSessionNotFound so callers force a fresh login.
func (r *ModeratorSessionRepo) Touch(ctx context.Context, sid uuid.UUID, moderatorID int64, idleTimeout time.Duration) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if moderatorID <= 0 {
		return fmt.Errorf("invalid moderator id")
	}

	const query = `
UPDATE moderator_sessions AS s
SET last_seen_at = NOW(),
    idle_expires_at = NOW() + ($3 * INTERVAL '1 second')
FROM moderators AS m
WHERE s.id = $1
  AND s.moderator_id = $2
  AND s.moderator_id = m.id
  AND s.revoked_at IS NULL
  AND s.expires_at > NOW()
  AND s.idle_expires_at > NOW()
RETURNING s.id
`
	seconds := int64(idleTimeout.Seconds())
	if seconds <= 0 {
		seconds = 1800
	}

	var returned uuid.UUID
	err := r.pool.QueryRow(ctx, query, sid, moderatorID, seconds).Scan(&returned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrModeratorSessionNotFound
		}
		return fmt.Errorf("touch moderator session: %w", err)
	}
	return nil
}

func (r *ModeratorSessionRepo) Revoke(ctx context.Context, sid uuid.UUID) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE moderator_sessions
SET revoked_at = NOW()
WHERE id = $1
  AND revoked_at IS NULL
`, sid); err != nil {
		return fmt.Errorf("revoke moderator session: %w", err)
	}
	return nil
}
