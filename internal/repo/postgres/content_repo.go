package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrContentNotFound = errors.New("content not found")

// ContentRepo resolves flagged content to its author and applies the
// moderation outcomes that touch the content itself.
type ContentRepo struct {
	pool *pgxpool.Pool
}

func NewContentRepo(pool *pgxpool.Pool) *ContentRepo {
	return &ContentRepo{pool: pool}
}

// AuthorID returns the owner of a piece of flagged content. Profile
// flags resolve to the profile's user directly.
func (r *ContentRepo) AuthorID(ctx context.Context, contentType, contentID string) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var query string
	switch contentType {
	case "message":
		query = `SELECT sender_id FROM messages WHERE id = $1::bigint LIMIT 1`
	case "project":
		query = `SELECT owner_id FROM projects WHERE id = $1::bigint LIMIT 1`
	case "course":
		query = `SELECT instructor_id FROM courses WHERE id = $1::bigint LIMIT 1`
	case "review":
		query = `SELECT reviewer_id FROM reviews WHERE id = $1::bigint LIMIT 1`
	case "profile":
		query = `SELECT id FROM users WHERE id = $1::bigint LIMIT 1`
	default:
		return 0, fmt.Errorf("unsupported content type %q", contentType)
	}

	var authorID int64
	if err := r.pool.QueryRow(ctx, query, contentID).Scan(&authorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrContentNotFound
		}
		return 0, fmt.Errorf("lookup content author: %w", err)
	}
	return authorID, nil
}

// Remove soft-deletes the content. Profiles are never removed here, a
// punitive resolution handles the user instead.
func (r *ContentRepo) Remove(ctx context.Context, tx pgx.Tx, contentType, contentID string) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	var query string
	switch contentType {
	case "message":
		query = `UPDATE messages SET is_removed = TRUE, removed_at = NOW() WHERE id = $1::bigint`
	case "project":
		query = `UPDATE projects SET is_removed = TRUE, removed_at = NOW() WHERE id = $1::bigint`
	case "course":
		query = `UPDATE courses SET is_removed = TRUE, removed_at = NOW() WHERE id = $1::bigint`
	case "review":
		query = `UPDATE reviews SET is_removed = TRUE, removed_at = NOW() WHERE id = $1::bigint`
	case "profile":
		return nil
	default:
		return fmt.Errorf("unsupported content type %q", contentType)
	}

	tag, err := tx.Exec(ctx, query, contentID)
	if err != nil {
		return fmt.Errorf("remove content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrContentNotFound
	}
	return nil
}

// MarkEdited flags the content as requiring an edit by its author.
func (r *ContentRepo) MarkEdited(ctx context.Context, tx pgx.Tx, contentType, contentID string) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	var query string
	switch contentType {
	case "message":
		query = `UPDATE messages SET needs_edit = TRUE WHERE id = $1::bigint`
	case "project":
		query = `UPDATE projects SET needs_edit = TRUE WHERE id = $1::bigint`
	case "course":
		query = `UPDATE courses SET needs_edit = TRUE WHERE id = $1::bigint`
	case "review":
		query = `UPDATE reviews SET needs_edit = TRUE WHERE id = $1::bigint`
	case "profile":
		return nil
	default:
		return fmt.Errorf("unsupported content type %q", contentType)
	}

	if _, err := tx.Exec(ctx, query, contentID); err != nil {
		return fmt.Errorf("mark content edited: %w", err)
	}
	return nil
}
