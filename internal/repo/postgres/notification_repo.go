package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRecord struct {
	ID        int64
	UserID    int64
	Type      string
	Title     string
	Message   string
	Data      map[string]any
	ActionURL string
	Priority  string
	IsRead    bool
	CreatedAt time.Time
}

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

type CreateNotificationParams struct {
	UserID    int64
	Type      string
	Title     string
	Message   string
	Data      map[string]any
	ActionURL string
	Priority  string
}

func (r *NotificationRepo) Create(ctx context.Context, p CreateNotificationParams) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if p.UserID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if p.Priority == "" {
		p.Priority = "normal"
	}

	payload, err := json.Marshal(p.Data)
	if err != nil {
		return 0, fmt.Errorf("encode notification data: %w", err)
	}

	var id int64
	err = r.pool.QueryRow(ctx, `
INSERT INTO notifications (user_id, type, title, message, data, action_url, priority, is_read, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, NOW())
RETURNING id
`, p.UserID, p.Type, p.Title, p.Message, payload, p.ActionURL, p.Priority).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create notification: %w", err)
	}
	return id, nil
}

func (r *NotificationRepo) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]NotificationRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
SELECT id, user_id, type, title, message, data, COALESCE(action_url, ''), priority, is_read, created_at
FROM notifications
WHERE user_id = $1
`
	if unreadOnly {
		query += `  AND NOT is_read
`
	}
	query += `ORDER BY created_at DESC
LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var records []NotificationRecord
	for rows.Next() {
		var record NotificationRecord
		var payload []byte
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Type,
			&record.Title,
			&record.Message,
			&payload,
			&record.ActionURL,
			&record.Priority,
			&record.IsRead,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &record.Data); err != nil {
				return nil, fmt.Errorf("decode notification data: %w", err)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification rows: %w", err)
	}
	return records, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE notifications
SET is_read = TRUE
WHERE id = $1
  AND user_id = $2
`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID int64) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM notifications
WHERE user_id = $1
  AND NOT is_read
`, userID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
