package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrFlagNotFound = errors.New("content flag not found")

type FlagRecord struct {
	ID             int64
	ReporterID     int64
	ContentType    string
	ContentID      string
	TargetUserID   int64
	Reason         string
	Description    string
	Status         string
	Priority       string
	Severity       int
	ModeratorID    *int64
	ModeratorNotes *string
	Resolution     *string
	ResolvedAt     *time.Time
	AutoDetected   bool
	CreatedAt      time.Time
}

type FlagEvidenceRecord struct {
	ID        uuid.UUID
	FlagID    int64
	Kind      string
	ObjectKey string
	Note      string
	CreatedAt time.Time
}

type FlagStats struct {
	ByStatus          map[string]int
	ByReason          map[string]int
	AvgResolutionSecs float64
}

type FlagRepo struct {
	pool *pgxpool.Pool
}

func NewFlagRepo(pool *pgxpool.Pool) *FlagRepo {
	return &FlagRepo{pool: pool}
}

type CreateFlagParams struct {
	ReporterID   int64
	ContentType  string
	ContentID    string
	TargetUserID int64
	Reason       string
	Description  string
	Priority     string
	Severity     int
	AutoDetected bool
}

func (r *FlagRepo) Create(ctx context.Context, tx pgx.Tx, p CreateFlagParams) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if p.ReporterID <= 0 || p.TargetUserID <= 0 || strings.TrimSpace(p.ContentID) == "" {
		return 0, fmt.Errorf("invalid flag payload")
	}

	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO content_flags (
	reporter_id,
	content_type,
	content_id,
	target_user_id,
	reason,
	description,
	status,
	priority,
	severity,
	auto_detected,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, $9, NOW())
RETURNING id
`, p.ReporterID, p.ContentType, strings.TrimSpace(p.ContentID), p.TargetUserID,
		p.Reason, strings.TrimSpace(p.Description), p.Priority, p.Severity, p.AutoDetected).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create content flag: %w", err)
	}
	return id, nil
}

// HasActiveByReporter reports whether the reporter already has a pending
// or under-review flag against the same content.
func (r *FlagRepo) HasActiveByReporter(ctx context.Context, reporterID int64, contentType, contentID string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM content_flags
	WHERE reporter_id = $1
	  AND content_type = $2
	  AND content_id = $3
	  AND status IN ('pending', 'under_review')
)
`, reporterID, contentType, strings.TrimSpace(contentID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active flag: %w", err)
	}
	return exists, nil
}

// CountPunitiveResolved counts prior resolved flags against the target
// whose resolution was punitive; feeds repeat-offender escalation.
func (r *FlagRepo) CountPunitiveResolved(ctx context.Context, targetUserID int64) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM content_flags
WHERE target_user_id = $1
  AND status = 'resolved'
  AND resolution IN ('content_removed', 'user_suspended', 'user_banned', 'warning_issued')
`, targetUserID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count punitive resolutions: %w", err)
	}
	return count, nil
}

const flagColumns = `
SELECT f.id,
       f.reporter_id,
       f.content_type,
       f.content_id,
       f.target_user_id,
       f.reason,
       COALESCE(f.description, ''),
       f.status,
       f.priority,
       f.severity,
       f.moderator_id,
       f.moderator_notes,
       f.resolution,
       f.resolved_at,
       f.auto_detected,
       f.created_at
FROM content_flags f
`

func (r *FlagRepo) GetByID(ctx context.Context, flagID int64) (FlagRecord, error) {
	if r.pool == nil {
		return FlagRecord{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, flagColumns+`WHERE f.id = $1 LIMIT 1`, flagID)
	return scanFlag(row)
}

func (r *FlagRepo) Assign(ctx context.Context, flagID, moderatorID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE content_flags
SET status = 'under_review',
    moderator_id = $2
WHERE id = $1
  AND status = 'pending'
`, flagID, moderatorID)
	if err != nil {
		return fmt.Errorf("assign flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFlagNotFound
	}
	return nil
}

func (r *FlagRepo) Resolve(ctx context.Context, tx pgx.Tx, flagID, moderatorID int64, resolution, notes string, at time.Time) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
UPDATE content_flags
SET status = 'resolved',
    moderator_id = $2,
    moderator_notes = NULLIF($4, ''),
    resolution = $3,
    resolved_at = $5
WHERE id = $1
  AND status IN ('pending', 'under_review')
`, flagID, moderatorID, resolution, strings.TrimSpace(notes), at.UTC())
	if err != nil {
		return fmt.Errorf("resolve flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFlagNotFound
	}
	return nil
}

func (r *FlagRepo) Dismiss(ctx context.Context, flagID, moderatorID int64, notes string, at time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE content_flags
SET status = 'dismissed',
    moderator_id = $2,
    moderator_notes = NULLIF($3, ''),
    resolved_at = $4
WHERE id = $1
  AND status IN ('pending', 'under_review')
`, flagID, moderatorID, strings.TrimSpace(notes), at.UTC())
	if err != nil {
		return fmt.Errorf("dismiss flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFlagNotFound
	}
	return nil
}

// Escalate bumps priority/severity of an open flag in place.
func (r *FlagRepo) Escalate(ctx context.Context, flagID int64, priority string, severity int) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE content_flags
SET priority = $2,
    severity = $3
WHERE id = $1
  AND status IN ('pending', 'under_review')
`, flagID, priority, severity); err != nil {
		return fmt.Errorf("escalate flag: %w", err)
	}
	return nil
}

func (r *FlagRepo) ListByStatus(ctx context.Context, status string, limit int) ([]FlagRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, flagColumns+`
WHERE f.status = $1
ORDER BY
	CASE f.priority
		WHEN 'urgent' THEN 0
		WHEN 'high' THEN 1
		WHEN 'medium' THEN 2
		ELSE 3
	END,
	f.created_at ASC
LIMIT $2
`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list flags by status: %w", err)
	}
	defer rows.Close()

	var records []FlagRecord
	for rows.Next() {
		record, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flag rows: %w", err)
	}
	return records, nil
}

func (r *FlagRepo) AddEvidence(ctx context.Context, flagID int64, kind, objectKey, note string) (uuid.UUID, error) {
	if r.pool == nil {
		return uuid.Nil, fmt.Errorf("postgres pool is nil")
	}

	id := uuid.New()
	if _, err := r.pool.Exec(ctx, `
INSERT INTO flag_evidence (id, flag_id, kind, object_key, note, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
`, id, flagID, kind, strings.TrimSpace(objectKey), strings.TrimSpace(note)); err != nil {
		return uuid.Nil, fmt.Errorf("insert flag evidence: %w", err)
	}
	return id, nil
}

func (r *FlagRepo) ListEvidence(ctx context.Context, flagID int64) ([]FlagEvidenceRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, flag_id, kind, object_key, COALESCE(note, ''), created_at
FROM flag_evidence
WHERE flag_id = $1
ORDER BY created_at ASC
`, flagID)
	if err != nil {
		return nil, fmt.Errorf("list flag evidence: %w", err)
	}
	defer rows.Close()

	var records []FlagEvidenceRecord
	for rows.Next() {
		var record FlagEvidenceRecord
		if err := rows.Scan(&record.ID, &record.FlagID, &record.Kind, &record.ObjectKey, &record.Note, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan flag evidence: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flag evidence rows: %w", err)
	}
	return records, nil
}

func (r *FlagRepo) Stats(ctx context.Context) (FlagStats, error) {
	if r.pool == nil {
		return FlagStats{}, fmt.Errorf("postgres pool is nil")
	}

	stats := FlagStats{
		ByStatus: make(map[string]int),
		ByReason: make(map[string]int),
	}

	rows, err := r.pool.Query(ctx, `
SELECT status, COUNT(*)
FROM content_flags
GROUP BY status
`)
	if err != nil {
		return FlagStats{}, fmt.Errorf("aggregate flag statuses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return FlagStats{}, fmt.Errorf("scan status aggregate: %w", err)
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return FlagStats{}, fmt.Errorf("iterate status aggregates: %w", err)
	}

	reasonRows, err := r.pool.Query(ctx, `
SELECT reason, COUNT(*)
FROM content_flags
GROUP BY reason
`)
	if err != nil {
		return FlagStats{}, fmt.Errorf("aggregate flag reasons: %w", err)
	}
	defer reasonRows.Close()
	for reasonRows.Next() {
		var reason string
		var count int
		if err := reasonRows.Scan(&reason, &count); err != nil {
			return FlagStats{}, fmt.Errorf("scan reason aggregate: %w", err)
		}
		stats.ByReason[reason] = count
	}
	if err := reasonRows.Err(); err != nil {
		return FlagStats{}, fmt.Errorf("iterate reason aggregates: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (resolved_at - created_at))), 0)
FROM content_flags
WHERE status = 'resolved'
  AND resolved_at IS NOT NULL
`).Scan(&stats.AvgResolutionSecs)
	if err != nil {
		return FlagStats{}, fmt.Errorf("average flag resolution time: %w", err)
	}

	return stats, nil
}

func scanFlag(row pgx.Row) (FlagRecord, error) {
	var record FlagRecord
	err := row.Scan(
		&record.ID,
		&record.ReporterID,
		&record.ContentType,
		&record.ContentID,
		&record.TargetUserID,
		&record.Reason,
		&record.Description,
		&record.Status,
		&record.Priority,
		&record.Severity,
		&record.ModeratorID,
		&record.ModeratorNotes,
		&record.Resolution,
		&record.ResolvedAt,
		&record.AutoDetected,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FlagRecord{}, ErrFlagNotFound
		}
		return FlagRecord{}, fmt.Errorf("scan content flag: %w", err)
	}
	return record, nil
}
