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

	"github.com/skillbridge/backend/internal/domain/rules"
)

var ErrDisputeNotFound = errors.New("dispute not found")

type DisputeRecord struct {
	ID                 int64
	DisputeID          string
	Type               string
	Status             string
	Priority           string
	InitiatorID        int64
	RespondentID       int64
	MediatorID         *int64
	RelatedEntityType  string
	RelatedEntityID    string
	Title              string
	Description        string
	ResponseDeadline   time.Time
	MediationDeadline  time.Time
	ResolutionDeadline time.Time
	ResolutionType     *string
	ResolutionDesc     *string
	Compensation       *float64
	ResolvedBy         *int64
	ResolvedAt         *time.Time
	CreatedAt          time.Time
}

type TimelineEntry struct {
	ID        int64
	DisputeID int64
	Action    string
	ActorID   int64
	Details   string
	CreatedAt time.Time
}

type DisputeEvidenceRecord struct {
	ID          uuid.UUID
	DisputeID   int64
	SubmittedBy int64
	Kind        string
	ObjectKey   string
	Note        string
	CreatedAt   time.Time
}

type DisputeMessageRecord struct {
	ID        int64
	DisputeID int64
	SenderID  int64
	Message   string
	IsPrivate bool
	CreatedAt time.Time
}

type FollowUpAction struct {
	ID          int64
	DisputeID   int64
	Description string
	AssignedTo  int64
	Deadline    time.Time
	Completed   bool
}

type DisputeStats struct {
	ByStatus          map[string]int
	ByType            map[string]int
	AvgResolutionSecs float64
}

type DisputeRepo struct {
	pool *pgxpool.Pool
}

func NewDisputeRepo(pool *pgxpool.Pool) *DisputeRepo {
	return &DisputeRepo{pool: pool}
}

type CreateDisputeParams struct {
	Type              string
	Priority          string
	InitiatorID       int64
	RespondentID      int64
	RelatedEntityType string
	RelatedEntityID   string
	Title             string
	Description       string
	CreatedAt         time.Time
}

// Create inserts the dispute with its generated dispute id and computed
// deadlines, plus the initial timeline entry, in one transaction.
func (r *DisputeRepo) Create(ctx context.Context, tx pgx.Tx, p CreateDisputeParams) (int64, string, error) {
	if tx == nil {
		return 0, "", fmt.Errorf("transaction is required")
	}
	if p.InitiatorID <= 0 || p.RespondentID <= 0 || strings.TrimSpace(p.Title) == "" {
		return 0, "", fmt.Errorf("invalid dispute payload")
	}

	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval('dispute_seq')`).Scan(&seq); err != nil {
		return 0, "", fmt.Errorf("next dispute sequence: %w", err)
	}

	createdAt := p.CreatedAt.UTC()
	disputeID := rules.DisputeID(createdAt, seq)
	deadlines := rules.DisputeDeadlines(createdAt)

	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO disputes (
	dispute_id,
	type,
	status,
	priority,
	initiator_id,
	respondent_id,
	related_entity_type,
	related_entity_id,
	title,
	description,
	response_deadline,
	mediation_deadline,
	resolution_deadline,
	created_at
) VALUES ($1, $2, 'open', $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id
`, disputeID, p.Type, p.Priority, p.InitiatorID, p.RespondentID,
		p.RelatedEntityType, strings.TrimSpace(p.RelatedEntityID),
		strings.TrimSpace(p.Title), strings.TrimSpace(p.Description),
		deadlines.Response, deadlines.Mediation, deadlines.Resolution, createdAt).Scan(&id)
	if err != nil {
		return 0, "", fmt.Errorf("create dispute: %w", err)
	}

	if err := r.AppendTimeline(ctx, tx, id, "dispute_created", p.InitiatorID, ""); err != nil {
		return 0, "", err
	}

	return id, disputeID, nil
}

// AppendTimeline adds an audit entry; the timeline is append-only and
// every state-changing operation records one.
func (r *DisputeRepo) AppendTimeline(ctx context.Context, tx pgx.Tx, disputeID int64, action string, actorID int64, details string) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO dispute_timeline (dispute_id, action, actor_id, details, created_at)
VALUES ($1, $2, $3, $4, NOW())
`, disputeID, action, actorID, strings.TrimSpace(details)); err != nil {
		return fmt.Errorf("append dispute timeline: %w", err)
	}
	return nil
}

const disputeColumns = `
SELECT d.id,
       d.dispute_id,
       d.type,
       d.status,
       d.priority,
       d.initiator_id,
       d.respondent_id,
       d.mediator_id,
       d.related_entity_type,
       COALESCE(d.related_entity_id, ''),
       d.title,
       COALESCE(d.description, ''),
       d.response_deadline,
       d.mediation_deadline,
       d.resolution_deadline,
       d.resolution_type,
       d.resolution_description,
       d.compensation_amount,
       d.resolved_by,
       d.resolved_at,
       d.created_at
FROM disputes d
`

func (r *DisputeRepo) GetByID(ctx context.Context, id int64) (DisputeRecord, error) {
	if r.pool == nil {
		return DisputeRecord{}, fmt.Errorf("postgres pool is nil")
	}
	row := r.pool.QueryRow(ctx, disputeColumns+`WHERE d.id = $1 LIMIT 1`, id)
	return scanDispute(row)
}

func (r *DisputeRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (DisputeRecord, error) {
	if tx == nil {
		return DisputeRecord{}, fmt.Errorf("transaction is required")
	}
	row := tx.QueryRow(ctx, disputeColumns+`WHERE d.id = $1 FOR UPDATE`, id)
	return scanDispute(row)
}

func (r *DisputeRepo) SetMediator(ctx context.Context, tx pgx.Tx, id, mediatorID int64) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
UPDATE disputes
SET mediator_id = $2,
    status = 'mediation'
WHERE id = $1
  AND status IN ('open', 'under_review')
`, id, mediatorID)
	if err != nil {
		return fmt.Errorf("set dispute mediator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDisputeNotFound
	}
	return nil
}

// SetUnderReview moves an open dispute into moderator review. A dispute
// that already left the open state no longer matches the guard.
func (r *DisputeRepo) SetUnderReview(ctx context.Context, tx pgx.Tx, id int64) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
UPDATE disputes
SET status = 'under_review'
WHERE id = $1
  AND status = 'open'
`, id)
	if err != nil {
		return fmt.Errorf("set dispute under review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDisputeNotFound
	}
	return nil
}

type ResolveDisputeParams struct {
	ResolutionType string
	Description    string
	Compensation   *float64
	ResolvedBy     int64
	ResolvedAt     time.Time
}

// SetResolution writes the resolution exactly once; a second call finds
// no matching row.
func (r *DisputeRepo) SetResolution(ctx context.Context, tx pgx.Tx, id int64, p ResolveDisputeParams) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
UPDATE disputes
SET status = 'resolved',
    resolution_type = $2,
    resolution_description = $3,
    compensation_amount = $4,
    resolved_by = $5,
    resolved_at = $6
WHERE id = $1
  AND status IN ('open', 'under_review', 'mediation')
  AND resolution_type IS NULL
`, id, p.ResolutionType, strings.TrimSpace(p.Description), p.Compensation, p.ResolvedBy, p.ResolvedAt.UTC())
	if err != nil {
		return fmt.Errorf("set dispute resolution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDisputeNotFound
	}
	return nil
}

func (r *DisputeRepo) Close(ctx context.Context, tx pgx.Tx, id int64) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
UPDATE disputes
SET status = 'closed'
WHERE id = $1
  AND status IN ('open', 'under_review', 'mediation')
`, id)
	if err != nil {
		return fmt.Errorf("close dispute: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDisputeNotFound
	}
	return nil
}

func (r *DisputeRepo) EscalatePriority(ctx context.Context, tx pgx.Tx, id int64, priority string) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
UPDATE disputes
SET priority = $2
WHERE id = $1
`, id, priority); err != nil {
		return fmt.Errorf("escalate dispute priority: %w", err)
	}
	return nil
}

func (r *DisputeRepo) AddEvidence(ctx context.Context, tx pgx.Tx, disputeID, submittedBy int64, kind, objectKey, note string) (uuid.UUID, error) {
	if tx == nil {
		return uuid.Nil, fmt.Errorf("transaction is required")
	}

	id := uuid.New()
	if _, err := tx.Exec(ctx, `
INSERT INTO dispute_evidence (id, dispute_id, submitted_by, kind, object_key, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
`, id, disputeID, submittedBy, kind, strings.TrimSpace(objectKey), strings.TrimSpace(note)); err != nil {
		return uuid.Nil, fmt.Errorf("insert dispute evidence: %w", err)
	}
	return id, nil
}

func (r *DisputeRepo) AddMessage(ctx context.Context, disputeID, senderID int64, message string, isPrivate bool) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(message) == "" {
		return 0, fmt.Errorf("dispute message is required")
	}

	var id int64
	err := r.pool.QueryRow(ctx, `
INSERT INTO dispute_messages (dispute_id, sender_id, message, is_private, created_at)
VALUES ($1, $2, $3, $4, NOW())
RETURNING id
`, disputeID, senderID, strings.TrimSpace(message), isPrivate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert dispute message: %w", err)
	}
	return id, nil
}

func (r *DisputeRepo) AddFollowUpAction(ctx context.Context, tx pgx.Tx, disputeID int64, description string, assignedTo int64, deadline time.Time) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO dispute_actions (dispute_id, description, assigned_to, deadline, completed, created_at)
VALUES ($1, $2, $3, $4, FALSE, NOW())
`, disputeID, strings.TrimSpace(description), assignedTo, deadline.UTC()); err != nil {
		return fmt.Errorf("insert follow-up action: %w", err)
	}
	return nil
}

func (r *DisputeRepo) ListTimeline(ctx context.Context, disputeID int64) ([]TimelineEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, dispute_id, action, actor_id, COALESCE(details, ''), created_at
FROM dispute_timeline
WHERE dispute_id = $1
ORDER BY created_at ASC, id ASC
`, disputeID)
	if err != nil {
		return nil, fmt.Errorf("list dispute timeline: %w", err)
	}
	defer rows.Close()

	var entries []TimelineEntry
	for rows.Next() {
		var entry TimelineEntry
		if err := rows.Scan(&entry.ID, &entry.DisputeID, &entry.Action, &entry.ActorID, &entry.Details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timeline entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline rows: %w", err)
	}
	return entries, nil
}

func (r *DisputeRepo) ListMessages(ctx context.Context, disputeID int64, includePrivate bool) ([]DisputeMessageRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	query := `
SELECT id, dispute_id, sender_id, message, is_private, created_at
FROM dispute_messages
WHERE dispute_id = $1
`
	if !includePrivate {
		query += `  AND NOT is_private
`
	}
	query += `ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, disputeID)
	if err != nil {
		return nil, fmt.Errorf("list dispute messages: %w", err)
	}
	defer rows.Close()

	var records []DisputeMessageRecord
	for rows.Next() {
		var record DisputeMessageRecord
		if err := rows.Scan(&record.ID, &record.DisputeID, &record.SenderID, &record.Message, &record.IsPrivate, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dispute message: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispute message rows: %w", err)
	}
	return records, nil
}

func (r *DisputeRepo) ListEvidence(ctx context.Context, disputeID int64) ([]DisputeEvidenceRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, dispute_id, submitted_by, kind, object_key, COALESCE(note, ''), created_at
FROM dispute_evidence
WHERE dispute_id = $1
ORDER BY created_at ASC
`, disputeID)
	if err != nil {
		return nil, fmt.Errorf("list dispute evidence: %w", err)
	}
	defer rows.Close()

	var records []DisputeEvidenceRecord
	for rows.Next() {
		var record DisputeEvidenceRecord
		if err := rows.Scan(&record.ID, &record.DisputeID, &record.SubmittedBy, &record.Kind, &record.ObjectKey, &record.Note, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dispute evidence: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispute evidence rows: %w", err)
	}
	return records, nil
}

func (r *DisputeRepo) ListForUser(ctx context.Context, userID int64) ([]DisputeRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, disputeColumns+`
WHERE d.initiator_id = $1 OR d.respondent_id = $1 OR d.mediator_id = $1
ORDER BY d.created_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list disputes for user: %w", err)
	}
	defer rows.Close()

	var records []DisputeRecord
	for rows.Next() {
		record, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispute rows: %w", err)
	}
	return records, nil
}

// ListOverdue finds unresolved disputes whose named deadline has passed;
// used by the deadline sweeper.
func (r *DisputeRepo) ListOverdue(ctx context.Context, now time.Time, limit int) ([]DisputeRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, disputeColumns+`
WHERE d.status IN ('open', 'under_review', 'mediation')
  AND (
	(d.status = 'open' AND d.response_deadline < $1)
	OR (d.status = 'under_review' AND d.mediation_deadline < $1)
	OR (d.status = 'mediation' AND d.resolution_deadline < $1)
  )
ORDER BY d.created_at ASC
LIMIT $2
`, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue disputes: %w", err)
	}
	defer rows.Close()

	var records []DisputeRecord
	for rows.Next() {
		record, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overdue dispute rows: %w", err)
	}
	return records, nil
}

func (r *DisputeRepo) Stats(ctx context.Context) (DisputeStats, error) {
	if r.pool == nil {
		return DisputeStats{}, fmt.Errorf("postgres pool is nil")
	}

	stats := DisputeStats{
		ByStatus: make(map[string]int),
		ByType:   make(map[string]int),
	}

	rows, err := r.pool.Query(ctx, `
SELECT status, COUNT(*)
FROM disputes
GROUP BY status
`)
	if err != nil {
		return DisputeStats{}, fmt.Errorf("aggregate dispute statuses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return DisputeStats{}, fmt.Errorf("scan dispute status aggregate: %w", err)
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return DisputeStats{}, fmt.Errorf("iterate dispute status aggregates: %w", err)
	}

	typeRows, err := r.pool.Query(ctx, `
SELECT type, COUNT(*)
FROM disputes
GROUP BY type
`)
	if err != nil {
		return DisputeStats{}, fmt.Errorf("aggregate dispute types: %w", err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var disputeType string
		var count int
		if err := typeRows.Scan(&disputeType, &count); err != nil {
			return DisputeStats{}, fmt.Errorf("scan dispute type aggregate: %w", err)
		}
		stats.ByType[disputeType] = count
	}
	if err := typeRows.Err(); err != nil {
		return DisputeStats{}, fmt.Errorf("iterate dispute type aggregates: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (resolved_at - created_at))), 0)
FROM disputes
WHERE status = 'resolved'
  AND resolved_at IS NOT NULL
`).Scan(&stats.AvgResolutionSecs)
	if err != nil {
		return DisputeStats{}, fmt.Errorf("average dispute resolution time: %w", err)
	}

	return stats, nil
}

func scanDispute(row pgx.Row) (DisputeRecord, error) {
	var record DisputeRecord
	err := row.Scan(
		&record.ID,
		&record.DisputeID,
		&record.Type,
		&record.Status,
		&record.Priority,
		&record.InitiatorID,
		&record.RespondentID,
		&record.MediatorID,
		&record.RelatedEntityType,
		&record.RelatedEntityID,
		&record.Title,
		&record.Description,
		&record.ResponseDeadline,
		&record.MediationDeadline,
		&record.ResolutionDeadline,
		&record.ResolutionType,
		&record.ResolutionDesc,
		&record.Compensation,
		&record.ResolvedBy,
		&record.ResolvedAt,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DisputeRecord{}, ErrDisputeNotFound
		}
		return DisputeRecord{}, fmt.Errorf("scan dispute: %w", err)
	}
	return record, nil
}
