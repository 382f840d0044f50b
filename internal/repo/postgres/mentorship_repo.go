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

var (
	ErrMentorshipNotFound = errors.New("mentorship not found")
	ErrSessionNotFound    = errors.New("session not found")
)

type MentorshipRecord struct {
	ID             int64
	MentorID       int64
	MenteeID       int64
	FocusAreas     []string
	LearningGoals  string
	RequestMessage string
	Status         string
	SessionCount   int
	CreatedAt      time.Time
	RespondedAt    *time.Time
	StartDate      *time.Time
}

type SessionRecord struct {
	ID             int64
	MentorshipID   int64
	MentorID       int64
	MenteeID       int64
	ScheduledAt    time.Time
	DurationMin    int
	Status         string
	Notes          string
	MentorFeedback *string
	MentorRating   *int
	MenteeFeedback *string
	MenteeRating   *int
	CreatedAt      time.Time
}

type MentorshipRepo struct {
	pool *pgxpool.Pool
}

func NewMentorshipRepo(pool *pgxpool.Pool) *MentorshipRepo {
	return &MentorshipRepo{pool: pool}
}

const mentorshipColumns = `
SELECT m.id,
       m.mentor_id,
       m.mentee_id,
       m.focus_areas,
       COALESCE(m.learning_goals, ''),
       COALESCE(m.request_message, ''),
       m.status,
       m.session_count,
       m.created_at,
       m.responded_at,
       m.start_date
FROM mentorships m
`

func (r *MentorshipRepo) Create(ctx context.Context, tx pgx.Tx, mentorID, menteeID int64, focusAreas []string, learningGoals, requestMessage string) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if mentorID <= 0 || menteeID <= 0 || len(focusAreas) == 0 {
		return 0, fmt.Errorf("invalid mentorship payload")
	}

	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO mentorships (
	mentor_id,
	mentee_id,
	focus_areas,
	learning_goals,
	request_message,
	status,
	session_count,
	created_at
) VALUES ($1, $2, $3, $4, $5, 'pending', 0, NOW())
RETURNING id
`, mentorID, menteeID, focusAreas, strings.TrimSpace(learningGoals), strings.TrimSpace(requestMessage)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create mentorship: %w", err)
	}
	return id, nil
}

func (r *MentorshipRepo) GetByID(ctx context.Context, mentorshipID int64) (MentorshipRecord, error) {
	if r.pool == nil {
		return MentorshipRecord{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, mentorshipColumns+`WHERE m.id = $1 LIMIT 1`, mentorshipID)
	return scanMentorship(row)
}

// GetByIDForUpdate locks the mentorship row for the accept/decline
// transaction.
func (r *MentorshipRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, mentorshipID int64) (MentorshipRecord, error) {
	if tx == nil {
		return MentorshipRecord{}, fmt.Errorf("transaction is required")
	}

	row := tx.QueryRow(ctx, mentorshipColumns+`WHERE m.id = $1 FOR UPDATE`, mentorshipID)
	return scanMentorship(row)
}

// HasActivePair reports whether a pending or active mentorship already
// links the mentor and mentee.
func (r *MentorshipRepo) HasActivePair(ctx context.Context, mentorID, menteeID int64) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM mentorships
	WHERE mentor_id = $1
	  AND mentee_id = $2
	  AND status IN ('pending', 'active')
)
`, mentorID, menteeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active mentorship pair: %w", err)
	}
	return exists, nil
}

func (r *MentorshipRepo) CountActiveForMentor(ctx context.Context, mentorID int64) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM mentorships
WHERE mentor_id = $1
  AND status = 'active'
`, mentorID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active mentorships: %w", err)
	}
	return count, nil
}

// CountActiveForMentorTx re-checks capacity inside the accept transaction.
func (r *MentorshipRepo) CountActiveForMentorTx(ctx context.Context, tx pgx.Tx, mentorID int64) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	var count int
	err := tx.QueryRow(ctx, `
SELECT COUNT(*)
FROM mentorships
WHERE mentor_id = $1
  AND status = 'active'
`, mentorID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active mentorships in tx: %w", err)
	}
	return count, nil
}

func (r *MentorshipRepo) MarkActive(ctx context.Context, tx pgx.Tx, mentorshipID int64, at time.Time) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
UPDATE mentorships
SET status = 'active',
    responded_at = $2,
    start_date = $2
WHERE id = $1
  AND status = 'pending'
`, mentorshipID, at.UTC())
	if err != nil {
		return fmt.Errorf("mark mentorship active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMentorshipNotFound
	}
	return nil
}

func (r *MentorshipRepo) MarkCancelled(ctx context.Context, tx pgx.Tx, mentorshipID int64, at time.Time) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
UPDATE mentorships
SET status = 'cancelled',
    responded_at = $2
WHERE id = $1
  AND status = 'pending'
`, mentorshipID, at.UTC())
	if err != nil {
		return fmt.Errorf("mark mentorship cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMentorshipNotFound
	}
	return nil
}

func (r *MentorshipRepo) MarkCompleted(ctx context.Context, mentorshipID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE mentorships
SET status = 'completed'
WHERE id = $1
  AND status = 'active'
`, mentorshipID)
	if err != nil {
		return fmt.Errorf("mark mentorship completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMentorshipNotFound
	}
	return nil
}

// AddSession appends a session and bumps the denormalized counter in the
// same transaction.
func (r *MentorshipRepo) AddSession(ctx context.Context, tx pgx.Tx, mentorshipID int64, scheduledAt time.Time, durationMin int, notes string) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if durationMin <= 0 {
		durationMin = 60
	}

	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO mentorship_sessions (
	mentorship_id,
	scheduled_at,
	duration_minutes,
	status,
	notes,
	created_at
) VALUES ($1, $2, $3, 'scheduled', $4, NOW())
RETURNING id
`, mentorshipID, scheduledAt.UTC(), durationMin, strings.TrimSpace(notes)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}

	if _, err := tx.Exec(ctx, `
UPDATE mentorships
SET session_count = session_count + 1
WHERE id = $1
`, mentorshipID); err != nil {
		return 0, fmt.Errorf("increment session count: %w", err)
	}

	return id, nil
}

const sessionColumns = `
SELECT s.id,
       s.mentorship_id,
       m.mentor_id,
       m.mentee_id,
       s.scheduled_at,
       s.duration_minutes,
       s.status,
       COALESCE(s.notes, ''),
       s.mentor_feedback,
       s.mentor_rating,
       s.mentee_feedback,
       s.mentee_rating,
       s.created_at
FROM mentorship_sessions s
JOIN mentorships m ON m.id = s.mentorship_id
`

func (r *MentorshipRepo) GetSessionByID(ctx context.Context, sessionID int64) (SessionRecord, error) {
	if r.pool == nil {
		return SessionRecord{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, sessionColumns+`WHERE s.id = $1 LIMIT 1`, sessionID)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SessionRecord{}, ErrSessionNotFound
		}
		return SessionRecord{}, err
	}
	return session, nil
}

func (r *MentorshipRepo) UpdateSessionStatus(ctx context.Context, sessionID int64, status string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE mentorship_sessions
SET status = $2
WHERE id = $1
`, sessionID, status)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *MentorshipRepo) SetMentorFeedback(ctx context.Context, sessionID int64, feedback string, rating int) error {
	return r.setFeedback(ctx, sessionID, "mentor_feedback", "mentor_rating", feedback, rating)
}

func (r *MentorshipRepo) SetMenteeFeedback(ctx context.Context, sessionID int64, feedback string, rating int) error {
	return r.setFeedback(ctx, sessionID, "mentee_feedback", "mentee_rating", feedback, rating)
}

func (r *MentorshipRepo) setFeedback(ctx context.Context, sessionID int64, feedbackCol, ratingCol, feedback string, rating int) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	query := fmt.Sprintf(`
UPDATE mentorship_sessions
SET %s = $2,
    %s = $3
WHERE id = $1
`, feedbackCol, ratingCol)

	tag, err := r.pool.Exec(ctx, query, sessionID, strings.TrimSpace(feedback), rating)
	if err != nil {
		return fmt.Errorf("set session feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *MentorshipRepo) ListPendingForMentor(ctx context.Context, mentorID int64) ([]MentorshipRecord, error) {
	return r.list(ctx, mentorshipColumns+`
WHERE m.mentor_id = $1
  AND m.status = 'pending'
ORDER BY m.created_at ASC
`, mentorID)
}

func (r *MentorshipRepo) ListActiveForUser(ctx context.Context, userID int64) ([]MentorshipRecord, error) {
	return r.list(ctx, mentorshipColumns+`
WHERE (m.mentor_id = $1 OR m.mentee_id = $1)
  AND m.status = 'active'
ORDER BY m.start_date DESC NULLS LAST
`, userID)
}

func (r *MentorshipRepo) ListAllForUser(ctx context.Context, userID int64) ([]MentorshipRecord, error) {
	return r.list(ctx, mentorshipColumns+`
WHERE m.mentor_id = $1 OR m.mentee_id = $1
ORDER BY m.created_at DESC
`, userID)
}

func (r *MentorshipRepo) list(ctx context.Context, query string, args ...any) ([]MentorshipRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mentorships: %w", err)
	}
	defer rows.Close()

	var records []MentorshipRecord
	for rows.Next() {
		record, err := scanMentorship(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mentorship rows: %w", err)
	}
	return records, nil
}

// ListUpcomingSessions returns future scheduled sessions across every
// mentorship the user participates in, ascending by date.
func (r *MentorshipRepo) ListUpcomingSessions(ctx context.Context, userID int64, after time.Time) ([]SessionRecord, error) {
	return r.listSessions(ctx, sessionColumns+`
WHERE (m.mentor_id = $1 OR m.mentee_id = $1)
  AND s.status = 'scheduled'
  AND s.scheduled_at >= $2
ORDER BY s.scheduled_at ASC
`, userID, after.UTC())
}

// ListSessionHistory returns every session for the user, newest first.
func (r *MentorshipRepo) ListSessionHistory(ctx context.Context, userID int64) ([]SessionRecord, error) {
	return r.listSessions(ctx, sessionColumns+`
WHERE m.mentor_id = $1 OR m.mentee_id = $1
ORDER BY s.scheduled_at DESC
`, userID)
}

func (r *MentorshipRepo) listSessions(ctx context.Context, query string, args ...any) ([]SessionRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionRecord
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return sessions, nil
}

func scanMentorship(row pgx.Row) (MentorshipRecord, error) {
	var record MentorshipRecord
	err := row.Scan(
		&record.ID,
		&record.MentorID,
		&record.MenteeID,
		&record.FocusAreas,
		&record.LearningGoals,
		&record.RequestMessage,
		&record.Status,
		&record.SessionCount,
		&record.CreatedAt,
		&record.RespondedAt,
		&record.StartDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MentorshipRecord{}, ErrMentorshipNotFound
		}
		return MentorshipRecord{}, fmt.Errorf("scan mentorship: %w", err)
	}
	return record, nil
}

func scanSession(row pgx.Row) (SessionRecord, error) {
	var session SessionRecord
	err := row.Scan(
		&session.ID,
		&session.MentorshipID,
		&session.MentorID,
		&session.MenteeID,
		&session.ScheduledAt,
		&session.DurationMin,
		&session.Status,
		&session.Notes,
		&session.MentorFeedback,
		&session.MentorRating,
		&session.MenteeFeedback,
		&session.MenteeRating,
		&session.CreatedAt,
	)
	if err != nil {
		return SessionRecord{}, err
	}
	return session, nil
}
