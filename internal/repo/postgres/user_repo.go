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

var ErrUserNotFound = errors.New("user not found")

type UserRecord struct {
	ID             int64
	Email          string
	PasswordHash   string
	Role           string
	DisplayName    string
	IsActive       bool
	IsBanned       bool
	SuspendedUntil *time.Time
	CreatedAt      time.Time
}

// MentorRecord joins a mentor-role user with its mentor profile fields.
type MentorRecord struct {
	UserID          int64
	DisplayName     string
	ExpertiseAreas  []string
	ExperienceYears int
	Capacity        int
	Rating          float64
	TotalMentees    int
	IsVerified      bool
}

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `
SELECT u.id,
       u.email,
       u.password_hash,
       u.role,
       COALESCE(u.display_name, ''),
       u.is_active,
       u.is_banned,
       u.suspended_until,
       u.created_at
FROM users u
`

func (r *UserRepo) GetByID(ctx context.Context, userID int64) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return UserRecord{}, ErrUserNotFound
	}
	return r.scanOne(ctx, userColumns+`WHERE u.id = $1 LIMIT 1`, userID)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	clean := strings.ToLower(strings.TrimSpace(email))
	if clean == "" {
		return UserRecord{}, ErrUserNotFound
	}
	return r.scanOne(ctx, userColumns+`WHERE LOWER(u.email) = $1 LIMIT 1`, clean)
}

func (r *UserRepo) scanOne(ctx context.Context, query string, arg any) (UserRecord, error) {
	var user UserRecord
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.DisplayName,
		&user.IsActive,
		&user.IsBanned,
		&user.SuspendedUntil,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// GetMentor returns the mentor profile for an active mentor-role user.
func (r *UserRepo) GetMentor(ctx context.Context, userID int64) (MentorRecord, error) {
	if r.pool == nil {
		return MentorRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var mentor MentorRecord
	err := r.pool.QueryRow(ctx, `
SELECT u.id,
       COALESCE(u.display_name, ''),
       COALESCE(mp.expertise_areas, '{}'::text[]),
       COALESCE(mp.experience_years, 0),
       COALESCE(mp.mentoring_capacity, 0),
       COALESCE(mp.rating, 0),
       COALESCE(mp.total_mentees, 0),
       COALESCE(mp.is_verified, FALSE)
FROM users u
JOIN mentor_profiles mp ON mp.user_id = u.id
WHERE u.id = $1
  AND u.role = 'mentor'
  AND u.is_active
LIMIT 1
`, userID).Scan(
		&mentor.UserID,
		&mentor.DisplayName,
		&mentor.ExpertiseAreas,
		&mentor.ExperienceYears,
		&mentor.Capacity,
		&mentor.Rating,
		&mentor.TotalMentees,
		&mentor.IsVerified,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MentorRecord{}, ErrUserNotFound
		}
		return MentorRecord{}, fmt.Errorf("lookup mentor: %w", err)
	}
	return mentor, nil
}

// ListActiveMentors returns every active, verified mentor with profile
// fields needed for match scoring.
func (r *UserRepo) ListActiveMentors(ctx context.Context) ([]MentorRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT u.id,
       COALESCE(u.display_name, ''),
       COALESCE(mp.expertise_areas, '{}'::text[]),
       COALESCE(mp.experience_years, 0),
       COALESCE(mp.mentoring_capacity, 0),
       COALESCE(mp.rating, 0),
       COALESCE(mp.total_mentees, 0),
       COALESCE(mp.is_verified, FALSE)
FROM users u
JOIN mentor_profiles mp ON mp.user_id = u.id
WHERE u.role = 'mentor'
  AND u.is_active
  AND NOT u.is_banned
  AND mp.is_verified
ORDER BY u.id
`)
	if err != nil {
		return nil, fmt.Errorf("list active mentors: %w", err)
	}
	defer rows.Close()

	var mentors []MentorRecord
	for rows.Next() {
		var mentor MentorRecord
		if err := rows.Scan(
			&mentor.UserID,
			&mentor.DisplayName,
			&mentor.ExpertiseAreas,
			&mentor.ExperienceYears,
			&mentor.Capacity,
			&mentor.Rating,
			&mentor.TotalMentees,
			&mentor.IsVerified,
		); err != nil {
			return nil, fmt.Errorf("scan mentor row: %w", err)
		}
		mentors = append(mentors, mentor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mentor rows: %w", err)
	}
	return mentors, nil
}

// IncrementTotalMentees runs inside the accept transaction so the counter
// moves together with the status flip.
func (r *UserRepo) IncrementTotalMentees(ctx context.Context, tx pgx.Tx, mentorID int64, delta int) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if mentorID <= 0 {
		return fmt.Errorf("invalid mentor id")
	}

	if _, err := tx.Exec(ctx, `
UPDATE mentor_profiles
SET total_mentees = GREATEST(total_mentees + $2, 0)
WHERE user_id = $1
`, mentorID, delta); err != nil {
		return fmt.Errorf("increment total mentees: %w", err)
	}
	return nil
}

func (r *UserRepo) AddWarning(ctx context.Context, tx pgx.Tx, userID, issuedBy int64, reason string) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO user_warnings (user_id, reason, issued_by, created_at)
VALUES ($1, $2, $3, NOW())
`, userID, strings.TrimSpace(reason), issuedBy); err != nil {
		return fmt.Errorf("insert user warning: %w", err)
	}
	return nil
}

func (r *UserRepo) Suspend(ctx context.Context, tx pgx.Tx, userID int64, until time.Time) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
UPDATE users
SET is_active = FALSE,
    suspended_until = $2
WHERE id = $1
`, userID, until.UTC()); err != nil {
		return fmt.Errorf("suspend user: %w", err)
	}
	return nil
}

func (r *UserRepo) Ban(ctx context.Context, tx pgx.Tx, userID int64) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
UPDATE users
SET is_active = FALSE,
    is_banned = TRUE,
    suspended_until = NULL
WHERE id = $1
`, userID); err != nil {
		return fmt.Errorf("ban user: %w", err)
	}
	return nil
}

// ListAdminIDs feeds moderator notification fan-out.
func (r *UserRepo) ListAdminIDs(ctx context.Context) ([]int64, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id
FROM users
WHERE role = 'admin'
  AND is_active
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("list admin ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan admin id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin ids: %w", err)
	}
	return ids, nil
}
