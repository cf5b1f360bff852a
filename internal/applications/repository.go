package applications

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/college-clubs/backend/internal/models"
)

var (
	// ErrDuplicate is returned when the student already applied to the club.
	// Enforced by the unique (club_id, student_email) index, which closes the
	// race between two concurrent identical submissions.
	ErrDuplicate = errors.New("application already exists")
	// ErrNotFound is returned when no application matches the lookup.
	ErrNotFound = errors.New("application not found")
	// ErrAlreadyDecided is returned when a status update targets an
	// application that is no longer pending.
	ErrAlreadyDecided = errors.New("application already decided")
)

const appColumns = `id, club_id, student_name, student_email, roll_number, reason, status, created_at, updated_at`

// Repository handles application persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an applications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanApplication(row pgx.Row) (*models.Application, error) {
	var a models.Application
	err := row.Scan(&a.ID, &a.ClubID, &a.StudentName, &a.StudentEmail, &a.RollNumber,
		&a.Reason, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Create inserts an application in pending state.
func (r *Repository) Create(ctx context.Context, a *models.Application) error {
	const q = `INSERT INTO applications (club_id, student_name, student_email, roll_number, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, a.ClubID, a.StudentName, a.StudentEmail, a.RollNumber, a.Reason).
		Scan(&a.ID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID returns an application by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return scanApplication(r.pool.QueryRow(ctx, `SELECT `+appColumns+` FROM applications WHERE id = $1`, id))
}

// ListByClub returns a club's applications newest-first.
func (r *Repository) ListByClub(ctx context.Context, clubID uuid.UUID) ([]models.Application, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+appColumns+` FROM applications WHERE club_id = $1 ORDER BY created_at DESC`, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// UpdateStatus persists a status transition. The pending guard lives in the
// statement itself so two concurrent decisions cannot both win; the loser
// matches zero rows and gets ErrAlreadyDecided.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) (*models.Application, error) {
	const q = `UPDATE applications SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending' RETURNING ` + appColumns
	a, err := scanApplication(r.pool.QueryRow(ctx, q, id, string(status)))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAlreadyDecided
	}
	return a, err
}
