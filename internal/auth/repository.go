package auth

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
	// ErrDuplicateEmail is returned when an account with the email already exists.
	// Backed by the unique index, so concurrent registrations cannot slip past
	// the handler's pre-check.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = errors.New("account not found")
)

const userColumns = `id, email, password_hash, name, role, must_change_password,
	description, logo_url, banner_url, created_at, updated_at`

// Repository handles account persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.Role, &u.MustChangePassword,
		&u.Description, &u.LogoURL, &u.BannerURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID returns an account by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns an account by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// Create inserts a new account. mustChange is false only for the seeded super admin.
func (r *Repository) Create(ctx context.Context, email, passwordHash, name string, role models.Role, mustChange bool) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, name, role, must_change_password)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, name, string(role), mustChange))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

// UpdatePassword replaces the hash and clears must_change_password in a single
// statement, so the flag can never be observed cleared against a stale hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $2, must_change_password = FALSE, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile updates the display fields of an account. Empty strings leave
// the stored value untouched.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, description, logoURL, bannerURL string) (*models.User, error) {
	const q = `UPDATE users SET
		description = COALESCE(NULLIF($2, ''), description),
		logo_url = COALESCE(NULLIF($3, ''), logo_url),
		banner_url = COALESCE(NULLIF($4, ''), banner_url),
		updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, id, description, logoURL, bannerURL))
}

// ListClubs returns all club accounts (role = admin) without credentials.
func (r *Repository) ListClubs(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role = 'admin' ORDER BY name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u.ToPublic())
	}
	return list, rows.Err()
}

// Delete removes an account. Dependent posts and applications go with it via FK cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
