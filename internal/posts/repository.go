package posts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/college-clubs/backend/internal/models"
)

// ErrNotFound is returned when no post matches the lookup.
var ErrNotFound = errors.New("post not found")

// Repository handles post persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a posts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a post. Callers must have completed the media upload first.
func (r *Repository) Create(ctx context.Context, p *models.Post) error {
	const q = `INSERT INTO posts (club_id, caption, media_url, media_key, media_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, p.ClubID, p.Caption, p.MediaURL, p.MediaKey, string(p.MediaKind)).
		Scan(&p.ID, &p.CreatedAt)
}

// GetByID returns a post by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	const q = `SELECT id, club_id, caption, media_url, media_key, media_type, created_at
		FROM posts WHERE id = $1`
	var p models.Post
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.ClubID, &p.Caption, &p.MediaURL, &p.MediaKey, &p.MediaKind, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Feed returns all posts newest-first, joined with the owning club's display fields.
func (r *Repository) Feed(ctx context.Context) ([]models.FeedPost, error) {
	const q = `SELECT p.id, p.club_id, p.caption, p.media_url, p.media_key, p.media_type, p.created_at,
		u.name, u.logo_url
		FROM posts p JOIN users u ON u.id = p.club_id
		ORDER BY p.created_at DESC`
	return r.queryFeed(ctx, q)
}

// FeedByClub returns one club's posts newest-first with club display fields.
func (r *Repository) FeedByClub(ctx context.Context, clubID uuid.UUID) ([]models.FeedPost, error) {
	const q = `SELECT p.id, p.club_id, p.caption, p.media_url, p.media_key, p.media_type, p.created_at,
		u.name, u.logo_url
		FROM posts p JOIN users u ON u.id = p.club_id
		WHERE p.club_id = $1
		ORDER BY p.created_at DESC`
	return r.queryFeed(ctx, q, clubID)
}

func (r *Repository) queryFeed(ctx context.Context, q string, args ...any) ([]models.FeedPost, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.FeedPost
	for rows.Next() {
		var fp models.FeedPost
		if err := rows.Scan(&fp.ID, &fp.ClubID, &fp.Caption, &fp.MediaURL, &fp.MediaKey, &fp.MediaKind,
			&fp.CreatedAt, &fp.ClubName, &fp.ClubLogo); err != nil {
			return nil, err
		}
		list = append(list, fp)
	}
	return list, rows.Err()
}

// ListByClub returns a club's own posts newest-first (no join).
func (r *Repository) ListByClub(ctx context.Context, clubID uuid.UUID) ([]models.Post, error) {
	const q = `SELECT id, club_id, caption, media_url, media_key, media_type, created_at
		FROM posts WHERE club_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.ClubID, &p.Caption, &p.MediaURL, &p.MediaKey, &p.MediaKind, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// ListMediaKeysByClub returns the storage keys of a club's posts, for cleanup
// before the rows are cascade-deleted with the account.
func (r *Repository) ListMediaKeysByClub(ctx context.Context, clubID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT media_key FROM posts WHERE club_id = $1 AND media_key <> ''`, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Delete removes a post row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
