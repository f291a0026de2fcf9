package repository

import (
	"context"
	"errors"
	"time"

	"cv-builder/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CVRepo stores saved CVs. The conflict key is (user_id, title): saving again
// under an unchanged derived title overwrites the row instead of creating a
// duplicate.
type CVRepo struct {
	pool *pgxpool.Pool
}

func NewCVRepo(pool *pgxpool.Pool) *CVRepo {
	return &CVRepo{pool: pool}
}

func (r *CVRepo) Upsert(ctx context.Context, cv *domain.SavedCV) (*domain.SavedCV, error) {
	if cv.ID == uuid.Nil {
		cv.ID = uuid.New()
	}
	now := time.Now()

	row := r.pool.QueryRow(ctx, `INSERT INTO cvs (id, user_id, title, data, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id, title) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`,
		cv.ID, cv.UserID, cv.Title, cv.Data, now, now)

	out := *cv
	if err := row.Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchOne loads a CV by id, scoped to its owner: a row owned by another
// user reads as not found.
func (r *CVRepo) FetchOne(ctx context.Context, id, ownerID uuid.UUID) (*domain.SavedCV, error) {
	var cv domain.SavedCV
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, title, data, created_at, updated_at
		FROM cvs WHERE id = $1 AND user_id = $2`,
		id, ownerID).Scan(&cv.ID, &cv.UserID, &cv.Title, &cv.Data, &cv.CreatedAt, &cv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &cv, nil
}

// ListByUser returns a user's saved CVs, newest first, without the document
// blobs.
func (r *CVRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.SavedCV, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, title, created_at, updated_at
		FROM cvs WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SavedCV
	for rows.Next() {
		var cv domain.SavedCV
		if err := rows.Scan(&cv.ID, &cv.UserID, &cv.Title, &cv.CreatedAt, &cv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, cv)
	}
	return out, rows.Err()
}
