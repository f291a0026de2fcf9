package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PremiumRepo stores entitlement rows, one per user.
type PremiumRepo struct {
	pool *pgxpool.Pool
}

func NewPremiumRepo(pool *pgxpool.Pool) *PremiumRepo {
	return &PremiumRepo{pool: pool}
}

// Status reads a user's subscription flag, provisioning a default
// non-subscribed row if none exists yet. Provisioning is idempotent:
// repeated attempts for the same user neither error nor duplicate.
func (r *PremiumRepo) Status(ctx context.Context, userID uuid.UUID) (bool, error) {
	if _, err := r.pool.Exec(ctx, `INSERT INTO premium (uid, premium)
		VALUES ($1, false)
		ON CONFLICT (uid) DO NOTHING`, userID); err != nil {
		return false, err
	}

	var subscribed bool
	err := r.pool.QueryRow(ctx, `SELECT premium FROM premium WHERE uid = $1`, userID).Scan(&subscribed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// row raced away; treat as the default it would have held
			return false, nil
		}
		return false, err
	}
	return subscribed, nil
}

// SetSubscribed flips a user's subscription flag.
func (r *PremiumRepo) SetSubscribed(ctx context.Context, userID uuid.UUID, subscribed bool) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO premium (uid, premium)
		VALUES ($1, $2)
		ON CONFLICT (uid) DO UPDATE SET premium = EXCLUDED.premium`, userID, subscribed)
	return err
}
