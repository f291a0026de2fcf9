package entitlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// StatusStore is the durable entitlement record store.
type StatusStore interface {
	Status(ctx context.Context, userID uuid.UUID) (bool, error)
	SetSubscribed(ctx context.Context, userID uuid.UUID, subscribed bool) error
}

const cacheTTL = 5 * time.Minute

// Gate decides whether a user may run the premium actions. Results are
// cached in redis when a client is configured; the store stays the
// authority, and a store error is never converted into access.
type Gate struct {
	store StatusStore
	cache *redis.Client
	log   zerolog.Logger
}

func NewGate(store StatusStore, cache *redis.Client, log zerolog.Logger) *Gate {
	return &Gate{store: store, cache: cache, log: log}
}

func cacheKey(userID uuid.UUID) string {
	return "premium:" + userID.String()
}

// Check reports the user's subscription status.
func (g *Gate) Check(ctx context.Context, userID uuid.UUID) (bool, error) {
	if g.cache != nil {
		val, err := g.cache.Get(ctx, cacheKey(userID)).Result()
		if err == nil {
			return val == "1", nil
		}
		if err != redis.Nil {
			g.log.Warn().Err(err).Msg("entitlement cache read failed")
		}
	}

	subscribed, err := g.store.Status(ctx, userID)
	if err != nil {
		return false, err
	}
	g.cacheSet(ctx, userID, subscribed)
	return subscribed, nil
}

// MarkSubscribed records a completed payment.
func (g *Gate) MarkSubscribed(ctx context.Context, userID uuid.UUID) error {
	if err := g.store.SetSubscribed(ctx, userID, true); err != nil {
		return err
	}
	g.cacheSet(ctx, userID, true)
	return nil
}

func (g *Gate) cacheSet(ctx context.Context, userID uuid.UUID, subscribed bool) {
	if g.cache == nil {
		return
	}
	val := "0"
	if subscribed {
		val = "1"
	}
	if err := g.cache.Set(ctx, cacheKey(userID), val, cacheTTL).Err(); err != nil {
		g.log.Warn().Err(err).Msg("entitlement cache write failed")
	}
}
