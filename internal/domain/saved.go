package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a saved CV does not exist for the requesting
// owner. A document owned by someone else is indistinguishable from a
// missing one.
var ErrNotFound = errors.New("cv not found")

// SavedCV is one persisted CV row. Data holds the whole Document tree as
// JSON; (UserID, Title) is the upsert conflict key, so re-saving under an
// unchanged derived title overwrites instead of duplicating.
type SavedCV struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
