package services

import (
	"context"

	"quizlive/models"
)

// SessionStore persists whole GameSession aggregates. Implementations
// only need consistent read/write of a single aggregate: callers in
// SessionService hold the per-session lock across every
// read-modify-write, so a store never sees two concurrent writers for
// the same session id.
type SessionStore interface {
	// Create assigns an id to the session and persists it.
	Create(ctx context.Context, session *models.GameSession) error

	// Get returns the aggregate or a KindNotFound error.
	Get(ctx context.Context, sessionID uint) (*models.GameSession, error)

	// Save overwrites the aggregate.
	Save(ctx context.Context, session *models.GameSession) error

	// ActiveByGame returns the non-ended session for a game, if any.
	ActiveByGame(ctx context.Context, gameID uint) (*models.GameSession, bool, error)

	// Delete removes the aggregate. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, sessionID uint) error
}
