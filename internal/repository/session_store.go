package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cnotv/recipes/internal/model"
)

var (
	// ErrCodeTaken is returned by Create when the session code is already
	// in use by a non-expired session.
	ErrCodeTaken = errors.New("session code already taken")

	// ErrSessionGone is returned by Update when no session exists under
	// the given code.
	ErrSessionGone = errors.New("session not found in store")
)

// UpdateFunc mutates a session in place. Returning an error aborts the
// update and nothing is persisted.
type UpdateFunc func(session *model.VotingSession) error

// SessionStore persists voting sessions keyed by their share code.
// Implementations: in-memory (single instance / tests), Redis, Postgres.
//
// Update is the serialization point for concurrent votes: the read, the
// mutation and the write must happen as one atomic step per code.
type SessionStore interface {
	Get(ctx context.Context, code string) (*model.VotingSession, error)
	Create(ctx context.Context, session *model.VotingSession, ttl time.Duration) error
	Update(ctx context.Context, code string, fn UpdateFunc) (*model.VotingSession, error)
	Delete(ctx context.Context, code string) error
}
