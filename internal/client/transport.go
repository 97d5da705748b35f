// Package client is the Go counterpart of the site's daily-voting widget:
// it keeps a local view of one voting session and synchronizes it with the
// backend over HTTP plus a WebSocket channel, or simulates the whole thing
// in memory when no backend is configured.
package client

import (
	"context"

	"github.com/cnotv/recipes/internal/model"
	"github.com/cnotv/recipes/internal/realtime"
)

// SessionTransport is how the controller talks to a voting session. The
// variant is chosen once at construction: NewLocalTransport for demo mode,
// NewHTTPTransport for a real backend. Controller code is identical for
// both; the local transport loops its own mutations back through Events as
// if they were server broadcasts.
type SessionTransport interface {
	CreateSession(ctx context.Context, name string, recipes []model.Recipe, userID string) (*model.VotingSession, error)
	JoinSession(ctx context.Context, code, userID string) (*model.VotingSession, error)

	// CastVote submits the vote; the resulting state arrives through
	// Events. Callers may update their view optimistically in the
	// meantime.
	CastVote(ctx context.Context, code, recipeURL, userID string) error

	FetchSession(ctx context.Context, code string) (*model.VotingSession, error)

	// Connect opens the realtime channel for a session. Send pushes a
	// frame if the channel is open and is otherwise a no-op.
	Connect(code, userID string) error
	Send(msg realtime.Message)
	Connected() bool

	// Leave announces departure, closes the channel and suppresses any
	// reconnection. Events is closed afterwards.
	Leave(code, userID string)

	// Events delivers server pushes. Closed when the transport shuts
	// down for good.
	Events() <-chan realtime.Message
}
