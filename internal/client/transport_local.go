package client

import (
	"context"
	"errors"
	"sync"

	"github.com/cnotv/recipes/internal/model"
	"github.com/cnotv/recipes/internal/realtime"
	"github.com/cnotv/recipes/internal/repository"
	"github.com/cnotv/recipes/internal/service"
)

// ErrDemoMode is returned by JoinSession on the local transport: without a
// backend there is nothing to join.
var ErrDemoMode = errors.New("demo mode: create a new session instead of joining")

// localTransport runs the real session service against an in-memory store
// inside the client process. Mutations are looped back through Events as
// synthetic session_update frames, so the controller behaves exactly as it
// does against a live backend — minus any cross-client synchronization.
type localTransport struct {
	sessions service.SessionService

	mu     sync.Mutex
	code   string
	open   bool
	events chan realtime.Message
	closed bool
}

func NewLocalTransport() SessionTransport {
	return &localTransport{
		sessions: service.NewSessionService(repository.NewMemorySessionStore(), nil),
		events:   make(chan realtime.Message, 8),
	}
}

func (t *localTransport) CreateSession(ctx context.Context, name string, recipes []model.Recipe, userID string) (*model.VotingSession, error) {
	return t.sessions.CreateSession(ctx, name, recipes, userID)
}

func (t *localTransport) JoinSession(context.Context, string, string) (*model.VotingSession, error) {
	return nil, ErrDemoMode
}

func (t *localTransport) CastVote(ctx context.Context, code, recipeURL, userID string) error {
	session, _, err := t.sessions.CastVote(ctx, code, recipeURL, userID)
	if err != nil {
		return err
	}
	t.emit(realtime.SessionUpdate(session))
	return nil
}

func (t *localTransport) FetchSession(ctx context.Context, code string) (*model.VotingSession, error) {
	return t.sessions.GetSession(ctx, code)
}

func (t *localTransport) Connect(code, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.code = code
	t.open = true
	return nil
}

func (t *localTransport) Send(realtime.Message) {}

func (t *localTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

func (t *localTransport) Leave(string, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = false
	if !t.closed {
		t.closed = true
		close(t.events)
	}
}

func (t *localTransport) Events() <-chan realtime.Message {
	return t.events
}

func (t *localTransport) emit(msg realtime.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || !t.open {
		return
	}
	select {
	case t.events <- msg:
	default:
	}
}
