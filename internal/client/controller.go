package client

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cnotv/recipes/internal/model"
	"github.com/cnotv/recipes/internal/realtime"
)

// Snapshot is a read-only copy of the controller's state at one point in
// time.
type Snapshot struct {
	Session   *model.VotingSession
	Users     []*model.ConnectedUser
	UserVote  *string
	Connected bool
	Loading   bool
	LastError string
}

// HasVoted reports whether the local user currently holds a vote.
func (s Snapshot) HasVoted() bool { return s.UserVote != nil }

// Controller drives one user's participation in a voting session: it
// issues mutations through its transport, keeps an optimistic local view,
// and replaces that view wholesale whenever an authoritative
// session_update arrives. All methods are safe for concurrent use.
type Controller struct {
	transport SessionTransport
	logger    *zap.Logger
	userID    string

	mu       sync.Mutex
	session  *model.VotingSession
	users    []*model.ConnectedUser
	userVote *string
	loading  bool
	lastErr  string

	watchOnce sync.Once
	leaveOnce sync.Once
	onChange  func(Snapshot)
}

// NewController builds a controller around a transport. Pass logger nil
// for a no-op logger. The user id is generated once and stays stable for
// the controller's lifetime.
func NewController(transport SessionTransport, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		transport: transport,
		logger:    logger,
		userID:    generateUserID(),
	}
}

// UserID returns the controller's pseudo-random participant id.
func (c *Controller) UserID() string { return c.userID }

// OnChange registers a callback invoked after every state change. Must be
// called before the first operation.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// CreateSession creates a new voting session with the given recipes and
// connects the realtime channel.
func (c *Controller) CreateSession(ctx context.Context, name string, recipes []model.Recipe) error {
	c.setLoading(true)
	defer c.setLoading(false)

	session, err := c.transport.CreateSession(ctx, name, recipes, c.userID)
	if err != nil {
		c.fail("create session", err)
		return err
	}

	c.mu.Lock()
	c.session = session
	c.users = session.Users
	c.userVote = nil
	c.lastErr = ""
	c.mu.Unlock()
	c.notify()

	c.connect(session.Code)
	return nil
}

// JoinSession joins an existing session by code and connects the realtime
// channel. Fails in demo mode.
func (c *Controller) JoinSession(ctx context.Context, code string) error {
	c.setLoading(true)
	defer c.setLoading(false)

	session, err := c.transport.JoinSession(ctx, code, c.userID)
	if err != nil {
		c.fail("join session", err)
		return err
	}

	c.mu.Lock()
	c.session = session
	c.users = session.Users
	c.userVote = currentVote(session, c.userID)
	c.lastErr = ""
	c.mu.Unlock()
	c.notify()

	c.connect(code)
	return nil
}

// VoteForRecipe submits a toggle vote. The local view is updated
// optimistically against the previous local value; the next
// session_update broadcast is authoritative and overwrites the guess.
func (c *Controller) VoteForRecipe(ctx context.Context, recipeURL string) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return nil
	}
	code := c.session.Code
	c.mu.Unlock()

	if err := c.transport.CastVote(ctx, code, recipeURL, c.userID); err != nil {
		c.fail("cast vote", err)
		return err
	}

	// Optimistic toggle; discarded when the broadcast lands.
	c.mu.Lock()
	if c.userVote != nil && *c.userVote == recipeURL {
		c.userVote = nil
	} else {
		votedFor := recipeURL
		c.userVote = &votedFor
	}
	for _, u := range c.users {
		if u.ID == c.userID {
			u.HasVoted = c.userVote != nil
		}
	}
	c.lastErr = ""
	c.mu.Unlock()
	c.notify()

	// Nudge the other participants to refresh.
	c.transport.Send(realtime.Message{
		Type:        realtime.MessageVote,
		SessionCode: code,
		RecipeURL:   recipeURL,
		UserID:      c.userID,
	})
	return nil
}

// RefreshSession re-fetches the session, typically in response to a vote
// hint.
func (c *Controller) RefreshSession(ctx context.Context) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return nil
	}
	code := c.session.Code
	c.mu.Unlock()

	session, err := c.transport.FetchSession(ctx, code)
	if err != nil {
		c.logger.Warn("session refresh failed", zap.Error(err))
		return err
	}
	c.applySession(session)
	return nil
}

// LeaveSession announces departure, tears the channel down and resets all
// local state. Idempotent; meant to be deferred so cleanup is guaranteed.
func (c *Controller) LeaveSession() {
	c.leaveOnce.Do(func() {
		c.mu.Lock()
		code := ""
		if c.session != nil {
			code = c.session.Code
		}
		c.mu.Unlock()

		c.transport.Leave(code, c.userID)

		c.mu.Lock()
		c.session = nil
		c.users = nil
		c.userVote = nil
		c.loading = false
		c.lastErr = ""
		c.mu.Unlock()
		c.notify()
	})
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Session:   c.session,
		Users:     c.users,
		UserVote:  c.userVote,
		Connected: c.transport.Connected(),
		Loading:   c.loading,
		LastError: c.lastErr,
	}
}

func (c *Controller) connect(code string) {
	if err := c.transport.Connect(code, c.userID); err != nil {
		// Channel failures degrade to last-fetched state; they are not
		// user-facing errors.
		c.logger.Warn("realtime connect failed", zap.String("code", code), zap.Error(err))
		return
	}
	c.watchOnce.Do(func() {
		go c.watch()
	})
}

// watch consumes server pushes until the transport shuts down.
func (c *Controller) watch() {
	for msg := range c.transport.Events() {
		switch msg.Type {
		case realtime.MessageSessionUpdate:
			if msg.Session != nil {
				c.applySession(msg.Session)
			}

		case realtime.MessageVote:
			// Hint only; fetch fresh state instead of applying a delta.
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			c.RefreshSession(ctx)
			cancel()
		}
	}
}

// applySession replaces the local view wholesale with server state. The
// user's vote is recomputed from the snapshot, never merged field by
// field.
func (c *Controller) applySession(session *model.VotingSession) {
	c.mu.Lock()
	c.session = session
	c.users = session.Users
	c.userVote = currentVote(session, c.userID)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
	c.notify()
}

// fail records a user-facing error while leaving any previously valid
// session state intact.
func (c *Controller) fail(op string, err error) {
	c.logger.Warn(op+" failed", zap.Error(err))
	c.mu.Lock()
	if apiErr, ok := err.(*APIError); ok {
		c.lastErr = apiErr.Message
	} else {
		c.lastErr = err.Error()
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(c.Snapshot())
	}
}

func currentVote(session *model.VotingSession, userID string) *string {
	if user := session.User(userID); user != nil && user.VotedFor != nil {
		votedFor := *user.VotedFor
		return &votedFor
	}
	return nil
}

// generateUserID mirrors the web client's id scheme: pseudo-random,
// stable for the life of the controller, not globally unique.
func generateUserID() string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 9)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			n = big.NewInt(time.Now().UnixNano() % int64(len(charset)))
		}
		b[i] = charset[n.Int64()]
	}
	return fmt.Sprintf("user_%s_%d", b, time.Now().UnixMilli())
}
