package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/cnotv/recipes/internal/model"
)

// SessionSource reads the current session state. Implemented by the
// session service; the hub uses it to answer "vote" refresh hints with a
// fresh snapshot instead of relaying deltas.
type SessionSource interface {
	GetSession(ctx context.Context, code string) (*model.VotingSession, error)
}

// Hub fans session updates out to every WebSocket subscriber of a session
// code. All room bookkeeping happens in the Run loop; the only lock guards
// the broadcast entry point used by the session service.
type Hub struct {
	logger *zap.Logger

	mu       sync.RWMutex
	sessions SessionSource

	rooms      map[string]map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan Message
	done       chan struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		rooms:      make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Message, 16),
		done:       make(chan struct{}),
	}
}

// SetSessionSource wires the session service in after construction; the
// service itself needs the hub as its notifier, so one of the two has to
// be attached late.
func (h *Hub) SetSessionSource(src SessionSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions = src
}

func (h *Hub) sessionSource() SessionSource {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions
}

// Run owns the room map. Must be started exactly once, in its own
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			room, ok := h.rooms[c.code]
			if !ok {
				room = make(map[*client]struct{})
				h.rooms[c.code] = room
			}
			room[c] = struct{}{}
			h.logger.Info("client joined session",
				zap.String("code", c.code),
				zap.String("user_id", c.userID),
				zap.Int("subscribers", len(room)))

		case c := <-h.unregister:
			if room, ok := h.rooms[c.code]; ok {
				if _, ok := room[c]; ok {
					delete(room, c)
					close(c.send)
					if len(room) == 0 {
						delete(h.rooms, c.code)
					}
				}
			}

		case msg := <-h.broadcast:
			room := h.rooms[msg.SessionCode]
			for c := range room {
				select {
				case c.send <- msg:
				default:
					// Slow consumer; drop it rather than stall
					// every other participant.
					delete(room, c)
					close(c.send)
					h.logger.Warn("dropping slow websocket client",
						zap.String("code", msg.SessionCode),
						zap.String("user_id", c.userID))
				}
			}
			if len(room) == 0 {
				delete(h.rooms, msg.SessionCode)
			}

		case <-h.done:
			for code, room := range h.rooms {
				for c := range room {
					close(c.send)
				}
				delete(h.rooms, code)
			}
			return
		}
	}
}

// Stop terminates the Run loop and disconnects every client.
func (h *Hub) Stop() {
	close(h.done)
}

// BroadcastSession pushes the authoritative snapshot to every subscriber
// of the session's code. Safe to call from any goroutine; never blocks the
// caller beyond the hub's buffer.
func (h *Hub) BroadcastSession(session *model.VotingSession) {
	select {
	case h.broadcast <- SessionUpdate(session):
	case <-h.done:
	}
}

// handleMessage dispatches one inbound client frame.
func (h *Hub) handleMessage(c *client, msg Message) {
	switch msg.Type {
	case MessageJoin:
		// The connection is already registered under its code from the
		// query string; a join frame refreshes everyone so the new
		// participant shows up immediately.
		h.pushSnapshot(c.code)

	case MessageLeave:
		select {
		case h.unregister <- c:
		case <-h.done:
		}

	case MessageVote:
		// Lightweight hint. Relay the fresh snapshot rather than the
		// delta so clients can never diverge from server state.
		h.pushSnapshot(c.code)

	default:
		h.logger.Debug("ignoring unknown websocket message",
			zap.String("type", string(msg.Type)),
			zap.String("code", c.code))
	}
}

func (h *Hub) pushSnapshot(code string) {
	src := h.sessionSource()
	if src == nil {
		return
	}
	session, err := src.GetSession(context.Background(), code)
	if err != nil {
		h.logger.Warn("could not load session for broadcast",
			zap.String("code", code), zap.Error(err))
		return
	}
	h.BroadcastSession(session)
}
