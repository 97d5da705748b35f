package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cnotv/recipes/internal/model"
	"github.com/cnotv/recipes/internal/realtime"
)

const (
	maxReconnectAttempts = 5
	reconnectBaseDelay   = time.Second
)

// APIError is a non-2xx response from the voting API, carrying the
// server's error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// httpTransport talks to a deployed backend: JSON over HTTP for mutations,
// a WebSocket for server pushes. Lost connections are redialed with linear
// backoff (attempt * 1s), capped at 5 attempts; a manual Leave suppresses
// reconnection for good.
type httpTransport struct {
	baseURL string
	wsURL   string
	http    *http.Client
	dialer  *websocket.Dialer
	logger  *zap.Logger

	events chan realtime.Message

	mu        sync.Mutex
	conn      *websocket.Conn
	code      string
	userID    string
	attempts  int
	left      bool
	closed    bool
	connected bool
}

// NewHTTPTransport builds the networked transport. baseURL is the API
// origin (http(s)://host[:port]), wsURL the WebSocket endpoint
// (ws(s)://host[:port]/ws); pass logger nil for a no-op logger.
func NewHTTPTransport(baseURL, wsURL string, logger *zap.Logger) SessionTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &httpTransport{
		baseURL: baseURL,
		wsURL:   wsURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		dialer:  websocket.DefaultDialer,
		logger:  logger,
		events:  make(chan realtime.Message, 8),
	}
}

func (t *httpTransport) CreateSession(ctx context.Context, name string, recipes []model.Recipe, userID string) (*model.VotingSession, error) {
	body := map[string]any{"name": name, "recipes": recipes, "userId": userID}
	var out struct {
		Session *model.VotingSession `json:"session"`
	}
	if err := t.post(ctx, "/api/create-session", body, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

func (t *httpTransport) JoinSession(ctx context.Context, code, userID string) (*model.VotingSession, error) {
	body := map[string]any{"code": code, "userId": userID}
	var out struct {
		Session *model.VotingSession `json:"session"`
	}
	if err := t.post(ctx, "/api/join-session", body, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

func (t *httpTransport) CastVote(ctx context.Context, code, recipeURL, userID string) error {
	body := map[string]any{"sessionCode": code, "recipeUrl": recipeURL, "userId": userID}
	return t.post(ctx, "/api/vote", body, nil)
}

func (t *httpTransport) FetchSession(ctx context.Context, code string) (*model.VotingSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/api/session/"+url.PathEscape(code), nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Session *model.VotingSession `json:"session"`
	}
	if err := t.do(req, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

func (t *httpTransport) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req, out)
}

func (t *httpTransport) do(req *http.Request, out any) error {
	res, err := t.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(res.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = res.Status
		}
		return &APIError{Status: res.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (t *httpTransport) Connect(code, userID string) error {
	t.mu.Lock()
	t.code = code
	t.userID = userID
	t.left = false
	t.attempts = 0
	t.mu.Unlock()
	return t.dial()
}

func (t *httpTransport) dial() error {
	t.mu.Lock()
	code, userID := t.code, t.userID
	t.mu.Unlock()

	wsURL := fmt.Sprintf("%s?session=%s&user=%s", t.wsURL, url.QueryEscape(code), url.QueryEscape(userID))
	conn, _, err := t.dialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.connected = true
	t.attempts = 0
	t.mu.Unlock()

	// Register this connection under the session code server-side.
	t.Send(realtime.Message{Type: realtime.MessageJoin, SessionCode: code, UserID: userID})

	go t.readLoop(conn)
	return nil
}

func (t *httpTransport) readLoop(conn *websocket.Conn) {
	for {
		var msg realtime.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.mu.Lock()
			t.connected = false
			left := t.left
			t.mu.Unlock()

			if !left {
				t.logger.Debug("websocket closed unexpectedly", zap.Error(err))
				t.scheduleReconnect()
			}
			return
		}
		t.emit(msg)
	}
}

func (t *httpTransport) emit(msg realtime.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.events <- msg:
	default:
		t.logger.Warn("dropping realtime message, consumer too slow",
			zap.String("type", string(msg.Type)))
	}
}

func (t *httpTransport) scheduleReconnect() {
	t.mu.Lock()
	if t.left || t.attempts >= maxReconnectAttempts {
		t.mu.Unlock()
		return
	}
	t.attempts++
	attempt := t.attempts
	t.mu.Unlock()

	time.Sleep(time.Duration(attempt) * reconnectBaseDelay)

	t.mu.Lock()
	left := t.left
	t.mu.Unlock()
	if left {
		return
	}

	t.logger.Info("reconnecting websocket", zap.Int("attempt", attempt))
	if err := t.dial(); err != nil {
		t.logger.Warn("reconnect failed", zap.Int("attempt", attempt), zap.Error(err))
		t.scheduleReconnect()
	}
}

func (t *httpTransport) Send(msg realtime.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil || !t.connected {
		return
	}
	if err := t.conn.WriteJSON(msg); err != nil {
		t.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (t *httpTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *httpTransport) Leave(code, userID string) {
	t.Send(realtime.Message{Type: realtime.MessageLeave, SessionCode: code, UserID: userID})

	t.mu.Lock()
	defer t.mu.Unlock()
	t.left = true
	t.connected = false
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	if !t.closed {
		t.closed = true
		close(t.events)
	}
}

func (t *httpTransport) Events() <-chan realtime.Message {
	return t.events
}
