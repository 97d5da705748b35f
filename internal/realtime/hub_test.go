package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cnotv/recipes/internal/model"
)

type stubSource struct {
	sessions map[string]*model.VotingSession
}

func (s *stubSource) GetSession(_ context.Context, code string) (*model.VotingSession, error) {
	return s.sessions[code], nil
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server, *stubSource) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	source := &stubSource{sessions: make(map[string]*model.VotingSession)}
	hub.SetSessionSource(source)
	go hub.Run()
	t.Cleanup(hub.Stop)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, w, r)
	}))
	t.Cleanup(server.Close)
	return hub, server, source
}

func dialWS(t *testing.T, server *httptest.Server, code, userID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + code + "&user=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func sampleSession(code string) *model.VotingSession {
	return &model.VotingSession{
		ID:   "s-" + code,
		Code: code,
		Name: "Dinner",
		Recipes: []model.VotingRecipe{
			{Recipe: model.Recipe{URL: "pad-thai"}, Votes: 1},
		},
		Users: []*model.ConnectedUser{{ID: "u1", HasVoted: true}},
	}
}

func TestServeWSRequiresParams(t *testing.T) {
	_, server, _ := newTestHub(t)

	res, err := http.Get(server.URL + "?session=AAAAAA")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestBroadcastSessionReachesAllSubscribers(t *testing.T) {
	hub, server, _ := newTestHub(t)

	conn1 := dialWS(t, server, "AAAAAA", "u1")
	conn2 := dialWS(t, server, "AAAAAA", "u2")
	other := dialWS(t, server, "BBBBBB", "u3")

	// Let the register frames land before broadcasting.
	time.Sleep(50 * time.Millisecond)
	hub.BroadcastSession(sampleSession("AAAAAA"))

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		msg := readMessage(t, conn)
		assert.Equal(t, MessageSessionUpdate, msg.Type)
		require.NotNil(t, msg.Session)
		assert.Equal(t, "AAAAAA", msg.Session.Code)
		require.Len(t, msg.Users, 1)
	}

	// The other room must stay quiet.
	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg Message
	assert.Error(t, other.ReadJSON(&msg))
}

func TestJoinFrameTriggersSnapshot(t *testing.T) {
	_, server, source := newTestHub(t)
	source.sessions["AAAAAA"] = sampleSession("AAAAAA")

	conn := dialWS(t, server, "AAAAAA", "u1")
	require.NoError(t, conn.WriteJSON(Message{
		Type:        MessageJoin,
		SessionCode: "AAAAAA",
		UserID:      "u1",
	}))

	msg := readMessage(t, conn)
	assert.Equal(t, MessageSessionUpdate, msg.Type)
	require.NotNil(t, msg.Session)
	assert.Equal(t, 1, msg.Session.Recipes[0].Votes)
}

func TestVoteHintRebroadcastsSnapshot(t *testing.T) {
	_, server, source := newTestHub(t)
	source.sessions["AAAAAA"] = sampleSession("AAAAAA")

	voter := dialWS(t, server, "AAAAAA", "u1")
	watcher := dialWS(t, server, "AAAAAA", "u2")
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, voter.WriteJSON(Message{
		Type:        MessageVote,
		SessionCode: "AAAAAA",
		RecipeURL:   "pad-thai",
		UserID:      "u1",
	}))

	// Both participants get the fresh snapshot, not the raw hint.
	for _, conn := range []*websocket.Conn{voter, watcher} {
		msg := readMessage(t, conn)
		assert.Equal(t, MessageSessionUpdate, msg.Type)
	}
}

func TestLeaveFrameStopsDelivery(t *testing.T) {
	hub, server, _ := newTestHub(t)

	leaver := dialWS(t, server, "AAAAAA", "u1")
	stayer := dialWS(t, server, "AAAAAA", "u2")
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, leaver.WriteJSON(Message{
		Type:        MessageLeave,
		SessionCode: "AAAAAA",
		UserID:      "u1",
	}))
	time.Sleep(50 * time.Millisecond)

	hub.BroadcastSession(sampleSession("AAAAAA"))

	msg := readMessage(t, stayer)
	assert.Equal(t, MessageSessionUpdate, msg.Type)

	// The departed client gets a close frame, not the update.
	leaver.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var got Message
	err := leaver.ReadJSON(&got)
	assert.Error(t, err)
}
