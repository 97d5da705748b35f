package realtime

import "github.com/cnotv/recipes/internal/model"

type MessageType string

const (
	MessageJoin          MessageType = "join"
	MessageLeave         MessageType = "leave"
	MessageVote          MessageType = "vote"
	MessageSessionUpdate MessageType = "session_update"
)

// Message is the bidirectional WebSocket frame. "join", "leave" and "vote"
// travel client-to-server; "session_update" carries the authoritative
// session snapshot server-to-client, and "vote" is also relayed to the
// other participants as a refresh hint.
type Message struct {
	Type        MessageType            `json:"type"`
	SessionCode string                 `json:"sessionCode,omitempty"`
	RecipeURL   string                 `json:"recipeUrl,omitempty"`
	UserID      string                 `json:"userId,omitempty"`
	UserName    string                 `json:"userName,omitempty"`
	Session     *model.VotingSession   `json:"session,omitempty"`
	Users       []*model.ConnectedUser `json:"users,omitempty"`
}

// SessionUpdate builds the full-snapshot broadcast for a session. Clients
// replace their local state wholesale; deltas are never sent.
func SessionUpdate(session *model.VotingSession) Message {
	return Message{
		Type:        MessageSessionUpdate,
		SessionCode: session.Code,
		Session:     session,
		Users:       session.Users,
	}
}
