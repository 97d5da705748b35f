package model

import "time"

// SessionTTL is how long a voting session accepts joins and votes.
// ExpiresAt is fixed at creation and never extended.
const SessionTTL = 24 * time.Hour

// VotingRecipe is a recipe enrolled in a voting session together with its
// running vote count.
type VotingRecipe struct {
	Recipe
	Votes int `json:"votes"`
}

// ConnectedUser is one participant of a voting session. IDs are generated
// client-side and are only unique per browser session.
type ConnectedUser struct {
	ID       string  `json:"id"`
	Name     string  `json:"name,omitempty"`
	HasVoted bool    `json:"hasVoted"`
	VotedFor *string `json:"votedFor,omitempty"`
}

// VotingSession is an ephemeral "what should we cook tonight" poll shared
// between friends via a short code. Timestamps are milliseconds since epoch
// to match the wire format the web client expects.
type VotingSession struct {
	ID        string           `json:"id"`
	Code      string           `json:"code"`
	Name      string           `json:"name"`
	Recipes   []VotingRecipe   `json:"recipes"`
	CreatedAt int64            `json:"createdAt"`
	ExpiresAt int64            `json:"expiresAt"`
	CreatedBy string           `json:"createdBy"`
	Users     []*ConnectedUser `json:"users"`
}

// Expired reports whether the session is read-only at the given time.
func (s *VotingSession) Expired(now time.Time) bool {
	return now.UnixMilli() >= s.ExpiresAt
}

// User returns the participant with the given id, or nil.
func (s *VotingSession) User(userID string) *ConnectedUser {
	for _, u := range s.Users {
		if u.ID == userID {
			return u
		}
	}
	return nil
}

// Recipe returns the voting recipe with the given url, or nil.
func (s *VotingSession) Recipe(url string) *VotingRecipe {
	for i := range s.Recipes {
		if s.Recipes[i].URL == url {
			return &s.Recipes[i]
		}
	}
	return nil
}

// TotalVotes sums the vote counters across all recipes.
func (s *VotingSession) TotalVotes() int {
	total := 0
	for i := range s.Recipes {
		total += s.Recipes[i].Votes
	}
	return total
}
