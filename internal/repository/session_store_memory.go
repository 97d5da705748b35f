package repository

import (
	"context"
	"sync"
	"time"

	"github.com/cnotv/recipes/internal/model"
)

type sessionEntry struct {
	session   *model.VotingSession
	expiresAt time.Time
}

func (e sessionEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

type memorySessionStore struct {
	mu      sync.Mutex
	entries map[string]sessionEntry
}

// NewMemorySessionStore returns a store backed by process memory. Suitable
// for single-instance deployments and tests; sessions do not survive a
// restart.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		entries: make(map[string]sessionEntry),
	}
}

func (s *memorySessionStore) Get(_ context.Context, code string) (*model.VotingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[code]
	if !ok {
		return nil, nil
	}
	if entry.isExpired() {
		delete(s.entries, code)
		return nil, nil
	}
	return cloneSession(entry.session), nil
}

func (s *memorySessionStore) Create(_ context.Context, session *model.VotingSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[session.Code]; ok && !entry.isExpired() {
		return ErrCodeTaken
	}
	s.entries[session.Code] = sessionEntry{
		session:   cloneSession(session),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Update applies fn under the store lock, so concurrent votes against the
// same session are serialized.
func (s *memorySessionStore) Update(_ context.Context, code string, fn UpdateFunc) (*model.VotingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[code]
	if !ok || entry.isExpired() {
		if ok {
			delete(s.entries, code)
		}
		return nil, ErrSessionGone
	}

	updated := cloneSession(entry.session)
	if err := fn(updated); err != nil {
		return nil, err
	}
	s.entries[code] = sessionEntry{session: updated, expiresAt: entry.expiresAt}
	return cloneSession(updated), nil
}

func (s *memorySessionStore) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, code)
	return nil
}

// cloneSession deep-copies a session so callers can never mutate stored
// state behind the store's back.
func cloneSession(in *model.VotingSession) *model.VotingSession {
	out := *in
	out.Recipes = make([]model.VotingRecipe, len(in.Recipes))
	copy(out.Recipes, in.Recipes)
	out.Users = make([]*model.ConnectedUser, len(in.Users))
	for i, u := range in.Users {
		user := *u
		if u.VotedFor != nil {
			votedFor := *u.VotedFor
			user.VotedFor = &votedFor
		}
		out.Users[i] = &user
	}
	return &out
}
