package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/cnotv/recipes/internal/model"
	"github.com/cnotv/recipes/internal/repository"
)

const (
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength  = 6

	// createRetries bounds how often a fresh code is drawn when the
	// generated one collides with a live session.
	createRetries = 5
)

// SessionNotifier pushes a fresh session snapshot to all connected
// participants. Implemented by the realtime hub.
type SessionNotifier interface {
	BroadcastSession(session *model.VotingSession)
}

type SessionService interface {
	CreateSession(ctx context.Context, name string, recipes []model.Recipe, creatorID string) (*model.VotingSession, error)
	JoinSession(ctx context.Context, code, userID string) (*model.VotingSession, error)
	CastVote(ctx context.Context, code, recipeURL, userID string) (*model.VotingSession, *string, error)
	GetSession(ctx context.Context, code string) (*model.VotingSession, error)
}

type sessionService struct {
	store    repository.SessionStore
	notifier SessionNotifier
	now      func() time.Time
}

func NewSessionService(store repository.SessionStore, notifier SessionNotifier) SessionService {
	return &sessionService{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, name string, recipes []model.Recipe, creatorID string) (*model.VotingSession, error) {
	if name == "" || creatorID == "" || len(recipes) < 2 {
		return nil, ErrInvalidInput
	}

	votingRecipes := make([]model.VotingRecipe, len(recipes))
	for i, r := range recipes {
		votingRecipes[i] = model.VotingRecipe{Recipe: r, Votes: 0}
	}

	now := s.now()
	session := &model.VotingSession{
		ID:        uuid.NewString(),
		Name:      name,
		Recipes:   votingRecipes,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(model.SessionTTL).UnixMilli(),
		CreatedBy: creatorID,
		Users: []*model.ConnectedUser{
			{ID: creatorID, Name: "Session Creator", HasVoted: false},
		},
	}

	// Codes are drawn at random, so a collision with a live session is
	// possible; retry with a fresh code instead of clobbering it.
	for attempt := 0; attempt < createRetries; attempt++ {
		code, err := generateSessionCode()
		if err != nil {
			return nil, fmt.Errorf("generate session code: %w", err)
		}
		session.Code = code

		err = s.store.Create(ctx, session, model.SessionTTL)
		if errors.Is(err, repository.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		return session, nil
	}
	return nil, fmt.Errorf("create session: could not find a free code after %d attempts", createRetries)
}

func (s *sessionService) JoinSession(ctx context.Context, code, userID string) (*model.VotingSession, error) {
	if code == "" || userID == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil || session.Expired(s.now()) {
		return nil, ErrSessionNotFound
	}

	// Idempotent join: a returning user gets the current session back
	// without a write.
	if session.User(userID) != nil {
		return session, nil
	}

	updated, err := s.store.Update(ctx, code, func(session *model.VotingSession) error {
		if session.Expired(s.now()) {
			return ErrSessionNotFound
		}
		if session.User(userID) == nil {
			session.Users = append(session.Users, &model.ConnectedUser{
				ID:       userID,
				Name:     fmt.Sprintf("User %d", len(session.Users)+1),
				HasVoted: false,
			})
		}
		return nil
	})
	if errors.Is(err, repository.ErrSessionGone) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CastVote toggles the user's vote: voting for the current choice retracts
// it, voting for another recipe moves the vote. The whole read-modify-write
// runs inside a single atomic store update. Returns the updated session and
// the user's vote after the toggle.
func (s *sessionService) CastVote(ctx context.Context, code, recipeURL, userID string) (*model.VotingSession, *string, error) {
	if code == "" || recipeURL == "" || userID == "" {
		return nil, nil, ErrInvalidInput
	}

	var userVote *string
	updated, err := s.store.Update(ctx, code, func(session *model.VotingSession) error {
		if session.Expired(s.now()) {
			return ErrSessionNotFound
		}
		recipe := session.Recipe(recipeURL)
		if recipe == nil {
			return ErrRecipeNotFound
		}
		user := session.User(userID)
		if user == nil {
			return ErrNotParticipant
		}

		if user.VotedFor != nil && *user.VotedFor == recipeURL {
			// Toggle off.
			user.VotedFor = nil
			user.HasVoted = false
			recipe.Votes = max(0, recipe.Votes-1)
		} else {
			// Retract a previous vote before counting the new one.
			if user.VotedFor != nil {
				if prev := session.Recipe(*user.VotedFor); prev != nil {
					prev.Votes = max(0, prev.Votes-1)
				}
			}
			votedFor := recipeURL
			user.VotedFor = &votedFor
			user.HasVoted = true
			recipe.Votes++
		}
		userVote = user.VotedFor
		return nil
	})
	if errors.Is(err, repository.ErrSessionGone) {
		return nil, nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	if s.notifier != nil {
		s.notifier.BroadcastSession(updated)
	}
	return updated, userVote, nil
}

func (s *sessionService) GetSession(ctx context.Context, code string) (*model.VotingSession, error) {
	if code == "" {
		return nil, ErrInvalidInput
	}
	session, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil || session.Expired(s.now()) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// generateSessionCode draws a 6-character code from [A-Z0-9].
func generateSessionCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[n.Int64()]
	}
	return string(code), nil
}
