package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnotv/recipes/internal/model"
)

func testSession(code string) *model.VotingSession {
	now := time.Now()
	return &model.VotingSession{
		ID:   "s-" + code,
		Code: code,
		Name: "Dinner",
		Recipes: []model.VotingRecipe{
			{Recipe: model.Recipe{URL: "pad-thai"}},
			{Recipe: model.Recipe{URL: "carbonara"}},
		},
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(model.SessionTTL).UnixMilli(),
		CreatedBy: "u1",
		Users: []*model.ConnectedUser{
			{ID: "u1", Name: "Session Creator"},
		},
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testSession("AAAAAA"), time.Hour))

	got, err := store.Get(ctx, "AAAAAA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s-AAAAAA", got.ID)

	missing, err := store.Get(ctx, "BBBBBB")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStoreCreateCollision(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testSession("AAAAAA"), time.Hour))
	err := store.Create(ctx, testSession("AAAAAA"), time.Hour)
	assert.ErrorIs(t, err, ErrCodeTaken)
}

func TestMemoryStoreTTL(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testSession("AAAAAA"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	got, err := store.Get(ctx, "AAAAAA")
	require.NoError(t, err)
	assert.Nil(t, got)

	// The code is free again once the old session expired.
	assert.NoError(t, store.Create(ctx, testSession("AAAAAA"), time.Hour))
}

func TestMemoryStoreUpdate(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testSession("AAAAAA"), time.Hour))

	updated, err := store.Update(ctx, "AAAAAA", func(s *model.VotingSession) error {
		s.Recipes[0].Votes++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Recipes[0].Votes)

	_, err = store.Update(ctx, "BBBBBB", func(*model.VotingSession) error { return nil })
	assert.ErrorIs(t, err, ErrSessionGone)
}

func TestMemoryStoreUpdateAborts(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testSession("AAAAAA"), time.Hour))

	wantErr := assert.AnError
	_, err := store.Update(ctx, "AAAAAA", func(s *model.VotingSession) error {
		s.Recipes[0].Votes = 99
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	// An aborted update leaves the stored session untouched.
	got, err := store.Get(ctx, "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Recipes[0].Votes)
}

// TestMemoryStoreUpdateSerialized drives many concurrent read-modify-write
// updates against one session; with proper serialization no increment is
// lost.
func TestMemoryStoreUpdateSerialized(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testSession("AAAAAA"), time.Hour))

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "AAAAAA", func(s *model.VotingSession) error {
				s.Recipes[0].Votes++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, writers, got.Recipes[0].Votes)
}

func TestMemoryStoreCloneIsolation(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	original := testSession("AAAAAA")
	require.NoError(t, store.Create(ctx, original, time.Hour))

	// Mutating what Get returned must never leak back into the store.
	got, err := store.Get(ctx, "AAAAAA")
	require.NoError(t, err)
	got.Recipes[0].Votes = 42
	got.Users[0].HasVoted = true

	fresh, err := store.Get(ctx, "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Recipes[0].Votes)
	assert.False(t, fresh.Users[0].HasVoted)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testSession("AAAAAA"), time.Hour))
	require.NoError(t, store.Delete(ctx, "AAAAAA"))

	got, err := store.Get(ctx, "AAAAAA")
	require.NoError(t, err)
	assert.Nil(t, got)
}
