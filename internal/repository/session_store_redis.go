package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cnotv/recipes/internal/model"
)

const sessionKeyPrefix = "voting:session:"

// updateRetries bounds the optimistic-lock retry loop when concurrent
// writers race on the same session key.
const updateRetries = 5

type redisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore returns a store backed by Redis. Sessions are JSON
// values with a key TTL matching the session expiry, so expired sessions
// disappear without a reaper.
func NewRedisSessionStore(client *redis.Client) SessionStore {
	return &redisSessionStore{client: client}
}

func sessionKey(code string) string {
	return sessionKeyPrefix + code
}

func (s *redisSessionStore) Get(ctx context.Context, code string) (*model.VotingSession, error) {
	raw, err := s.client.Get(ctx, sessionKey(code)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session model.VotingSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", code, err)
	}
	return &session, nil
}

func (s *redisSessionStore) Create(ctx context.Context, session *model.VotingSession, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.Code, err)
	}
	ok, err := s.client.SetNX(ctx, sessionKey(session.Code), raw, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrCodeTaken
	}
	return nil
}

// Update runs fn inside a WATCH/MULTI transaction: if another writer
// touches the key between read and write the transaction fails and the
// whole read-modify-write is retried, so no vote is ever lost.
func (s *redisSessionStore) Update(ctx context.Context, code string, fn UpdateFunc) (*model.VotingSession, error) {
	key := sessionKey(code)
	var updated *model.VotingSession

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrSessionGone
		}
		if err != nil {
			return err
		}
		ttl, err := tx.TTL(ctx, key).Result()
		if err != nil {
			return err
		}

		session := &model.VotingSession{}
		if err := json.Unmarshal(raw, session); err != nil {
			return fmt.Errorf("decode session %s: %w", code, err)
		}
		if err := fn(session); err != nil {
			return err
		}
		out, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("encode session %s: %w", code, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = session
		return nil
	}

	for i := 0; i < updateRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("update session %s: too many concurrent writers", code)
}

func (s *redisSessionStore) Delete(ctx context.Context, code string) error {
	return s.client.Del(ctx, sessionKey(code)).Err()
}
