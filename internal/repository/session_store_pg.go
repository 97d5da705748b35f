package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cnotv/recipes/internal/model"
)

type pgSessionStore struct {
	db *gorm.DB
}

// NewPGSessionStore returns a store backed by Postgres. Each session is one
// JSONB row keyed by code; expired rows are treated as absent and deleted
// opportunistically on read.
func NewPGSessionStore(db *gorm.DB) SessionStore {
	return &pgSessionStore{db: db}
}

func (s *pgSessionStore) Get(ctx context.Context, code string) (*model.VotingSession, error) {
	var record model.SessionRecord
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(record.ExpiresAt) {
		s.db.WithContext(ctx).Delete(&model.SessionRecord{}, record.ID)
		return nil, nil
	}
	return decodeRecord(&record)
}

func (s *pgSessionStore) Create(ctx context.Context, session *model.VotingSession, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.Code, err)
	}
	record := model.SessionRecord{
		Code:      session.Code,
		Data:      raw,
		ExpiresAt: time.Now().Add(ttl),
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Reclaim the code if it is only held by an expired session.
		if err := tx.Where("code = ? AND expires_at <= ?", session.Code, time.Now()).
			Delete(&model.SessionRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrCodeTaken
			}
			return err
		}
		return nil
	})
}

// Update locks the row with SELECT ... FOR UPDATE for the duration of the
// read-modify-write, serializing concurrent votes on the same session.
func (s *pgSessionStore) Update(ctx context.Context, code string, fn UpdateFunc) (*model.VotingSession, error) {
	var updated *model.VotingSession

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record model.SessionRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionGone
		}
		if err != nil {
			return err
		}
		if time.Now().After(record.ExpiresAt) {
			return ErrSessionGone
		}

		session, err := decodeRecord(&record)
		if err != nil {
			return err
		}
		if err := fn(session); err != nil {
			return err
		}
		raw, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("encode session %s: %w", code, err)
		}

		if err := tx.Model(&record).UpdateColumn("data", raw).Error; err != nil {
			return err
		}
		updated = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *pgSessionStore) Delete(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).Where("code = ?", code).Delete(&model.SessionRecord{}).Error
}

func decodeRecord(record *model.SessionRecord) (*model.VotingSession, error) {
	var session model.VotingSession
	if err := json.Unmarshal(record.Data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", record.Code, err)
	}
	return &session, nil
}
