package model

import "time"

// SessionRecord is the Postgres row backing a voting session. The session
// itself is stored as a JSONB document; only the lookup key and expiry are
// lifted into columns.
type SessionRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Code      string    `gorm:"type:varchar(16);uniqueIndex;not null"`
	Data      []byte    `gorm:"type:jsonb;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SessionRecord) TableName() string { return "voting_sessions" }
