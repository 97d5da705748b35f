package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for the Postgres session store.
// Only used when the store backend is "postgres".
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&SessionRecord{})
}
