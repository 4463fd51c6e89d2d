package models

import "time"

// CacheEntry backs the database cache store used for rate limiting when no
// in-process store fits (multi-instance deployments).
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;type:varchar(255)" json:"key"`
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}
