package models

import "time"

// CacheEntry is one row of the SQL fallback cache used for rate-limit
// windows and MX lookups when redis is off. A zero ExpiresAt never expires.
// The key column is named cache_key because KEY is reserved in MySQL.
type CacheEntry struct {
	Key       string    `gorm:"column:cache_key;primaryKey;size:255"`
	Value     []byte    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table regardless of naming strategy.
func (CacheEntry) TableName() string { return "cache_entries" }

// LiveAt reports whether the entry is still valid at now.
func (e CacheEntry) LiveAt(now time.Time) bool {
	return e.ExpiresAt.IsZero() || now.Before(e.ExpiresAt)
}
