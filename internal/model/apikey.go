package model

import "time"

// APIKey represents a long-lived credential presented via the X-API-Key
// header. The raw key is never stored; only a SHA-256 hash and a short
// prefix for identification are persisted.
type APIKey struct {
	ID        int64     `json:"id" db:"id"`
	KeyHash   string    `json:"-" db:"key_hash"`            // SHA-256 hash, never expose
	KeyPrefix string    `json:"key_prefix" db:"key_prefix"` // First chars for identification
	Name      string    `json:"name" db:"name"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
