package model

import "time"

// Session describes a legacy anonymous session reconstructed from a bearer
// token. Sessions are not persisted; the token itself is the only record of
// the session's existence.
type Session struct {
	SessionID string    `json:"session_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
