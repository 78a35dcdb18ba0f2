package model

import "time"

// Session models a row in the `sessions` table (or the equivalent Redis
// hash).  Only a SHA‑256 hash of the session id is stored.
//
// Fields:
//
//	IDHash     – SHA‑256 hex digest of the raw session id.
//	UserID     – the authenticated user.
//	IssuedAt   – when the session was established.
//	LastSeenAt – last successful use.
//	ExpiresAt  – end of the current sliding window.
type Session struct {
	IDHash     string    `db:"id_hash"`
	UserID     uint64    `db:"user_id"`
	IssuedAt   time.Time `db:"issued_at"`
	LastSeenAt time.Time `db:"last_seen_at"`
	ExpiresAt  time.Time `db:"expires_at"`
}
