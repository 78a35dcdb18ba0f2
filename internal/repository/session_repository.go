package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/learning-journal/internal/model"
)

// SessionRepo persists server-side session records.  Only the SHA-256 hash
// of the session id is stored.
type SessionRepo struct{ q sqlx.ExtContext }

// NewSessionRepo returns a SessionRepo bound to db.
func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{q: db} }

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	_, err := r.q.ExecContext(ctx,
		r.q.Rebind("INSERT INTO sessions (id_hash, user_id, issued_at, last_seen_at, expires_at) VALUES (?,?,?,?,?)"),
		s.IDHash, s.UserID, s.IssuedAt.UTC(), s.LastSeenAt.UTC(), s.ExpiresAt.UTC())
	return classify("create session", err)
}

// Get returns the session with the given id hash, expired or not.
func (r *SessionRepo) Get(ctx context.Context, idHash string) (model.Session, error) {
	var s model.Session
	err := sqlx.GetContext(ctx, r.q, &s,
		r.q.Rebind("SELECT id_hash, user_id, issued_at, last_seen_at, expires_at FROM sessions WHERE id_hash = ?"), idHash)
	return s, classify("get session", err)
}

// Touch slides the session window.
func (r *SessionRepo) Touch(ctx context.Context, idHash string, lastSeen, expiresAt time.Time) error {
	err := execOwned(ctx, r.q,
		"UPDATE sessions SET last_seen_at = ?, expires_at = ? WHERE id_hash = ?",
		lastSeen.UTC(), expiresAt.UTC(), idHash)
	return classify("touch session", err)
}

// Delete removes a session.  Deleting a missing session is not an error.
func (r *SessionRepo) Delete(ctx context.Context, idHash string) error {
	_, err := r.q.ExecContext(ctx, r.q.Rebind("DELETE FROM sessions WHERE id_hash = ?"), idHash)
	return classify("delete session", err)
}

// DeleteExpired removes every session that expired before t.
func (r *SessionRepo) DeleteExpired(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, r.q.Rebind("DELETE FROM sessions WHERE expires_at < ?"), t.UTC())
	if err != nil {
		return 0, classify("delete expired sessions", err)
	}
	n, err := res.RowsAffected()
	return n, classify("delete expired sessions", err)
}
