// Package session establishes, resolves and destroys login sessions.
//
// A session is a server-side record keyed by the SHA-256 hash of a random
// id.  The browser holds an HS256-signed cookie binding that id to a user.
// The signature only proves the cookie was issued here; liveness is decided
// by the record, whose expiry slides forward on every authenticated request.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/learning-journal/internal/logger"
	"github.com/iliyamo/learning-journal/internal/model"
	"github.com/iliyamo/learning-journal/internal/repository"
	"github.com/iliyamo/learning-journal/internal/utils"
)

// DefaultTTL is the inactivity window after which a session expires.
const DefaultTTL = 30 * time.Minute

// ErrNotFound is returned by a Store when no record exists for an id hash.
var ErrNotFound = errors.New("session not found")

// Principal is the identity an operation acts as.  The zero value is the
// anonymous principal.
type Principal struct {
	UserID    uint64
	SessionID string // hash of the session id, empty when anonymous
}

// Anonymous is the principal of a request without a live session.
var Anonymous = Principal{}

// Authenticated reports whether p names a user.
func (p Principal) Authenticated() bool { return p.UserID != 0 }

// Store persists session records.
type Store interface {
	Create(ctx context.Context, s model.Session) error
	Get(ctx context.Context, idHash string) (model.Session, error)
	Touch(ctx context.Context, idHash string, lastSeen, expiresAt time.Time) error
	Delete(ctx context.Context, idHash string) error
}

// Users is the subset of the user repository the manager needs to check
// that a session's user still exists.
type Users interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Manager issues and validates session cookies.
type Manager struct {
	store  Store
	users  Users
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a Manager.  A non-positive ttl selects DefaultTTL.
func NewManager(store Store, users Users, secret []byte, ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{store: store, users: users, secret: secret, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

// TTL returns the inactivity window.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Establish creates a session for userID and returns the signed cookie value.
func (m *Manager) Establish(ctx context.Context, userID uint64) (string, Principal, error) {
	id, err := utils.NewSessionID()
	if err != nil {
		return "", Anonymous, fmt.Errorf("generate session id: %w", err)
	}
	t := m.now().UTC()
	rec := model.Session{
		IDHash:     utils.HashToken(id),
		UserID:     userID,
		IssuedAt:   t,
		LastSeenAt: t,
		ExpiresAt:  t.Add(m.ttl),
	}
	if err := m.store.Create(ctx, rec); err != nil {
		return "", Anonymous, err
	}
	token, err := utils.SignSessionToken(m.secret, id, userID, t)
	if err != nil {
		_ = m.store.Delete(ctx, rec.IDHash)
		return "", Anonymous, fmt.Errorf("sign session token: %w", err)
	}
	return token, Principal{UserID: userID, SessionID: rec.IDHash}, nil
}

// Resolve turns a cookie value into a principal.  A malformed, forged,
// unknown or expired token resolves to Anonymous with a nil error; an
// expired or orphaned record is removed.  Only storage failures are
// returned as errors.  A successful resolve slides the expiry forward.
func (m *Manager) Resolve(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Anonymous, nil
	}
	claims, err := utils.ParseSessionToken(m.secret, token)
	if err != nil {
		return Anonymous, nil
	}
	userID, _ := claims.UserID()
	idHash := utils.HashToken(claims.SessionID)

	rec, err := m.store.Get(ctx, idHash)
	if errors.Is(err, ErrNotFound) {
		return Anonymous, nil
	}
	if err != nil {
		return Anonymous, err
	}
	if rec.UserID != userID {
		logger.Warn("session cookie subject does not match record", "user_id", userID)
		return Anonymous, nil
	}

	t := m.now().UTC()
	if !t.Before(rec.ExpiresAt) {
		if err := m.store.Delete(ctx, idHash); err != nil {
			logger.Warn("failed to delete expired session", "err", err)
		}
		return Anonymous, nil
	}

	if _, err := m.users.GetByID(ctx, rec.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = m.store.Delete(ctx, idHash)
			return Anonymous, nil
		}
		return Anonymous, err
	}

	if err := m.store.Touch(ctx, idHash, t, t.Add(m.ttl)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Anonymous, nil
		}
		return Anonymous, err
	}
	return Principal{UserID: rec.UserID, SessionID: idHash}, nil
}

// Destroy removes the session named by token.  It is idempotent: invalid
// tokens and already-removed sessions are not errors.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	claims, err := utils.ParseSessionToken(m.secret, token)
	if err != nil {
		return nil
	}
	return m.DestroyPrincipal(ctx, Principal{SessionID: utils.HashToken(claims.SessionID)})
}

// DestroyPrincipal removes the session p was resolved from.
func (m *Manager) DestroyPrincipal(ctx context.Context, p Principal) error {
	if p.SessionID == "" {
		return nil
	}
	if err := m.store.Delete(ctx, p.SessionID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
