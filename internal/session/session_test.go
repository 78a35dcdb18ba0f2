package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/learning-journal/internal/config"
	"github.com/iliyamo/learning-journal/internal/database"
	"github.com/iliyamo/learning-journal/internal/model"
	"github.com/iliyamo/learning-journal/internal/repository"
	"github.com/iliyamo/learning-journal/internal/utils"
)

var secret = []byte("test-secret")

type memStore struct {
	mu   sync.Mutex
	recs map[string]model.Session
	err  error
}

func newMemStore() *memStore { return &memStore{recs: map[string]model.Session{}} }

func (s *memStore) Create(_ context.Context, rec model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.IDHash] = rec
	return nil
}

func (s *memStore) Get(_ context.Context, idHash string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.Session{}, s.err
	}
	rec, ok := s.recs[idHash]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return rec, nil
}

func (s *memStore) Touch(_ context.Context, idHash string, lastSeen, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[idHash]
	if !ok {
		return ErrNotFound
	}
	rec.LastSeenAt, rec.ExpiresAt = lastSeen, expiresAt
	s.recs[idHash] = rec
	return nil
}

func (s *memStore) Delete(_ context.Context, idHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, idHash)
	return nil
}

type fakeUsers map[uint64]bool

func (f fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	if !f[id] {
		return model.User{}, repository.ErrNotFound
	}
	return model.User{ID: id}, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(store Store, users Users) (*Manager, *clock) {
	c := &clock{t: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)}
	return NewManager(store, users, secret, 30*time.Minute, WithClock(c.now)), c
}

func TestEstablishAndResolve(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, _ := newTestManager(store, fakeUsers{7: true})

	token, p, err := m.Establish(ctx, 7)
	require.NoError(t, err)
	assert.True(t, p.Authenticated())
	assert.Len(t, store.recs, 1)

	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	// the raw id is never stored
	claims, err := utils.ParseSessionToken(secret, token)
	require.NoError(t, err)
	_, stored := store.recs[claims.SessionID]
	assert.False(t, stored)
}

func TestResolveSlidesExpiry(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, c := newTestManager(store, fakeUsers{7: true})

	token, _, err := m.Establish(ctx, 7)
	require.NoError(t, err)

	// three requests 20 minutes apart stay within the sliding window
	for i := 0; i < 3; i++ {
		c.advance(20 * time.Minute)
		p, err := m.Resolve(ctx, token)
		require.NoError(t, err)
		assert.True(t, p.Authenticated(), "request %d", i)
	}

	c.advance(31 * time.Minute)
	p, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, p.Authenticated())
	assert.Empty(t, store.recs, "expired record is removed")
}

func TestResolveRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, _ := newTestManager(store, fakeUsers{7: true})

	forged, err := utils.SignSessionToken([]byte("other"), "abc", 7, time.Now())
	require.NoError(t, err)
	unknown, err := utils.SignSessionToken(secret, "never-issued", 7, time.Now())
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":   "",
		"garbage": "not-a-token",
		"forged":  forged,
		"unknown": unknown,
	} {
		p, err := m.Resolve(ctx, token)
		require.NoError(t, err, name)
		assert.Equal(t, Anonymous, p, name)
	}
}

func TestResolveRejectsMismatchedSubject(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, _ := newTestManager(store, fakeUsers{7: true, 8: true})

	token, _, err := m.Establish(ctx, 7)
	require.NoError(t, err)
	claims, err := utils.ParseSessionToken(secret, token)
	require.NoError(t, err)

	swapped, err := utils.SignSessionToken(secret, claims.SessionID, 8, time.Now())
	require.NoError(t, err)
	p, err := m.Resolve(ctx, swapped)
	require.NoError(t, err)
	assert.False(t, p.Authenticated())
}

func TestResolveDropsSessionOfDeletedUser(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	users := fakeUsers{7: true}
	m, _ := newTestManager(store, users)

	token, _, err := m.Establish(ctx, 7)
	require.NoError(t, err)
	delete(users, 7)

	p, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, p.Authenticated())
	assert.Empty(t, store.recs)
}

func TestResolveReportsStorageFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, _ := newTestManager(store, fakeUsers{7: true})

	token, _, err := m.Establish(ctx, 7)
	require.NoError(t, err)
	store.err = errors.New("disk on fire")

	_, err = m.Resolve(ctx, token)
	assert.Error(t, err)
}

func TestDestroyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, _ := newTestManager(store, fakeUsers{7: true})

	token, _, err := m.Establish(ctx, 7)
	require.NoError(t, err)

	require.NoError(t, m.Destroy(ctx, token))
	require.NoError(t, m.Destroy(ctx, token))
	require.NoError(t, m.Destroy(ctx, "garbage"))
	require.NoError(t, m.DestroyPrincipal(ctx, Anonymous))

	p, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, p.Authenticated())
}

func TestSQLStore(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(config.DBConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "journal.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	repos := repository.NewStore(db).Repos()
	u := model.User{FirstName: "Ann", LastName: "Lee", Username: "ann_lee", Email: "ann@x.com", PasswordHash: "x"}
	require.NoError(t, repos.Users.Create(ctx, &u))

	m, c := newTestManager(NewSQLStore(repos.Sessions), repos.Users)
	token, _, err := m.Establish(ctx, u.ID)
	require.NoError(t, err)

	c.advance(10 * time.Minute)
	p, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)

	require.NoError(t, m.Destroy(ctx, token))
	p, err = m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, p.Authenticated())
}

func TestRedisEncoding(t *testing.T) {
	t0 := time.Date(2024, 3, 5, 10, 0, 0, 123456789, time.UTC)
	rec := model.Session{IDHash: "h", UserID: 42, IssuedAt: t0, LastSeenAt: t0.Add(time.Minute), ExpiresAt: t0.Add(31 * time.Minute)}

	fields := map[string]string{}
	for k, v := range encodeSession(rec) {
		fields[k] = v.(string)
	}
	got, err := decodeSession("h", fields)
	require.NoError(t, err)
	assert.Equal(t, rec.UserID, got.UserID)
	assert.True(t, got.IssuedAt.Equal(rec.IssuedAt))
	assert.True(t, got.ExpiresAt.Equal(rec.ExpiresAt))
	assert.Equal(t, "session:h", redisKey("h"))

	fields["user_id"] = "x"
	_, err = decodeSession("h", fields)
	assert.Error(t, err)
}

func TestRedisIncompleteHash(t *testing.T) {
	t0 := time.Now().UTC()
	full := map[string]string{}
	for k, v := range encodeSession(model.Session{UserID: 7, IssuedAt: t0, LastSeenAt: t0, ExpiresAt: t0}) {
		full[k] = v.(string)
	}
	assert.False(t, incomplete(full))

	// only the fields a touch writes
	partial := map[string]string{"last_seen_at": full["last_seen_at"], "expires_at": full["expires_at"]}
	assert.True(t, incomplete(partial))
}
