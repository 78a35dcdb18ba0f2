package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/learning-journal/internal/model"
)

const redisKeyPrefix = "session:"

// touchScript slides a session only if its key still exists, so a key that
// expires mid-request is never recreated as a partial hash.
var touchScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "last_seen_at", ARGV[1], "expires_at", ARGV[2])
redis.call("PEXPIREAT", KEYS[1], ARGV[3])
return 1
`)

// RedisStore keeps each session in a hash whose key expires together with
// the session, so Redis evicts dead sessions on its own.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps a connected client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(idHash string) string { return redisKeyPrefix + idHash }

func (s *RedisStore) Create(ctx context.Context, rec model.Session) error {
	key := redisKey(rec.IDHash)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, encodeSession(rec))
		p.ExpireAt(ctx, key, rec.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, idHash string) (model.Session, error) {
	fields, err := s.rdb.HGetAll(ctx, redisKey(idHash)).Result()
	if err != nil {
		return model.Session{}, fmt.Errorf("redis get session: %w", err)
	}
	if len(fields) == 0 {
		return model.Session{}, ErrNotFound
	}
	if incomplete(fields) {
		_ = s.rdb.Del(ctx, redisKey(idHash)).Err()
		return model.Session{}, ErrNotFound
	}
	rec, err := decodeSession(idHash, fields)
	if err != nil {
		return model.Session{}, err
	}
	return rec, nil
}

func (s *RedisStore) Touch(ctx context.Context, idHash string, lastSeen, expiresAt time.Time) error {
	n, err := touchScript.Run(ctx, s.rdb, []string{redisKey(idHash)},
		formatTime(lastSeen), formatTime(expiresAt), expiresAt.UnixMilli()).Int()
	if err != nil {
		return fmt.Errorf("redis touch session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, idHash string) error {
	if err := s.rdb.Del(ctx, redisKey(idHash)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func encodeSession(rec model.Session) map[string]any {
	return map[string]any{
		"user_id":      strconv.FormatUint(rec.UserID, 10),
		"issued_at":    formatTime(rec.IssuedAt),
		"last_seen_at": formatTime(rec.LastSeenAt),
		"expires_at":   formatTime(rec.ExpiresAt),
	}
}

// incomplete reports a hash that lost its identifying fields.
func incomplete(fields map[string]string) bool {
	return fields["user_id"] == "" || fields["issued_at"] == ""
}

func decodeSession(idHash string, fields map[string]string) (model.Session, error) {
	rec := model.Session{IDHash: idHash}
	var err error
	if rec.UserID, err = strconv.ParseUint(fields["user_id"], 10, 64); err != nil {
		return rec, fmt.Errorf("decode session user_id: %w", err)
	}
	for name, dst := range map[string]*time.Time{
		"issued_at":    &rec.IssuedAt,
		"last_seen_at": &rec.LastSeenAt,
		"expires_at":   &rec.ExpiresAt,
	} {
		if *dst, err = time.Parse(time.RFC3339Nano, fields[name]); err != nil {
			return rec, fmt.Errorf("decode session %s: %w", name, err)
		}
	}
	return rec, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }
