package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"rental-backoffice/backend/internal/session/domain"
)

// Key layout: one hash per refresh token holding the session fields, plus one set per
// user listing that user's token keys. Hash keys expire with the refresh token.
const (
	tokenKeyPrefix = "session:token:"
	userKeyPrefix  = "session:user:"
)

// KEYS[1] token hash, KEYS[2] user set. ARGV: token, id, user_id, created_at, expires_at (unix ms).
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'id', ARGV[2], 'user_id', ARGV[3], 'created_at', ARGV[4], 'expires_at', ARGV[5])
redis.call('PEXPIREAT', KEYS[1], ARGV[5])
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

// KEYS[1] token hash, KEYS[2] user set. ARGV[1] token, ARGV[2] user id.
var consumeScript = redis.NewScript(`
local uid = redis.call('HGET', KEYS[1], 'user_id')
if not uid or uid ~= ARGV[2] then
  return false
end
local fields = redis.call('HGETALL', KEYS[1])
redis.call('DEL', KEYS[1])
redis.call('SREM', KEYS[2], ARGV[1])
return fields
`)

// KEYS[1] token hash. ARGV[1] token, ARGV[2] user key prefix.
var deleteScript = redis.NewScript(`
local uid = redis.call('HGET', KEYS[1], 'user_id')
if not uid then
  return 0
end
redis.call('DEL', KEYS[1])
redis.call('SREM', ARGV[2] .. uid, ARGV[1])
return 1
`)

// KEYS[1] user set. ARGV[1] token key prefix.
var deleteAllScript = redis.NewScript(`
local tokens = redis.call('SMEMBERS', KEYS[1])
local n = 0
for _, tok in ipairs(tokens) do
  n = n + redis.call('DEL', ARGV[1] .. tok)
end
redis.call('DEL', KEYS[1])
return n
`)

// RedisRepository stores sessions in Redis. Multi-key operations run as Lua scripts so each
// one is atomic with respect to other clients.
type RedisRepository struct {
	rdb redis.UniversalClient
}

// NewRedisRepository returns a session repository backed by rdb.
func NewRedisRepository(rdb redis.UniversalClient) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

func (r *RedisRepository) Create(ctx context.Context, s *domain.Session) error {
	ok, err := createScript.Run(ctx, r.rdb,
		[]string{tokenKey(s.TokenValue), userKey(s.UserID)},
		s.TokenValue, s.ID, s.UserID, s.CreatedAt.UnixMilli(), s.ExpiresAt.UnixMilli(),
	).Int()
	if err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}
	if ok == 0 {
		return ErrDuplicateToken
	}
	return nil
}

func (r *RedisRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	fields, err := r.rdb.HGetAll(ctx, tokenKey(token)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return sessionFromFields(token, fields)
}

func (r *RedisRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	n, err := deleteScript.Run(ctx, r.rdb, []string{tokenKey(token)}, token, userKeyPrefix).Int()
	if err != nil {
		return false, fmt.Errorf("redis delete session: %w", err)
	}
	return n == 1, nil
}

func (r *RedisRepository) ConsumeByToken(ctx context.Context, token, userID string) (*domain.Session, error) {
	flat, err := consumeScript.Run(ctx, r.rdb, []string{tokenKey(token), userKey(userID)}, token, userID).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis consume session: %w", err)
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		fields[flat[i]] = flat[i+1]
	}
	return sessionFromFields(token, fields)
}

func (r *RedisRepository) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	n, err := deleteAllScript.Run(ctx, r.rdb, []string{userKey(userID)}, tokenKeyPrefix).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis delete user sessions: %w", err)
	}
	return n, nil
}

// DeleteExpired drops token hashes that have passed before and prunes user sets of members
// whose hash is already gone (Redis evicts expired hashes on its own).
func (r *RedisRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	iter := r.rdb.Scan(ctx, 0, userKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		setKey := iter.Val()
		tokens, err := r.rdb.SMembers(ctx, setKey).Result()
		if err != nil {
			return removed, err
		}
		for _, tok := range tokens {
			raw, err := r.rdb.HGet(ctx, tokenKey(tok), "expires_at").Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return removed, err
			}
			if err == nil {
				ms, perr := strconv.ParseInt(raw, 10, 64)
				if perr == nil && time.UnixMilli(ms).After(before) {
					continue
				}
				del, err := r.rdb.Del(ctx, tokenKey(tok)).Result()
				if err != nil {
					return removed, err
				}
				removed += del
			}
			if err := r.rdb.SRem(ctx, setKey, tok).Err(); err != nil {
				return removed, err
			}
		}
	}
	return removed, iter.Err()
}

func tokenKey(token string) string { return tokenKeyPrefix + token }

func userKey(userID string) string { return userKeyPrefix + userID }

func sessionFromFields(token string, f map[string]string) (*domain.Session, error) {
	created, err := strconv.ParseInt(f["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis session created_at: %w", err)
	}
	expires, err := strconv.ParseInt(f["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis session expires_at: %w", err)
	}
	return &domain.Session{
		ID:         f["id"],
		UserID:     f["user_id"],
		TokenValue: token,
		CreatedAt:  time.UnixMilli(created).UTC(),
		ExpiresAt:  time.UnixMilli(expires).UTC(),
	}, nil
}
