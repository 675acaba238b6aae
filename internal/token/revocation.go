package token

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/account-service/internal/model"
)

// RevocationStore records token ids that must no longer be honored.
//
// Revoke is idempotent.  IsRevoked is true only while the entry's own
// expiry is in the future.  Sweep deletes entries that expired before now
// and returns how many were removed.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, kind model.TokenKind, userID uint64, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

// RedisRevocationStore keeps one key per revoked jti with a TTL equal to
// the token's remaining lifetime, so Redis expires entries itself.
type RedisRevocationStore struct {
	rdb    redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisRevocationStore returns a store writing keys under prefix.
func NewRedisRevocationStore(rdb redis.Cmdable, prefix string) *RedisRevocationStore {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisRevocationStore{rdb: rdb, prefix: prefix, now: time.Now}
}

func (s *RedisRevocationStore) key(jti string) string {
	return s.prefix + ":" + jti
}

// Revoke sets the key only if absent (SET NX) so the first revocation wins.
// A token that has already expired needs no entry.
func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, kind model.TokenKind, userID uint64, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	val := string(kind) + ":" + strconv.FormatUint(userID, 10)
	if err := s.rdb.SetNX(ctx, s.key(jti), val, ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke %s: %w", jti, err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", jti, err)
	}
	return n > 0, nil
}

// Sweep is a no-op: keys carry their own TTL.
func (s *RedisRevocationStore) Sweep(context.Context, time.Time) (int64, error) {
	return 0, nil
}
