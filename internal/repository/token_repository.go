package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	revokedKeyPrefix   = "auth:revoked:"
	suspendedKeyPrefix = "auth:suspended:"
)

// RedisTokenRepository keeps revoked token ids until the token would have
// expired anyway, and the ids of suspended accounts until they are
// reinstated.
type RedisTokenRepository struct {
	Redis *redis.Client
}

func NewRedisTokenRepository(rdb *redis.Client) *RedisTokenRepository {
	return &RedisTokenRepository{Redis: rdb}
}

func (r *RedisTokenRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.Redis.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

func (r *RedisTokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.Redis.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func suspendedKey(userID uint) string {
	return suspendedKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

func (r *RedisTokenRepository) SetSuspended(ctx context.Context, userID uint, suspended bool) error {
	if !suspended {
		return r.Redis.Del(ctx, suspendedKey(userID)).Err()
	}
	return r.Redis.Set(ctx, suspendedKey(userID), "1", 0).Err()
}

func (r *RedisTokenRepository) IsSuspended(ctx context.Context, userID uint) (bool, error) {
	n, err := r.Redis.Exists(ctx, suspendedKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryTokenRepository is the single-node fallback used when Redis is
// disabled.
type MemoryTokenRepository struct {
	mu        sync.Mutex
	revoked   map[string]time.Time
	suspended map[uint]struct{}
}

func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{
		revoked:   make(map[string]time.Time),
		suspended: make(map[uint]struct{}),
	}
}

func (r *MemoryTokenRepository) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for id, exp := range r.revoked {
		if now.After(exp) {
			delete(r.revoked, id)
		}
	}
	r.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (r *MemoryTokenRepository) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(r.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

func (r *MemoryTokenRepository) SetSuspended(_ context.Context, userID uint, suspended bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if suspended {
		r.suspended[userID] = struct{}{}
	} else {
		delete(r.suspended, userID)
	}
	return nil
}

func (r *MemoryTokenRepository) IsSuspended(_ context.Context, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.suspended[userID]
	return ok, nil
}
