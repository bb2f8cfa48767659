package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrRedisUnavailable = errors.New("redis unavailable")

const RevokedTokenPrefix = "auth:token:revoked:"

// SessionRepository 登出后的令牌吊销表，键保留到令牌自身过期
type SessionRepository struct {
	Client *redis.Client
}

func (r *SessionRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		// 已过期的令牌不需要记录
		return nil
	}
	if err := r.Client.Set(ctx, RevokedTokenPrefix+tokenID, 1, ttl).Err(); err != nil {
		return errors.Join(ErrRedisUnavailable, err)
	}
	return nil
}

func (r *SessionRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.Client.Exists(ctx, RevokedTokenPrefix+tokenID).Result()
	if err != nil {
		return false, errors.Join(ErrRedisUnavailable, err)
	}
	return n > 0, nil
}
