package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBlacklistUnavailable is returned by Revoke when no Redis client is configured.
var ErrBlacklistUnavailable = errors.New("token blacklist unavailable")

func BlacklistKey(jti string) string {
	return "blacklist:" + jti
}

// TokenBlacklist stores revoked token ids until their natural expiry.
type TokenBlacklist struct{}

// Revoke blacklists jti for ttl. Already expired tokens are ignored.
func (TokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	rdb := GetClient()
	if rdb == nil {
		return ErrBlacklistUnavailable
	}
	return rdb.Set(ctx, BlacklistKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti was blacklisted. Without Redis nothing is revoked.
func (TokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	rdb := GetClient()
	if rdb == nil {
		return false, nil
	}
	err := rdb.Get(ctx, BlacklistKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
