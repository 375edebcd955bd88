package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
}

func newRedisStore(client *redis.Client) *redisStore {
	return &redisStore{client: client}
}

// storeRefreshToken saves the token hash and indexes it under the user so
// every session of an account can be revoked at once.
func (r *redisStore) storeRefreshToken(ctx context.Context, hash, userID string, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, refreshTokenKey(hash), userID, ttl)
	pipe.SAdd(ctx, userTokensKey(userID), hash)
	pipe.Expire(ctx, userTokensKey(userID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisStore) getRefreshToken(ctx context.Context, hash string) (string, error) {
	val, err := r.client.Get(ctx, refreshTokenKey(hash)).Result()
	if err != nil {
		return "", err
	}
	return val, nil
}

// takeRefreshToken deletes the token and reports whether it existed, so a
// token can be rotated only once even under concurrent refreshes.
func (r *redisStore) takeRefreshToken(ctx context.Context, hash, userID string) (bool, error) {
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, refreshTokenKey(hash))
	pipe.SRem(ctx, userTokensKey(userID), hash)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return del.Val() > 0, nil
}

func (r *redisStore) revokeAll(ctx context.Context, userID string) (int, error) {
	hashes, err := r.client.SMembers(ctx, userTokensKey(userID)).Result()
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, refreshTokenKey(h))
	}
	keys = append(keys, userTokensKey(userID))
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return 0, err
	}
	return len(hashes), nil
}

func refreshTokenKey(hash string) string {
	return fmt.Sprintf("refresh:token:%s", hash)
}

func userTokensKey(userID string) string {
	return fmt.Sprintf("refresh:user:%s", userID)
}
