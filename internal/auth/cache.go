package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/contactkeeper/contacts-service/internal/model"
)

// userCacheTTL is how long a resolved user stays cached between requests.
const userCacheTTL = 15 * time.Minute

// UserCache caches the authenticated user between requests so that the auth
// middleware does not hit the database on every call. A cache miss returns
// (nil, nil); cache failures must never break a request.
type UserCache interface {
	Get(ctx context.Context, email string) (*model.User, error)
	Set(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, email string) error
}

// RedisUserCache is the Redis-backed UserCache used in production.
type RedisUserCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisUserCache creates a user cache on the given Redis client.
func NewRedisUserCache(client *redis.Client, logger *zap.Logger) *RedisUserCache {
	return &RedisUserCache{client: client, logger: logger.Named("UserCache")}
}

func userKey(email string) string {
	return fmt.Sprintf("user:%s", email)
}

// Get returns the cached user for the email, or nil on a miss.
func (c *RedisUserCache) Get(ctx context.Context, email string) (*model.User, error) {
	payload, err := c.client.Get(ctx, userKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached user: %w", err)
	}
	var user model.User
	if err := json.Unmarshal(payload, &user); err != nil {
		// A corrupt entry behaves like a miss; the next Set overwrites it.
		c.logger.Warn("Dropping unreadable cache entry", zap.String("email", email), zap.Error(err))
		return nil, nil
	}
	return &user, nil
}

// Set stores the user under its email for userCacheTTL.
func (c *RedisUserCache) Set(ctx context.Context, user *model.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user for cache: %w", err)
	}
	if err := c.client.Set(ctx, userKey(user.Email), payload, userCacheTTL).Err(); err != nil {
		return fmt.Errorf("cache user: %w", err)
	}
	return nil
}

// Delete evicts the cached user, forcing the next request to reload it from
// the database.
func (c *RedisUserCache) Delete(ctx context.Context, email string) error {
	if err := c.client.Del(ctx, userKey(email)).Err(); err != nil {
		return fmt.Errorf("evict cached user: %w", err)
	}
	return nil
}
