package cache

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the Redis connection settings for the auth cache.
type Config struct {
	Addr         string
	Password     string
	UsersHashKey string
}

// Client caches email+password-hash → user id lookups so the auth
// middleware does not hit Postgres on every request.
type Client struct {
	rdb          *redis.Client
	usersHashKey string
}

func NewClient(cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{
		rdb:          rdb,
		usersHashKey: cfg.UsersHashKey,
	}, nil
}

func authCacheKey(email, passwordHash string) string {
	return base64.StdEncoding.EncodeToString([]byte(email + ":" + passwordHash))
}

func (c *Client) GetUserIDByAuth(ctx context.Context, email, passwordHash string) (int64, error) {
	userIDStr, err := c.rdb.HGet(ctx, c.usersHashKey, authCacheKey(email, passwordHash)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, fmt.Errorf("user not found in cache")
		}
		return 0, fmt.Errorf("cache lookup error: %w", err)
	}

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID in cache: %w", err)
	}

	return userID, nil
}

// SetUserAuth stores a verified credential pair after a DB fallback hit.
func (c *Client) SetUserAuth(ctx context.Context, email, passwordHash string, userID int64) error {
	return c.rdb.HSet(ctx, c.usersHashKey, authCacheKey(email, passwordHash), strconv.FormatInt(userID, 10)).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
