package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"shopsync/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

const (
	listingsKey  = "shopsync:remote:listings"
	batchLockKey = "shopsync:batch:lock"
)

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with the lock script loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// CacheListings stores the latest remote-listing snapshot with a TTL so
// the operator API can serve remote state without a live browser session.
func (c *Client) CacheListings(ctx context.Context, listings []models.RemoteListing, ttl time.Duration) error {
	data, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("failed to marshal listings: %w", err)
	}
	return c.rdb.Set(ctx, listingsKey, data, ttl).Err()
}

// GetCachedListings returns the last cached snapshot, or nil when the
// cache is empty or expired.
func (c *Client) GetCachedListings(ctx context.Context) ([]models.RemoteListing, error) {
	data, err := c.rdb.Get(ctx, listingsKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var listings []models.RemoteListing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached listings: %w", err)
	}
	return listings, nil
}

// AcquireBatchLock takes the exclusive batch lock. Returns false when
// another owner already holds it.
func (c *Client) AcquireBatchLock(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, batchLockKey, owner, ttl).Result()
}

// ReleaseBatchLock releases the lock if and only if owner still holds it.
func (c *Client) ReleaseBatchLock(ctx context.Context, owner string) error {
	return c.releaseScript.Run(ctx, c.rdb, []string{batchLockKey}, owner).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
