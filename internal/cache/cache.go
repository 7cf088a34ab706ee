package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/wnt/blinkwatch/internal/dashboard"
)

const (
	snapshotKeyPrefix = "blinkwatch:snapshot:"
	lastRefreshKey    = "blinkwatch:last_refresh"
)

// ErrSnapshotNotFound is returned when no live snapshot exists for an account
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Client publishes the latest snapshot of each account to Redis
type Client struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewClient connects to Redis. Snapshots expire after ttl.
func NewClient(redisURL string, ttl time.Duration, logger zerolog.Logger) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info().Str("redis_addr", opt.Addr).Int("redis_db", opt.DB).Msg("Connected to Redis successfully")

	return NewFromClient(client, ttl, logger), nil
}

// NewFromClient wraps an existing Redis client
func NewFromClient(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// SnapshotKey returns the Redis key holding an account's snapshot
func SnapshotKey(account string) string {
	return snapshotKeyPrefix + account
}

func (c *Client) Name() string {
	return "redis"
}

// Publish stores the snapshot and records the refresh time in one round trip
func (c *Client) Publish(ctx context.Context, snap *dashboard.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, SnapshotKey(snap.Account), payload, c.ttl)
		pipe.HSet(ctx, lastRefreshKey, snap.Account, snap.TakenAt.Unix())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	c.logger.Debug().
		Str("account", snap.Account).
		Str("cycle_id", snap.CycleID).
		Int("bytes", len(payload)).
		Msg("Published snapshot")

	return nil
}

// Latest returns the live snapshot of an account
func (c *Client) Latest(ctx context.Context, account string) (*dashboard.Snapshot, error) {
	payload, err := c.client.Get(ctx, SnapshotKey(account)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap dashboard.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// LastRefresh returns the last refresh time of every account that has
// published at least once
func (c *Client) LastRefresh(ctx context.Context) (map[string]time.Time, error) {
	result, err := c.client.HGetAll(ctx, lastRefreshKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get last refresh times: %w", err)
	}

	times := make(map[string]time.Time, len(result))
	for account, value := range result {
		unix, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			c.logger.Warn().Str("account", account).Str("value", value).Msg("Invalid last refresh value")
			continue
		}
		times[account] = time.Unix(unix, 0)
	}
	return times, nil
}

// Forget removes an account's snapshot and refresh time
func (c *Client) Forget(ctx context.Context, account string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, SnapshotKey(account))
		pipe.HDel(ctx, lastRefreshKey, account)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to forget account: %w", err)
	}
	return nil
}

// Prune forgets every account with a recorded refresh that is not in keep
// and returns the names it removed
func (c *Client) Prune(ctx context.Context, keep []string) ([]string, error) {
	times, err := c.LastRefresh(ctx)
	if err != nil {
		return nil, err
	}

	kept := make(map[string]bool, len(keep))
	for _, name := range keep {
		kept[name] = true
	}

	var removed []string
	for account := range times {
		if kept[account] {
			continue
		}
		if err := c.Forget(ctx, account); err != nil {
			return removed, err
		}
		removed = append(removed, account)
	}

	if len(removed) > 0 {
		c.logger.Info().Strs("accounts", removed).Msg("Pruned snapshots of unconfigured accounts")
	}
	return removed, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}
