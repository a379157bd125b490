// Package cache publishes the latest snapshots to Redis so sibling
// frontend instances can serve status without running their own polls.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"platform-pulse/internal/plays"
	"platform-pulse/internal/status"
	"platform-pulse/internal/ticker"
)

const (
	statusKey = "pulsewatch:status"
	tickerKey = "pulsewatch:ticker"
	playsKey  = "pulsewatch:plays"
)

// Options parameterise the snapshot cache.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// SnapshotCache writes JSON snapshots with a TTL. All writes are
// best-effort; a dead Redis only costs freshness for the siblings.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New connects a snapshot cache.
func New(opts Options, logger zerolog.Logger) *SnapshotCache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SnapshotCache{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		ttl:    ttl,
		logger: logger.With().Str("component", "snapshot_cache").Logger(),
	}
}

// Ping verifies connectivity.
func (c *SnapshotCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the client.
func (c *SnapshotCache) Close() error {
	return c.client.Close()
}

// SetStatus publishes the latest connection-status snapshot.
func (c *SnapshotCache) SetStatus(ctx context.Context, snap status.Snapshot) {
	c.set(ctx, statusKey, snap)
}

// SetTicker publishes the latest ticker entries.
func (c *SnapshotCache) SetTicker(ctx context.Context, entries []ticker.Entry) {
	c.set(ctx, tickerKey, entries)
}

// SetNotifications publishes the currently visible toasts.
func (c *SnapshotCache) SetNotifications(ctx context.Context, notifications []plays.Notification) {
	c.set(ctx, playsKey, notifications)
}

func (c *SnapshotCache) set(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("marshal snapshot")
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
