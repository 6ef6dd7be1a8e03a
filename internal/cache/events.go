// Package cache keeps short-lived copies of the event listings in
// Redis. Correctness never depends on it: the storage transaction owns
// seat accounting, so a stale or unavailable cache only costs a DB read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"time"

	"github.com/go-redis/redis/v8"
)

type EventCache struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewEventCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *EventCache {
	return &EventCache{Client: client, TTL: ttl, Logger: log}
}

func listKey(status string) string {
	return "events:" + status
}

// GetEvents returns the cached listing for a status, reporting a miss
// on any error.
func (c *EventCache) GetEvents(ctx context.Context, status string) ([]models.Event, bool) {
	if c == nil || c.Client == nil {
		return nil, false
	}

	raw, err := c.Client.Get(ctx, listKey(status)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.Logger.Warn("REDIS", fmt.Sprintf("cache read failed for %s: %v", listKey(status), err))
		return nil, false
	}

	var events []models.Event
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return nil, false
	}
	return events, true
}

func (c *EventCache) SetEvents(ctx context.Context, status string, events []models.Event) {
	if c == nil || c.Client == nil {
		return
	}

	raw, err := json.Marshal(events)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, listKey(status), raw, c.TTL).Err(); err != nil {
		c.Logger.Warn("REDIS", fmt.Sprintf("cache write failed for %s: %v", listKey(status), err))
	}
}

// InvalidateEvents drops both listings. Called whenever an event is
// submitted, verified, or booked.
func (c *EventCache) InvalidateEvents(ctx context.Context) {
	if c == nil || c.Client == nil {
		return
	}

	keys := []string{listKey(models.EventStatusPending), listKey(models.EventStatusVerified)}
	if err := c.Client.Del(ctx, keys...).Err(); err != nil {
		c.Logger.Warn("REDIS", fmt.Sprintf("cache invalidation failed: %v", err))
	}
}
