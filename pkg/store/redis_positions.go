package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	pblog "github.com/pipeboard/pipeboard/pkg/log"
)

const redisOpTimeout = 2 * time.Second

// redisPositionCache keeps node placements in a Redis hash keyed by canvas,
// so they survive session restarts. Same contract as the in-memory cache;
// Redis errors degrade to cache misses rather than failing the render path.
type redisPositionCache struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

func NewRedisPositionCache(client *redis.Client, canvasID string) PositionCache {
	return &redisPositionCache{
		client: client,
		key:    "pipeboard:positions:" + canvasID,
		logger: pblog.WithModule("store"),
	}
}

func (c *redisPositionCache) Get(nodeID string) (Position, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := c.client.HGet(ctx, c.key, nodeID).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("position lookup failed", "node_id", nodeID, "error", err)
		}

		return Position{}, false
	}

	var position Position
	if err := json.Unmarshal([]byte(raw), &position); err != nil {
		c.logger.Warn("corrupt cached position", "node_id", nodeID, "error", err)

		return Position{}, false
	}

	return position, true
}

func (c *redisPositionCache) Set(nodeID string, position Position) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := json.Marshal(position)
	if err != nil {
		return
	}

	if err := c.client.HSet(ctx, c.key, nodeID, raw).Err(); err != nil {
		c.logger.Warn("position write failed", "node_id", nodeID, "error", err)
	}
}

func (c *redisPositionCache) Snapshot() map[string]Position {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	entries, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		c.logger.Warn("position snapshot failed", "error", err)

		return map[string]Position{}
	}

	snapshot := make(map[string]Position, len(entries))

	for nodeID, raw := range entries {
		var position Position
		if err := json.Unmarshal([]byte(raw), &position); err != nil {
			continue
		}

		snapshot[nodeID] = position
	}

	return snapshot
}

func (c *redisPositionCache) Reset() {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		c.logger.Warn("position reset failed", "error", err)
	}
}
