package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"custodia/internal/assetregistry"
)

const keyPrefix = "custodia:verify:"

// Redis caches verification aggregates in Redis so every instance behind a
// load balancer shares one cache. Failures are logged and treated as misses;
// the registry must keep working when Redis is down.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func (c *Redis) Get(ctx context.Context, serial string) (*assetregistry.Verification, bool) {
	payload, err := c.client.Get(ctx, keyPrefix+serial).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("verification cache read failed", slog.String("error", err.Error()))
		}
		return nil, false
	}
	var v assetregistry.Verification
	if err := json.Unmarshal(payload, &v); err != nil {
		c.logger.Warn("verification cache entry corrupt, dropping",
			slog.String("serial_number", serial))
		c.client.Del(ctx, keyPrefix+serial)
		return nil, false
	}
	return &v, true
}

func (c *Redis) Set(ctx context.Context, serial string, v *assetregistry.Verification) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("verification cache marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := c.client.Set(ctx, keyPrefix+serial, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("verification cache write failed", slog.String("error", err.Error()))
	}
}

func (c *Redis) Invalidate(ctx context.Context, serial string) {
	if err := c.client.Del(ctx, keyPrefix+serial).Err(); err != nil {
		c.logger.Warn("verification cache invalidate failed", slog.String("error", err.Error()))
	}
}
