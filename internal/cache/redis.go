package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikhailRaia/codekeeper/internal/model"
)

const (
	keyPrefix = "code:"
	// tombstoneValue is never valid JSON for a mapping.
	tombstoneValue = "-"
)

// Redis shares cached mappings between instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	hold   time.Duration
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &Redis{client: client, ttl: ttl, hold: tombstoneTTL(ttl)}, nil
}

func (c *Redis) Get(ctx context.Context, code string) (model.URLMapping, error) {
	data, err := c.client.Get(ctx, key(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.URLMapping{}, ErrMiss
		}
		return model.URLMapping{}, fmt.Errorf("redis get: %w", err)
	}
	if string(data) == tombstoneValue {
		return model.URLMapping{}, ErrMiss
	}

	var m model.URLMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return model.URLMapping{}, fmt.Errorf("failed to unmarshal cached mapping: %w", err)
	}
	return m, nil
}

func (c *Redis) Set(ctx context.Context, m model.URLMapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}
	return c.client.SetNX(ctx, key(m.ShortCode), data, c.ttl).Err()
}

func (c *Redis) Delete(ctx context.Context, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, code := range codes {
		pipe.Set(ctx, key(code), tombstoneValue, c.hold)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis evict: %w", err)
	}
	return nil
}

func (c *Redis) Close() error {
	return c.client.Close()
}

func key(code string) string {
	return keyPrefix + code
}
