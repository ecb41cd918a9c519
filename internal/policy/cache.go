package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/constituent-access/internal/domain"
)

// Cache keeps serialized office settings in Redis under prefix:officeID.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCache returns a cache, or nil when client is nil. A nil *Cache is a
// valid cache that never hits.
func NewCache(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	if prefix == "" {
		prefix = "office_settings"
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

func (c *Cache) key(officeID string) string {
	return c.prefix + ":" + officeID
}

// Get returns the cached settings. A miss returns (nil, false, nil).
func (c *Cache) Get(ctx context.Context, officeID string) (*domain.OfficeSettings, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, c.key(officeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("settings cache get: %w", err)
	}
	var settings domain.OfficeSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, false, fmt.Errorf("settings cache decode: %w", err)
	}
	return &settings, true, nil
}

func (c *Cache) Set(ctx context.Context, settings *domain.OfficeSettings) error {
	if c == nil || settings == nil {
		return nil
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("settings cache encode: %w", err)
	}
	return c.client.Set(ctx, c.key(settings.ID), raw, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context, officeID string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, c.key(officeID)).Err()
}
