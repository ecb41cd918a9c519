package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/constituent-access/internal/events"
)

// platformScope keys audit entries that belong to no office.
const platformScope = "platform"

// AuditRepository stores audit entries.
type AuditRepository interface {
	Append(ctx context.Context, event events.Event) error
	ListByOffice(ctx context.Context, officeID string, limit int64) ([]events.Event, error)
}

type auditRepository struct {
	client     *redis.Client
	prefix     string
	maxEntries int64
}

// NewAuditRepository keeps the newest maxEntries events per office in a
// Redis sorted set scored by event time. A nil client yields nil.
func NewAuditRepository(client *redis.Client, prefix string, maxEntries int64) AuditRepository {
	if client == nil {
		return nil
	}
	if prefix == "" {
		prefix = "audit"
	}
	return &auditRepository{client: client, prefix: prefix, maxEntries: maxEntries}
}

func (r *auditRepository) key(officeID string) string {
	if officeID == "" {
		officeID = platformScope
	}
	return r.prefix + ":" + officeID
}

func (r *auditRepository) Append(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	key := r.key(event.OfficeID)

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(event.Timestamp.UnixNano()), Member: payload})
	if r.maxEntries > 0 {
		pipe.ZRemRangeByRank(ctx, key, 0, -r.maxEntries-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append audit: %w", err)
	}
	return nil
}

// ListByOffice returns up to limit events, newest first. An empty officeID
// lists platform-wide entries.
func (r *auditRepository) ListByOffice(ctx context.Context, officeID string, limit int64) ([]events.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := r.client.ZRevRange(ctx, r.key(officeID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list audit: %w", err)
	}
	result := make([]events.Event, 0, len(raw))
	for _, item := range raw {
		var event events.Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		result = append(result, event)
	}
	return result, nil
}
