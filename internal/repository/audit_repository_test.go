package repository

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/events"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client
}

func auditEvent(id, officeID string, at time.Time) events.Event {
	return events.Event{
		ID:        id,
		Type:      events.EventEntityUpdated,
		Entity:    domain.EntityCommunications,
		EntityID:  "c-1",
		OfficeID:  officeID,
		Timestamp: at,
	}
}

func TestAuditRepository_ListNewestFirstAndTrims(t *testing.T) {
	repo := NewAuditRepository(newTestRedis(t), "audit", 2)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"e-1", "e-2", "e-3"} {
		if err := repo.Append(ctx, auditEvent(id, "office-o", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
	}
	if err := repo.Append(ctx, auditEvent("e-other", "office-x", base)); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	got, err := repo.ListByOffice(ctx, "office-o", 10)
	if err != nil {
		t.Fatalf("ListByOffice returned error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "e-3" || got[1].ID != "e-2" {
		t.Fatalf("expected e-3,e-2 after trimming, got %+v", got)
	}
}

func TestAuditRepository_PlatformScope(t *testing.T) {
	repo := NewAuditRepository(newTestRedis(t), "", 0)
	ctx := context.Background()

	if err := repo.Append(ctx, auditEvent("e-1", "", time.Now())); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	got, err := repo.ListByOffice(ctx, "", 0)
	if err != nil || len(got) != 1 || got[0].ID != "e-1" {
		t.Fatalf("expected platform entry, got %+v (%v)", got, err)
	}
}

func TestNewAuditRepository_NilClient(t *testing.T) {
	if NewAuditRepository(nil, "audit", 10) != nil {
		t.Fatalf("expected nil repository without a client")
	}
}
