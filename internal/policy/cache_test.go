package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/store"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
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

	return client, server
}

type stubSettingsRepo struct {
	settings map[string]*domain.OfficeSettings
	calls    int
}

func (r *stubSettingsRepo) GetByOffice(_ context.Context, officeID string) (*domain.OfficeSettings, error) {
	r.calls++
	s, ok := r.settings[officeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func TestCache_SetGetInvalidate(t *testing.T) {
	client, server := newTestRedis(t)
	cache := NewCache(client, "settings", time.Minute)
	ctx := context.Background()

	if _, hit, err := cache.Get(ctx, "office-o"); hit || err != nil {
		t.Fatalf("expected miss, got hit=%v err=%v", hit, err)
	}

	if err := cache.Set(ctx, domain.NewOfficeSettings("office-o", "rep-r", "Office O", "5")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if ttl := server.TTL("settings:office-o"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected ttl within (0, 1m], got %v", ttl)
	}

	got, hit, err := cache.Get(ctx, "office-o")
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if got.District != "5" || got.WorkflowSettings.TempStaffRestrictions.MaxActiveTemp != 10 {
		t.Fatalf("unexpected cached settings %+v", got)
	}

	if err := cache.Invalidate(ctx, "office-o"); err != nil {
		t.Fatalf("Invalidate returned error: %v", err)
	}
	if server.Exists("settings:office-o") {
		t.Fatalf("key must be removed")
	}
}

func TestCachedSource_ReadThrough(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := &stubSettingsRepo{settings: map[string]*domain.OfficeSettings{
		"office-o": domain.NewOfficeSettings("office-o", "rep-r", "Office O", "5"),
	}}
	src := NewCachedSource(repo, NewCache(client, "", time.Minute), zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		pol, err := src.ForOffice(ctx, "office-o")
		if err != nil {
			t.Fatalf("ForOffice returned error: %v", err)
		}
		if pol.Settings().Name != "Office O" {
			t.Fatalf("unexpected settings %+v", pol.Settings())
		}
	}
	if repo.calls != 1 {
		t.Fatalf("expected one repository read, got %d", repo.calls)
	}

	src.Invalidate(ctx, "office-o")
	if _, err := src.ForOffice(ctx, "office-o"); err != nil {
		t.Fatalf("ForOffice returned error: %v", err)
	}
	if repo.calls != 2 {
		t.Fatalf("invalidate must force a reload, got %d reads", repo.calls)
	}

	if _, err := src.ForOffice(ctx, "office-x"); !errors.Is(err, ErrOfficeNotProvisioned) {
		t.Fatalf("expected ErrOfficeNotProvisioned, got %v", err)
	}
}

func TestCachedSource_CacheDownFallsBack(t *testing.T) {
	client, server := newTestRedis(t)
	server.Close()
	repo := &stubSettingsRepo{settings: map[string]*domain.OfficeSettings{
		"office-o": domain.NewOfficeSettings("office-o", "rep-r", "Office O", "5"),
	}}
	src := NewCachedSource(repo, NewCache(client, "", time.Minute), zaptest.NewLogger(t))

	if _, err := src.ForOffice(context.Background(), "office-o"); err != nil {
		t.Fatalf("cache outage must not fail resolution: %v", err)
	}
}
