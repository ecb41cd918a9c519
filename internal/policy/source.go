package policy

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/observability"
	"github.com/spec-kit/constituent-access/internal/repository"
	"github.com/spec-kit/constituent-access/internal/store"
)

// ErrOfficeNotProvisioned is returned when an office has no settings document.
var ErrOfficeNotProvisioned = errors.New("office settings not provisioned")

// Source loads the policy of an office for principal resolution.
type Source interface {
	ForOffice(ctx context.Context, officeID string) (Policy, error)
}

// CachedSource reads settings through the Redis cache. Cache failures are
// logged and fall back to the repository.
type CachedSource struct {
	repo   repository.SettingsRepository
	cache  *Cache
	logger *zap.Logger
}

// NewCachedSource builds a source. cache may be nil.
func NewCachedSource(repo repository.SettingsRepository, cache *Cache, logger *zap.Logger) *CachedSource {
	return &CachedSource{repo: repo, cache: cache, logger: observability.OrNop(logger)}
}

func (s *CachedSource) ForOffice(ctx context.Context, officeID string) (Policy, error) {
	settings, hit, err := s.cache.Get(ctx, officeID)
	if err != nil {
		s.logger.Warn("settings cache read failed", zap.String("office_id", officeID), zap.Error(err))
	}
	if hit {
		return New(settings), nil
	}

	settings, err = s.repo.GetByOffice(ctx, officeID)
	if errors.Is(err, store.ErrNotFound) {
		return Policy{}, ErrOfficeNotProvisioned
	}
	if err != nil {
		return Policy{}, err
	}
	if err := s.cache.Set(ctx, settings); err != nil {
		s.logger.Warn("settings cache write failed", zap.String("office_id", officeID), zap.Error(err))
	}
	return New(settings), nil
}

// Invalidate drops the cached copy of an office's settings.
func (s *CachedSource) Invalidate(ctx context.Context, officeID string) {
	if err := s.cache.Invalidate(ctx, officeID); err != nil {
		s.logger.Warn("settings cache invalidate failed", zap.String("office_id", officeID), zap.Error(err))
	}
}

// Static serves fixed settings per office. Offices not in the map are not provisioned.
type Static map[string]*domain.OfficeSettings

func (s Static) ForOffice(_ context.Context, officeID string) (Policy, error) {
	settings, ok := s[officeID]
	if !ok {
		return Policy{}, ErrOfficeNotProvisioned
	}
	return New(settings), nil
}
