package repository

import (
	"context"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/store"
)

// SettingsRepository reads office settings without access evaluation.
type SettingsRepository interface {
	GetByOffice(ctx context.Context, officeID string) (*domain.OfficeSettings, error)
}

type settingsRepository struct {
	docs store.DocumentStore
}

// NewSettingsRepository instantiates the repository.
func NewSettingsRepository(docs store.DocumentStore) SettingsRepository {
	return &settingsRepository{docs: docs}
}

func (r *settingsRepository) GetByOffice(ctx context.Context, officeID string) (*domain.OfficeSettings, error) {
	rec, err := r.docs.Get(ctx, domain.EntitySettings, officeID)
	if err != nil {
		return nil, err
	}
	var settings domain.OfficeSettings
	if err := decodeRecord(rec, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}
