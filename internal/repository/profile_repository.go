package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/store"
)

// ProfileRepository reads user profiles without access evaluation. It backs
// principal resolution, which runs before any principal exists.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.UserProfile, error)
}

type profileRepository struct {
	docs store.DocumentStore
}

// NewProfileRepository returns a DocumentStore-backed implementation.
func NewProfileRepository(docs store.DocumentStore) ProfileRepository {
	return &profileRepository{docs: docs}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	rec, err := r.docs.Get(ctx, domain.EntityUsers, id)
	if err != nil {
		return nil, err
	}
	var profile domain.UserProfile
	if err := decodeRecord(rec, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func decodeRecord(rec store.Record, e domain.Entity) error {
	if err := json.Unmarshal(rec.Body, e); err != nil {
		return fmt.Errorf("decode %s %s: %w", rec.Collection, rec.ID, err)
	}
	b := e.Base()
	b.ID = rec.ID
	b.Version = rec.Version
	b.CreatedAt = rec.CreatedAt
	b.UpdatedAt = rec.UpdatedAt
	return nil
}
