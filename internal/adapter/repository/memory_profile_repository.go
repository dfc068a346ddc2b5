package repository

import (
	"context"
	"sync"

	"supportchat/internal/domain/entity"
	"supportchat/internal/domain/repository"
	"supportchat/pkg/errors"
)

// MemoryProfileRepository is a fixture-backed profile source for local
// development and tests.
type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*entity.Profile
}

func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{
		profiles: make(map[string]*entity.Profile),
	}
}

var _ repository.ProfileRepository = (*MemoryProfileRepository)(nil)

func (r *MemoryProfileRepository) Put(profile *entity.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.UserID] = profile
}

func (r *MemoryProfileRepository) GetByID(ctx context.Context, userID string) (*entity.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[userID]
	if !ok {
		return nil, errors.NotFound("Profile", nil)
	}
	copied := *profile
	return &copied, nil
}
