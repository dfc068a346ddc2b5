package repository

import (
	"context"
	"sync"

	"supportchat/internal/domain/entity"
	"supportchat/internal/domain/repository"
)

// MemoryStateRepository backs STATE_DRIVER=memory and the test suite.
type MemoryStateRepository struct {
	mu          sync.RWMutex
	presence    map[string]entity.PresenceStatus
	adminStatus entity.AdminStatus
	typing      map[string]bool
}

func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{
		presence:    make(map[string]entity.PresenceStatus),
		adminStatus: entity.AdminOffline,
		typing:      make(map[string]bool),
	}
}

var _ repository.StateRepository = (*MemoryStateRepository)(nil)

func (r *MemoryStateRepository) SetPresence(ctx context.Context, userID string, status entity.PresenceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presence[userID] = status
	return nil
}

func (r *MemoryStateRepository) GetPresence(ctx context.Context, userID string) (entity.PresenceStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presence[userID], nil
}

func (r *MemoryStateRepository) SetAdminStatus(ctx context.Context, status entity.AdminStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adminStatus = status
	return nil
}

func (r *MemoryStateRepository) GetAdminStatus(ctx context.Context) (entity.AdminStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adminStatus, nil
}

func (r *MemoryStateRepository) SetUserTyping(ctx context.Context, conversationID string, typing bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typing[conversationID] = typing
	return nil
}

func (r *MemoryStateRepository) GetUserTyping(ctx context.Context, conversationID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typing[conversationID], nil
}
