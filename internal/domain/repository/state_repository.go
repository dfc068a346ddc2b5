package repository

import (
	"context"

	"supportchat/internal/domain/entity"
)

// StateRepository persists the ephemeral scalars: per-user presence, the
// shared admin channel status, and per-conversation typing flags. All values
// are last-write-wins.
type StateRepository interface {
	SetPresence(ctx context.Context, userID string, status entity.PresenceStatus) error
	GetPresence(ctx context.Context, userID string) (entity.PresenceStatus, error)

	SetAdminStatus(ctx context.Context, status entity.AdminStatus) error
	GetAdminStatus(ctx context.Context) (entity.AdminStatus, error)

	SetUserTyping(ctx context.Context, conversationID string, typing bool) error
	GetUserTyping(ctx context.Context, conversationID string) (bool, error)
}
