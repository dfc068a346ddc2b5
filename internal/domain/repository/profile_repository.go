package repository

import (
	"context"

	"supportchat/internal/domain/entity"
)

// ProfileRepository looks up account profiles. The backing service is owned
// by the rest of the application; a lookup miss degrades the display name to
// a placeholder and never blocks chat.
type ProfileRepository interface {
	GetByID(ctx context.Context, userID string) (*entity.Profile, error)
}
