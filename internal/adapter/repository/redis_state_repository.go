package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"supportchat/internal/domain/entity"
	"supportchat/internal/domain/repository"
	"supportchat/pkg/errors"
)

const (
	adminStatusKey = "adminChannel:status"

	// Online and typing keys carry a TTL as a safety net: if the whole
	// server dies before its sweep can run, the key expires and readers
	// fall back to offline.
	presenceTTL = 2 * time.Minute
	typingTTL   = 30 * time.Second
)

type redisStateRepository struct {
	client *redis.Client
}

func NewRedisStateRepository(ctx context.Context, redisURL string) (repository.StateRepository, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.ConnectionFailed("Invalid Redis URL", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.ConnectionFailed("Failed to connect to Redis", err)
	}

	return &redisStateRepository{client: client}, nil
}

func presenceKey(userID string) string {
	return fmt.Sprintf("presence:%s:status", userID)
}

func typingKey(conversationID string) string {
	return fmt.Sprintf("conversations:%s:userTyping", conversationID)
}

func (r *redisStateRepository) SetPresence(ctx context.Context, userID string, status entity.PresenceStatus) error {
	var err error
	if status == entity.StatusOnline {
		err = r.client.Set(ctx, presenceKey(userID), string(status), presenceTTL).Err()
	} else {
		err = r.client.Set(ctx, presenceKey(userID), string(status), 0).Err()
	}
	if err != nil {
		return errors.WriteFailed("Failed to write presence", err)
	}
	return nil
}

func (r *redisStateRepository) GetPresence(ctx context.Context, userID string) (entity.PresenceStatus, error) {
	val, err := r.client.Get(ctx, presenceKey(userID)).Result()
	if err == redis.Nil {
		return entity.StatusUnknown, nil
	}
	if err != nil {
		return entity.StatusUnknown, errors.Internal("Failed to read presence", err)
	}
	return entity.PresenceStatus(val), nil
}

func (r *redisStateRepository) SetAdminStatus(ctx context.Context, status entity.AdminStatus) error {
	ttl := time.Duration(0)
	if status != entity.AdminOffline {
		ttl = presenceTTL
	}
	if err := r.client.Set(ctx, adminStatusKey, string(status), ttl).Err(); err != nil {
		return errors.WriteFailed("Failed to write admin status", err)
	}
	return nil
}

func (r *redisStateRepository) GetAdminStatus(ctx context.Context) (entity.AdminStatus, error) {
	val, err := r.client.Get(ctx, adminStatusKey).Result()
	if err == redis.Nil {
		return entity.AdminOffline, nil
	}
	if err != nil {
		return entity.AdminOffline, errors.Internal("Failed to read admin status", err)
	}
	return entity.AdminStatus(val), nil
}

func (r *redisStateRepository) SetUserTyping(ctx context.Context, conversationID string, typing bool) error {
	var err error
	if typing {
		err = r.client.Set(ctx, typingKey(conversationID), "1", typingTTL).Err()
	} else {
		err = r.client.Del(ctx, typingKey(conversationID)).Err()
	}
	if err != nil {
		return errors.WriteFailed("Failed to write typing flag", err)
	}
	return nil
}

func (r *redisStateRepository) GetUserTyping(ctx context.Context, conversationID string) (bool, error) {
	val, err := r.client.Get(ctx, typingKey(conversationID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Internal("Failed to read typing flag", err)
	}
	return val == "1", nil
}
