package repository

import (
	"context"

	"supportchat/internal/domain/entity"
)

// ConversationRepository persists the per-conversation append-only message
// log. Conversations are keyed by end-user id and created implicitly on the
// first append.
type ConversationRepository interface {
	CreateMessage(ctx context.Context, conversationID string, message *entity.Message) error

	// CreateMessageIfAbsent appends only when the conversation has no message
	// with the same id yet. Returns false when the message already existed.
	// Used for greeting seeding, which must be a single atomic
	// insert-if-missing rather than a check-then-write.
	CreateMessageIfAbsent(ctx context.Context, conversationID string, message *entity.Message) (bool, error)

	// MarkMessagesRead flips read/readAt on the given messages in one atomic
	// multi-key update.
	MarkMessagesRead(ctx context.Context, conversationID string, messageIDs []string, readAt int64) error

	ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error)
	ListConversationIDs(ctx context.Context) ([]string, error)
}
