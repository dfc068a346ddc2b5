package repository

import (
	"context"
	"sort"
	"sync"

	"supportchat/internal/domain/entity"
	"supportchat/internal/domain/repository"
)

// MemoryConversationRepository backs STORE_DRIVER=memory and the test suite.
type MemoryConversationRepository struct {
	mu       sync.RWMutex
	messages map[string]map[string]*entity.Message // conversationID -> messageID -> message
	order    map[string][]string                   // insertion order per conversation

	// FailWrites makes every write return an error, for exercising the
	// no-retry contract in tests.
	FailWrites error
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		messages: make(map[string]map[string]*entity.Message),
		order:    make(map[string][]string),
	}
}

var _ repository.ConversationRepository = (*MemoryConversationRepository)(nil)

func (r *MemoryConversationRepository) CreateMessage(ctx context.Context, conversationID string, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWrites != nil {
		return r.FailWrites
	}

	r.insertLocked(conversationID, message)
	return nil
}

func (r *MemoryConversationRepository) CreateMessageIfAbsent(ctx context.Context, conversationID string, message *entity.Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWrites != nil {
		return false, r.FailWrites
	}

	if _, ok := r.messages[conversationID][message.ID]; ok {
		return false, nil
	}

	r.insertLocked(conversationID, message)
	return true, nil
}

func (r *MemoryConversationRepository) insertLocked(conversationID string, message *entity.Message) {
	if r.messages[conversationID] == nil {
		r.messages[conversationID] = make(map[string]*entity.Message)
	}
	copied := *message
	r.messages[conversationID][message.ID] = &copied
	r.order[conversationID] = append(r.order[conversationID], message.ID)
}

func (r *MemoryConversationRepository) MarkMessagesRead(ctx context.Context, conversationID string, messageIDs []string, readAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWrites != nil {
		return r.FailWrites
	}

	for _, id := range messageIDs {
		if m, ok := r.messages[conversationID][id]; ok {
			m.Read = true
			m.ReadAt = readAt
		}
	}
	return nil
}

func (r *MemoryConversationRepository) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var messages []*entity.Message
	for _, id := range r.order[conversationID] {
		copied := *r.messages[conversationID][id]
		messages = append(messages, &copied)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})

	return messages, nil
}

func (r *MemoryConversationRepository) ListConversationIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id := range r.messages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
