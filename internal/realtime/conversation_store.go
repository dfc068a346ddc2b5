package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"supportchat/internal/domain/entity"
	"supportchat/internal/domain/repository"
	"supportchat/internal/infrastructure/metrics"
	"supportchat/pkg/errors"
	"supportchat/pkg/logger"
)

// Draft is the caller-supplied part of a message. Id and timestamp are
// assigned by the store on append.
type Draft struct {
	Text         string
	Sender       entity.Sender
	SenderUserID string
	DisplayName  string
}

// ConversationStore is the source of truth for all message state. It keeps
// the ordered log per conversation in memory, writes through to the
// repository, and fans the entire current message list out to every
// subscriber on each change. Subscribers must treat each delivery as an
// idempotent replacement of their local state.
type ConversationStore struct {
	mu   sync.Mutex
	repo repository.ConversationRepository

	conversations map[string][]*entity.Message // ascending by timestamp, insertion order on ties
	subs          map[string]map[int]chan []entity.Message
	rootSubs      map[int]chan struct{}
	nextSubID     int

	now func() int64 // ms since epoch, swappable in tests
}

func NewConversationStore(repo repository.ConversationRepository) *ConversationStore {
	return &ConversationStore{
		repo:          repo,
		conversations: make(map[string][]*entity.Message),
		subs:          make(map[string]map[int]chan []entity.Message),
		rootSubs:      make(map[int]chan struct{}),
		now:           func() int64 { return time.Now().UnixMilli() },
	}
}

// Load hydrates the in-memory log from the repository. Called once at
// startup, before any subscriber attaches.
func (s *ConversationStore) Load(ctx context.Context) error {
	ids, err := s.repo.ListConversationIDs(ctx)
	if err != nil {
		return errors.ConnectionFailed("Failed to list conversations", err)
	}

	for _, id := range ids {
		messages, err := s.repo.ListMessages(ctx, id)
		if err != nil {
			return errors.ConnectionFailed("Failed to load conversation "+id, err)
		}
		s.mu.Lock()
		s.conversations[id] = messages
		s.mu.Unlock()
	}

	logger.Info("Conversation store loaded %d conversations", len(ids))
	return nil
}

// Append assigns an id and timestamp, persists the message, inserts it into
// the ordered log, and fans out the full snapshot. A repository failure is
// returned as a WRITE_FAILED error with no in-memory mutation and no retry.
func (s *ConversationStore) Append(ctx context.Context, conversationID string, draft Draft) (*entity.Message, error) {
	if !draft.Sender.Valid() {
		return nil, errors.BadRequest("Invalid message sender", nil)
	}

	message := &entity.Message{
		ID:           uuid.New().String(),
		Text:         draft.Text,
		Sender:       draft.Sender,
		Timestamp:    s.now(),
		SenderUserID: draft.SenderUserID,
		DisplayName:  draft.DisplayName,
	}

	if err := s.repo.CreateMessage(ctx, conversationID, message); err != nil {
		logger.Error("Append failed for conversation %s: %v", conversationID, err)
		metrics.WriteFailures.WithLabelValues("append").Inc()
		return nil, errors.WriteFailed("Failed to append message", err)
	}

	s.mu.Lock()
	s.insertLocked(conversationID, message)
	s.fanOutLocked(conversationID)
	s.mu.Unlock()

	metrics.MessagesAppended.WithLabelValues(string(draft.Sender)).Inc()
	return message, nil
}

// SeedGreeting appends the greeting as a single atomic insert-if-missing,
// keyed by a deterministic message id so concurrent first opens cannot seed
// twice. No-op when the conversation already has any message.
func (s *ConversationStore) SeedGreeting(ctx context.Context, conversationID, text string) error {
	s.mu.Lock()
	empty := len(s.conversations[conversationID]) == 0
	s.mu.Unlock()
	if !empty {
		return nil
	}

	message := &entity.Message{
		ID:        "greeting-" + conversationID,
		Text:      text,
		Sender:    entity.SenderAdmin,
		Timestamp: s.now(),
	}

	created, err := s.repo.CreateMessageIfAbsent(ctx, conversationID, message)
	if err != nil {
		return errors.WriteFailed("Failed to seed greeting", err)
	}
	if !created {
		return nil
	}

	s.mu.Lock()
	if !s.containsLocked(conversationID, message.ID) {
		s.insertLocked(conversationID, message)
		s.fanOutLocked(conversationID)
	}
	s.mu.Unlock()

	return nil
}

// MarkRead flips read/readAt on every unread message sent by the reader's
// counterpart, as one atomic repository update. Structurally idempotent:
// when nothing is newly unread, no write is issued at all. Returns the
// number of messages marked.
func (s *ConversationStore) MarkRead(ctx context.Context, conversationID string, reader entity.Sender) (int, error) {
	if !reader.Valid() {
		return 0, errors.BadRequest("Invalid reader role", nil)
	}

	counterpart := reader.Counterpart()

	s.mu.Lock()
	var ids []string
	for _, m := range s.conversations[conversationID] {
		if m.Sender == counterpart && !m.Read {
			ids = append(ids, m.ID)
		}
	}
	s.mu.Unlock()

	if len(ids) == 0 {
		return 0, nil
	}

	readAt := s.now()
	if err := s.repo.MarkMessagesRead(ctx, conversationID, ids, readAt); err != nil {
		logger.Error("MarkRead failed for conversation %s: %v", conversationID, err)
		metrics.WriteFailures.WithLabelValues("mark_read").Inc()
		return 0, errors.WriteFailed("Failed to mark messages read", err)
	}

	s.mu.Lock()
	marked := make(map[string]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	for _, m := range s.conversations[conversationID] {
		if marked[m.ID] && !m.Read {
			m.Read = true
			m.ReadAt = readAt
		}
	}
	s.fanOutLocked(conversationID)
	s.mu.Unlock()

	metrics.ReadReceipts.Add(float64(len(ids)))
	return len(ids), nil
}

// Subscribe returns a channel that receives the full ordered message list
// for the conversation, starting with the current snapshot. Deliveries
// coalesce: a slow consumer sees only the latest snapshot. The returned
// func cancels the subscription and must be called on every exit path.
func (s *ConversationStore) Subscribe(conversationID string) (<-chan []entity.Message, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++

	ch := make(chan []entity.Message, 1)
	if s.subs[conversationID] == nil {
		s.subs[conversationID] = make(map[int]chan []entity.Message)
	}
	s.subs[conversationID][id] = ch
	ch <- s.snapshotLocked(conversationID)

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[conversationID][id]; ok {
			delete(s.subs[conversationID], id)
			close(sub)
		}
	}
	return ch, cancel
}

// SubscribeRoot ticks on every change to any conversation. Used by the
// admin inbox, which recomputes its whole view per tick.
func (s *ConversationStore) SubscribeRoot() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++

	ch := make(chan struct{}, 1)
	s.rootSubs[id] = ch
	ch <- struct{}{}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.rootSubs[id]; ok {
			delete(s.rootSubs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Snapshot returns the current ordered message list.
func (s *ConversationStore) Snapshot(conversationID string) []entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(conversationID)
}

// ConversationIDs returns the ids of all conversations with at least one
// message.
func (s *ConversationStore) ConversationIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.conversations))
	for id, messages := range s.conversations {
		if len(messages) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *ConversationStore) containsLocked(conversationID, messageID string) bool {
	for _, m := range s.conversations[conversationID] {
		if m.ID == messageID {
			return true
		}
	}
	return false
}

// insertLocked places the message after every existing message with a
// timestamp <= its own, so ties keep insertion order.
func (s *ConversationStore) insertLocked(conversationID string, message *entity.Message) {
	log := s.conversations[conversationID]
	idx := len(log)
	for idx > 0 && log[idx-1].Timestamp > message.Timestamp {
		idx--
	}
	log = append(log, nil)
	copy(log[idx+1:], log[idx:])
	log[idx] = message
	s.conversations[conversationID] = log
}

func (s *ConversationStore) snapshotLocked(conversationID string) []entity.Message {
	log := s.conversations[conversationID]
	snapshot := make([]entity.Message, len(log))
	for i, m := range log {
		snapshot[i] = *m
	}
	return snapshot
}

func (s *ConversationStore) fanOutLocked(conversationID string) {
	for _, ch := range s.subs[conversationID] {
		snapshot := s.snapshotLocked(conversationID)
		select {
		case ch <- snapshot:
		default:
			// Latest wins: drop the stale snapshot still in the buffer.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
	for _, ch := range s.rootSubs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
