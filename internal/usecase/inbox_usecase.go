package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"

	"supportchat/internal/domain/entity"
	"supportchat/internal/domain/repository"
	"supportchat/internal/realtime"
	"supportchat/pkg/errors"
	"supportchat/pkg/logger"
)

const fallbackDisplayName = "Unknown user"

// InboxItem is one row of the admin-side conversation list.
type InboxItem struct {
	UserID      string                `json:"user_id"`
	DisplayName string                `json:"display_name"`
	LastMessage *entity.Message       `json:"last_message"`
	UnreadCount int                   `json:"unread_count"`
	Presence    entity.PresenceStatus `json:"presence"`
	UserTyping  bool                  `json:"user_typing"`
}

// InboxUseCase is the admin inbox aggregator: a read-only derived view over
// all conversations, recomputed in full on every change. No incremental
// bookkeeping; O(conversations x messages) per recompute is the accepted
// cost at this scale.
type InboxUseCase struct {
	store        *realtime.ConversationStore
	presence     *realtime.PresenceTracker
	typing       *realtime.TypingSignal
	adminChannel *realtime.AdminChannel
	profiles     repository.ProfileRepository

	nameMu    sync.RWMutex
	nameCache map[string]string
}

func NewInboxUseCase(
	store *realtime.ConversationStore,
	presence *realtime.PresenceTracker,
	typing *realtime.TypingSignal,
	adminChannel *realtime.AdminChannel,
	profiles repository.ProfileRepository,
) *InboxUseCase {
	return &InboxUseCase{
		store:        store,
		presence:     presence,
		typing:       typing,
		adminChannel: adminChannel,
		profiles:     profiles,
		nameCache:    make(map[string]string),
	}
}

// Snapshot computes the current inbox: every conversation with at least one
// message, joined with presence and typing, sorted by last message
// descending.
func (uc *InboxUseCase) Snapshot(ctx context.Context) []InboxItem {
	var items []InboxItem

	for _, conversationID := range uc.store.ConversationIDs() {
		messages := uc.store.Snapshot(conversationID)
		if len(messages) == 0 {
			continue
		}

		last := messages[len(messages)-1]
		unread := 0
		for _, m := range messages {
			if m.Sender == entity.SenderUser && !m.Read {
				unread++
			}
		}

		items = append(items, InboxItem{
			UserID:      conversationID,
			DisplayName: uc.displayName(ctx, conversationID),
			LastMessage: &last,
			UnreadCount: unread,
			Presence:    uc.presence.Status(ctx, conversationID),
			UserTyping:  uc.typing.IsTyping(conversationID),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].LastMessage.Timestamp != items[j].LastMessage.Timestamp {
			return items[i].LastMessage.Timestamp > items[j].LastMessage.Timestamp
		}
		return items[i].UserID < items[j].UserID
	})

	return items
}

// Subscribe streams the recomputed inbox. One root subscription on the
// store plus change ticks from presence and typing drive full recomputes.
// The returned func cancels everything.
func (uc *InboxUseCase) Subscribe(ctx context.Context) (<-chan []InboxItem, func()) {
	storeTicks, cancelStore := uc.store.SubscribeRoot()
	presenceTicks, cancelPresence := uc.presence.SubscribeChanges()
	typingTicks, cancelTyping := uc.typing.SubscribeChanges()

	out := make(chan []InboxItem, 1)
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			select {
			case _, ok := <-storeTicks:
				if !ok {
					return
				}
			case _, ok := <-presenceTicks:
				if !ok {
					return
				}
			case _, ok := <-typingTicks:
				if !ok {
					return
				}
			case <-done:
				return
			}

			items := uc.Snapshot(ctx)
			select {
			case out <- items:
			default:
				select {
				case <-out:
				default:
				}
				select {
				case out <- items:
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			cancelStore()
			cancelPresence()
			cancelTyping()
		})
	}
	return out, cancel
}

// SendAsAdmin appends an admin reply and clears the admin typing overlay.
func (uc *InboxUseCase) SendAsAdmin(ctx context.Context, conversationID, text string) (*entity.Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, errors.BadRequest("Conversation id is required", nil)
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.BadRequest("Message text is required", nil)
	}

	message, err := uc.store.Append(ctx, conversationID, realtime.Draft{
		Text:         text,
		Sender:       entity.SenderAdmin,
		SenderUserID: "admin",
		DisplayName:  "Support",
	})
	if err != nil {
		return nil, err
	}

	if err := uc.adminChannel.SetTyping(ctx, false); err != nil {
		logger.Warn("Failed to clear admin typing after send: %v", err)
	}

	return message, nil
}

// MarkConversationRead marks every unread user message in the conversation
// as read by the admin pool.
func (uc *InboxUseCase) MarkConversationRead(ctx context.Context, conversationID string) (int, error) {
	return uc.store.MarkRead(ctx, conversationID, entity.SenderAdmin)
}

// AdminConversation is one conversation opened on the admin console. User
// messages are auto-marked read on every snapshot while it is open. Close
// must run on every exit path; it is idempotent.
type AdminConversation struct {
	ConversationID string
	Messages       <-chan []entity.Message
	UserTyping     <-chan bool

	uc        *InboxUseCase
	cancels   []func()
	closeOnce sync.Once
}

// OpenConversation attaches the admin console to one conversation.
func (uc *InboxUseCase) OpenConversation(conversationID string) (*AdminConversation, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, errors.BadRequest("Conversation id is required", nil)
	}

	rawMessages, cancelMessages := uc.store.Subscribe(conversationID)
	userTyping, cancelTyping := uc.typing.Subscribe(conversationID)

	conv := &AdminConversation{
		ConversationID: conversationID,
		UserTyping:     userTyping,
		uc:             uc,
		cancels:        []func(){cancelMessages, cancelTyping},
	}

	out := make(chan []entity.Message, 1)
	conv.Messages = out
	go conv.pump(rawMessages, out)

	return conv, nil
}

func (c *AdminConversation) pump(in <-chan []entity.Message, out chan []entity.Message) {
	defer close(out)
	for snapshot := range in {
		unread := false
		for _, m := range snapshot {
			if m.Sender == entity.SenderUser && !m.Read {
				unread = true
				break
			}
		}
		if unread {
			if _, err := c.uc.store.MarkRead(context.Background(), c.ConversationID, entity.SenderAdmin); err != nil {
				logger.Error("Admin auto mark-read failed for %s: %v", c.ConversationID, err)
			}
		}

		select {
		case out <- snapshot:
		default:
			select {
			case <-out:
			default:
			}
			select {
			case out <- snapshot:
			default:
			}
		}
	}
}

func (c *AdminConversation) Close() {
	c.closeOnce.Do(func() {
		for _, cancel := range c.cancels {
			cancel()
		}
	})
}

// displayName resolves a profile, caching hits. A lookup miss or failure
// degrades to a placeholder and never blocks the inbox.
func (uc *InboxUseCase) displayName(ctx context.Context, userID string) string {
	uc.nameMu.RLock()
	name, ok := uc.nameCache[userID]
	uc.nameMu.RUnlock()
	if ok {
		return name
	}

	profile, err := uc.profiles.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, "NOT_FOUND") {
			logger.Warn("Profile lookup failed for %s: %v", userID, err)
		}
		return fallbackDisplayName
	}
	if profile.DisplayName == "" {
		return fallbackDisplayName
	}

	uc.nameMu.Lock()
	uc.nameCache[userID] = profile.DisplayName
	uc.nameMu.Unlock()
	return profile.DisplayName
}
