package usecase

import (
	"context"
	"strings"
	"sync"

	"supportchat/internal/domain/entity"
	"supportchat/internal/infrastructure/metrics"
	"supportchat/internal/realtime"
	"supportchat/pkg/errors"
	"supportchat/pkg/logger"
)

// ChatUseCase opens end-user chat sessions. A session wires the four
// realtime primitives for one conversation: the message log, the admin
// channel, self presence, and the typing flag.
type ChatUseCase struct {
	store        *realtime.ConversationStore
	presence     *realtime.PresenceTracker
	typing       *realtime.TypingSignal
	adminChannel *realtime.AdminChannel
	greeting     string
}

func NewChatUseCase(
	store *realtime.ConversationStore,
	presence *realtime.PresenceTracker,
	typing *realtime.TypingSignal,
	adminChannel *realtime.AdminChannel,
	greeting string,
) *ChatUseCase {
	return &ChatUseCase{
		store:        store,
		presence:     presence,
		typing:       typing,
		adminChannel: adminChannel,
		greeting:     greeting,
	}
}

// SendAsUser appends a user message outside of a live session (REST
// clients). Same contract as ChatSession.Send.
func (uc *ChatUseCase) SendAsUser(ctx context.Context, userID, text string) (*entity.Message, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.BadRequest("User id is required", nil)
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.BadRequest("Message text is required", nil)
	}

	message, err := uc.store.Append(ctx, userID, realtime.Draft{
		Text:         text,
		Sender:       entity.SenderUser,
		SenderUserID: userID,
	})
	if err != nil {
		return nil, err
	}

	if err := uc.typing.Set(ctx, userID, false); err != nil {
		logger.Warn("Failed to clear typing after send for %s: %v", userID, err)
	}

	return message, nil
}

// Messages returns the current ordered snapshot of one conversation.
func (uc *ChatUseCase) Messages(userID string) []entity.Message {
	return uc.store.Snapshot(userID)
}

// MarkRead marks the counterpart's unread messages read on behalf of the
// given role.
func (uc *ChatUseCase) MarkRead(ctx context.Context, userID string, reader entity.Sender) (int, error) {
	return uc.store.MarkRead(ctx, userID, reader)
}

// PresenceStatus reports the last-known status for one user.
func (uc *ChatUseCase) PresenceStatus(ctx context.Context, userID string) entity.PresenceStatus {
	return uc.presence.Status(ctx, userID)
}

// AdminStatus reports the shared admin channel scalar.
func (uc *ChatUseCase) AdminStatus() entity.AdminStatus {
	return uc.adminChannel.Status()
}

// The admin console drives the shared channel scalar through these.

func (uc *ChatUseCase) AdminChannelOnline(ctx context.Context) error {
	return uc.adminChannel.SetOnline(ctx)
}

func (uc *ChatUseCase) AdminChannelOffline(ctx context.Context) error {
	return uc.adminChannel.SetOffline(ctx)
}

func (uc *ChatUseCase) AdminChannelTyping(ctx context.Context, typing bool) error {
	return uc.adminChannel.SetTyping(ctx, typing)
}

func (uc *ChatUseCase) AdminChannelHeartbeat(ctx context.Context) {
	uc.adminChannel.Heartbeat(ctx)
}

// ChatSession is one active end-user chat screen. The exposed channels are
// independent streams with no ordering guarantee relative to each other.
// Close must run on every exit path; it is idempotent.
type ChatSession struct {
	UserID       string
	Messages     <-chan []entity.Message
	AdminStatus  <-chan entity.AdminStatus
	SelfPresence <-chan entity.PresenceStatus

	uc        *ChatUseCase
	cancels   []func()
	closeOnce sync.Once
}

// OpenSession activates the chat screen for one end user: subscribes the
// message log, the admin channel and self presence, flips the user online
// (arming the deferred offline), and seeds the greeting when the
// conversation is empty. Admin messages are auto-marked read on every
// snapshot while the session is open.
func (uc *ChatUseCase) OpenSession(ctx context.Context, userID string) (*ChatSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.BadRequest("User id is required", nil)
	}

	rawMessages, cancelMessages := uc.store.Subscribe(userID)
	adminStatus, cancelAdmin := uc.adminChannel.Subscribe()
	selfPresence, cancelPresence := uc.presence.Subscribe(userID)

	session := &ChatSession{
		UserID:       userID,
		AdminStatus:  adminStatus,
		SelfPresence: selfPresence,
		uc:           uc,
		cancels:      []func(){cancelMessages, cancelAdmin, cancelPresence},
	}

	if err := uc.presence.SetOnline(ctx, userID); err != nil {
		session.teardown()
		return nil, err
	}

	if len(uc.store.Snapshot(userID)) == 0 {
		if err := uc.store.SeedGreeting(ctx, userID, uc.greeting); err != nil {
			// A lost greeting does not block the session.
			logger.Warn("Greeting seed failed for %s: %v", userID, err)
		}
	}

	out := make(chan []entity.Message, 1)
	session.Messages = out
	go session.pump(rawMessages, out)

	metrics.ActiveSessions.Inc()
	return session, nil
}

// pump forwards snapshots to the screen and auto-marks counterpart messages
// read while the session is active. MarkRead is structurally idempotent, so
// the re-delivery it triggers does not loop.
func (s *ChatSession) pump(in <-chan []entity.Message, out chan []entity.Message) {
	defer close(out)
	for snapshot := range in {
		unread := false
		for _, m := range snapshot {
			if m.Sender == entity.SenderAdmin && !m.Read {
				unread = true
				break
			}
		}
		if unread {
			if _, err := s.uc.store.MarkRead(context.Background(), s.UserID, entity.SenderUser); err != nil {
				logger.Error("Auto mark-read failed for %s: %v", s.UserID, err)
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

// Send appends a user message and clears the typing flag. Empty or
// whitespace-only text is rejected before any write.
func (s *ChatSession) Send(ctx context.Context, text string) (*entity.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.BadRequest("Message text is required", nil)
	}

	message, err := s.uc.store.Append(ctx, s.UserID, realtime.Draft{
		Text:         text,
		Sender:       entity.SenderUser,
		SenderUserID: s.UserID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.uc.typing.Set(ctx, s.UserID, false); err != nil {
		logger.Warn("Failed to clear typing after send for %s: %v", s.UserID, err)
	}

	return message, nil
}

// SetTyping writes the user->admin typing flag. Callers only invoke this on
// actual transitions (empty <-> non-empty input).
func (s *ChatSession) SetTyping(ctx context.Context, typing bool) error {
	return s.uc.typing.Set(ctx, s.UserID, typing)
}

// Heartbeat keeps the deferred offline write at bay.
func (s *ChatSession) Heartbeat(ctx context.Context) {
	s.uc.presence.Heartbeat(ctx, s.UserID)
}

// Close deactivates the screen: explicit offline write plus total teardown
// of every subscription. Safe to call from any exit path, any number of
// times.
func (s *ChatSession) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		if err := s.uc.presence.SetOffline(ctx, s.UserID); err != nil {
			// The deferred write will still flip us offline on timeout.
			logger.Error("Explicit offline write failed for %s: %v", s.UserID, err)
		}
		s.teardown()
		metrics.ActiveSessions.Dec()
	})
}

func (s *ChatSession) teardown() {
	for _, cancel := range s.cancels {
		cancel()
	}
}
