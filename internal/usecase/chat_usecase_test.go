package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportchat/internal/adapter/repository"
	"supportchat/internal/domain/entity"
	"supportchat/internal/realtime"
	"supportchat/pkg/errors"
)

type chatFixture struct {
	store        *realtime.ConversationStore
	stateRepo    *repository.MemoryStateRepository
	typing       *realtime.TypingSignal
	presence     *realtime.PresenceTracker
	adminChannel *realtime.AdminChannel
	uc           *ChatUseCase
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	convRepo := repository.NewMemoryConversationRepository()
	stateRepo := repository.NewMemoryStateRepository()

	store := realtime.NewConversationStore(convRepo)
	presence := realtime.NewPresenceTracker(stateRepo, time.Minute, time.Minute)
	typing := realtime.NewTypingSignal(stateRepo)
	adminChannel := realtime.NewAdminChannel(stateRepo, time.Minute, time.Minute)

	return &chatFixture{
		store:        store,
		stateRepo:    stateRepo,
		typing:       typing,
		presence:     presence,
		adminChannel: adminChannel,
		uc:           NewChatUseCase(store, presence, typing, adminChannel, "Hi! How can we help?"),
	}
}

func drainSession(session *ChatSession) {
	go func() {
		for range session.Messages {
		}
	}()
	go func() {
		for range session.AdminStatus {
		}
	}()
	go func() {
		for range session.SelfPresence {
		}
	}()
}

func TestOpenSessionSeedsGreetingOnce(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	session, err := f.uc.OpenSession(ctx, "u1")
	require.NoError(t, err)
	drainSession(session)

	snapshot := f.store.Snapshot("u1")
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Hi! How can we help?", snapshot[0].Text)
	assert.Equal(t, entity.SenderAdmin, snapshot[0].Sender)

	session.Close(ctx)

	// Reopening an existing conversation must not seed again.
	session, err = f.uc.OpenSession(ctx, "u1")
	require.NoError(t, err)
	drainSession(session)
	defer session.Close(ctx)

	require.Eventually(t, func() bool {
		return len(f.store.Snapshot("u1")) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestOpenSessionFlipsUserOnline(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	session, err := f.uc.OpenSession(ctx, "u1")
	require.NoError(t, err)
	drainSession(session)
	defer session.Close(ctx)

	assert.Equal(t, entity.StatusOnline, f.uc.PresenceStatus(ctx, "u1"))
}

func TestOpenSessionRejectsEmptyUserID(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.uc.OpenSession(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSendRejectsWhitespaceOnlyText(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	session, err := f.uc.OpenSession(ctx, "u1")
	require.NoError(t, err)
	drainSession(session)
	defer session.Close(ctx)

	before := len(f.store.Snapshot("u1"))

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := session.Send(ctx, text)
		require.Error(t, err)
		assert.True(t, errors.Is(err, "BAD_REQUEST"))
	}

	assert.Len(t, f.store.Snapshot("u1"), before, "rejected sends must not touch the log")
}

func TestSendClearsTypingFlag(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	session, err := f.uc.OpenSession(ctx, "u1")
	require.NoError(t, err)
	drainSession(session)
	defer session.Close(ctx)

	require.NoError(t, session.SetTyping(ctx, true))
	require.True(t, f.typing.IsTyping("u1"))

	_, err = session.Send(ctx, "done typing")
	require.NoError(t, err)
	assert.False(t, f.typing.IsTyping("u1"), "send must force typing back to false")

	stored, err := f.stateRepo.GetUserTyping(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, stored)
}

func TestAdminMessagesAutoMarkedReadWhileSessionOpen(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	session, err := f.uc.OpenSession(ctx, "u1")
	require.NoError(t, err)
	drainSession(session)
	defer session.Close(ctx)

	_, err = f.store.Append(ctx, "u1", realtime.Draft{
		Text: "We can help with that", Sender: entity.SenderAdmin, SenderUserID: "admin",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, m := range f.store.Snapshot("u1") {
			if m.Sender == entity.SenderAdmin && !m.Read {
				return false
			}
		}
		return true
	}, time.Second, 10*time.Millisecond, "open session should auto-read admin messages")
}

func TestCloseIsIdempotentAndTearsDown(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	session, err := f.uc.OpenSession(ctx, "u1")
	require.NoError(t, err)

	session.Close(ctx)
	session.Close(ctx)
	session.Close(ctx)

	assert.Equal(t, entity.StatusOffline, f.uc.PresenceStatus(ctx, "u1"))

	// The message pump shuts down once its subscription is cancelled.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-session.Messages:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestSendAsUserWithoutSession(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	message, err := f.uc.SendAsUser(ctx, "u1", "hello from REST")
	require.NoError(t, err)
	assert.Equal(t, entity.SenderUser, message.Sender)
	assert.Equal(t, "u1", message.SenderUserID)
	assert.NotEmpty(t, message.ID)

	_, err = f.uc.SendAsUser(ctx, "u1", "  ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = f.uc.SendAsUser(ctx, "", "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSessionSeesAdminStatusChanges(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	session, err := f.uc.OpenSession(ctx, "u1")
	require.NoError(t, err)
	defer session.Close(ctx)
	go func() {
		for range session.Messages {
		}
	}()
	go func() {
		for range session.SelfPresence {
		}
	}()

	assert.Equal(t, entity.AdminOffline, <-session.AdminStatus)

	require.NoError(t, f.uc.AdminChannelOnline(ctx))
	assert.Equal(t, entity.AdminOnline, <-session.AdminStatus)

	require.NoError(t, f.uc.AdminChannelTyping(ctx, true))
	assert.Equal(t, entity.AdminTyping, <-session.AdminStatus)
}
