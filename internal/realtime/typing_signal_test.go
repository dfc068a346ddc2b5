package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportchat/internal/adapter/repository"
	domainrepo "supportchat/internal/domain/repository"
)

type typingCountingRepo struct {
	domainrepo.StateRepository
	mu     sync.Mutex
	writes int
}

func (r *typingCountingRepo) SetUserTyping(ctx context.Context, conversationID string, typing bool) error {
	r.mu.Lock()
	r.writes++
	r.mu.Unlock()
	return r.StateRepository.SetUserTyping(ctx, conversationID, typing)
}

func (r *typingCountingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func TestTypingLastWriteWins(t *testing.T) {
	signal := NewTypingSignal(repository.NewMemoryStateRepository())
	ctx := context.Background()

	require.NoError(t, signal.Set(ctx, "u1", true))
	assert.True(t, signal.IsTyping("u1"))

	require.NoError(t, signal.Set(ctx, "u1", false))
	assert.False(t, signal.IsTyping("u1"))
}

func TestTypingWritesOnlyOnValueChange(t *testing.T) {
	repo := &typingCountingRepo{StateRepository: repository.NewMemoryStateRepository()}
	signal := NewTypingSignal(repo)
	ctx := context.Background()

	require.NoError(t, signal.Set(ctx, "u1", true))
	require.NoError(t, signal.Set(ctx, "u1", true))
	require.NoError(t, signal.Set(ctx, "u1", true))
	assert.Equal(t, 1, repo.count())

	require.NoError(t, signal.Set(ctx, "u1", false))
	assert.Equal(t, 2, repo.count())
}

func TestTypingSubscribeDeliversCurrentThenChanges(t *testing.T) {
	signal := NewTypingSignal(repository.NewMemoryStateRepository())
	ctx := context.Background()

	ch, cancel := signal.Subscribe("u1")
	defer cancel()

	assert.False(t, <-ch)

	require.NoError(t, signal.Set(ctx, "u1", true))
	select {
	case typing := <-ch:
		assert.True(t, typing)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for typing update")
	}
}

func TestTypingFlagsAreScopedPerConversation(t *testing.T) {
	signal := NewTypingSignal(repository.NewMemoryStateRepository())
	ctx := context.Background()

	require.NoError(t, signal.Set(ctx, "u1", true))
	assert.True(t, signal.IsTyping("u1"))
	assert.False(t, signal.IsTyping("u2"))
}
