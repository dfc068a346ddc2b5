package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportchat/internal/adapter/repository"
	"supportchat/internal/domain/entity"
)

func TestAdminChannelTypingImpliesOnline(t *testing.T) {
	channel := NewAdminChannel(repository.NewMemoryStateRepository(), time.Minute, time.Minute)
	ctx := context.Background()

	assert.Equal(t, entity.AdminOffline, channel.Status())

	require.NoError(t, channel.SetOnline(ctx))
	assert.Equal(t, entity.AdminOnline, channel.Status())

	require.NoError(t, channel.SetTyping(ctx, true))
	assert.Equal(t, entity.AdminTyping, channel.Status())

	require.NoError(t, channel.SetTyping(ctx, false))
	assert.Equal(t, entity.AdminOnline, channel.Status())
}

func TestAdminChannelOfflineClearsTyping(t *testing.T) {
	channel := NewAdminChannel(repository.NewMemoryStateRepository(), time.Minute, time.Minute)
	ctx := context.Background()

	require.NoError(t, channel.SetOnline(ctx))
	require.NoError(t, channel.SetTyping(ctx, true))
	require.NoError(t, channel.SetOffline(ctx))
	assert.Equal(t, entity.AdminOffline, channel.Status())

	require.NoError(t, channel.SetOnline(ctx))
	assert.Equal(t, entity.AdminOnline, channel.Status(), "typing must not survive an offline transition")
}

func TestAdminChannelTypingWhileOfflineIgnored(t *testing.T) {
	channel := NewAdminChannel(repository.NewMemoryStateRepository(), time.Minute, time.Minute)
	ctx := context.Background()

	require.NoError(t, channel.SetTyping(ctx, true))
	assert.Equal(t, entity.AdminOffline, channel.Status())
}

func TestAdminChannelHeartbeatTimeout(t *testing.T) {
	channel := NewAdminChannel(repository.NewMemoryStateRepository(), 50*time.Millisecond, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	channel.Start(ctx)

	ch, unsubscribe := channel.Subscribe()
	defer unsubscribe()

	assert.Equal(t, entity.AdminOffline, <-ch)

	require.NoError(t, channel.SetOnline(ctx))
	assert.Equal(t, entity.AdminOnline, <-ch)

	require.Eventually(t, func() bool {
		select {
		case status := <-ch:
			return status == entity.AdminOffline
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond, "crashed console should go offline on timeout")
}
