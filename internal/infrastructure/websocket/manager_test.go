package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRegisterUnregister(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	client := &Client{ID: "u1", Kind: "user", Send: make(chan []byte, 4)}

	m.Register <- client
	require.Eventually(t, func() bool { return m.Count() == 1 }, time.Second, 10*time.Millisecond)

	m.Unregister <- client
	require.Eventually(t, func() bool { return m.Count() == 0 }, time.Second, 10*time.Millisecond)

	// Unregister closes the send queue so WritePump can finish.
	_, ok := <-client.Send
	assert.False(t, ok)
}
