package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"supportchat/pkg/logger"
)

// Client is one WebSocket connection. Kind is "user" or "admin".
type Client struct {
	ID   string
	Kind string
	Conn *websocket.Conn
	Send chan []byte
}

// Manager tracks all active WebSocket connections.
type Manager struct {
	clients    map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the manager's bookkeeping loop in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client] = struct{}{}
				m.mutex.Unlock()
				logger.Info("WebSocket client registered: %s (%s)", client.ID, client.Kind)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if _, ok := m.clients[client]; ok {
					delete(m.clients, client)
					close(client.Send)
				}
				m.mutex.Unlock()
				logger.Info("WebSocket client unregistered: %s (%s)", client.ID, client.Kind)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Count returns the number of open connections.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// ReadPump reads frames from the connection and hands them to onMessage.
// onClose runs exactly once when the connection drops, normally or not.
func (c *Client) ReadPump(m *Manager, onMessage func([]byte), onClose func()) {
	defer func() {
		onClose()
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error for %s: %v", c.ID, err)
			}
			break
		}
		onMessage(message)
	}
}

// WritePump sends queued frames to the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Warn("WebSocket write error for %s: %v", c.ID, err)
			return
		}
	}
}
