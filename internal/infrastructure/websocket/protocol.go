package websocket

import (
	"encoding/json"
	"time"

	"supportchat/pkg/logger"
)

// Frame types, client -> server.
const (
	FrameTypePing        = "ping"
	FrameTypeSendMessage = "send_message"
	FrameTypeTyping      = "typing"
	FrameTypeJoin        = "join"
	FrameTypeLeave       = "leave"
	FrameTypeMarkRead    = "mark_read"
)

// Frame types, server -> client.
const (
	FrameTypePong        = "pong"
	FrameTypeMessages    = "messages"
	FrameTypeAdminStatus = "admin_status"
	FrameTypePresence    = "presence"
	FrameTypeInbox       = "inbox"
	FrameTypeUserTyping  = "user_typing"
	FrameTypeError       = "error"
)

// Envelope wraps every frame in both directions.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

type SendMessageData struct {
	Text string `json:"text"`
}

type TypingData struct {
	IsTyping bool `json:"is_typing"`
}

type JoinData struct {
	ConversationID string `json:"conversation_id"`
}

type MarkReadData struct {
	ConversationID string `json:"conversation_id"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Push marshals a frame onto the client's send queue. A full queue drops
// the connection rather than blocking the fan-out path.
func (c *Client) Push(frameType string, data interface{}) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			logger.Error("Failed to marshal %s frame for %s: %v", frameType, c.ID, err)
			return
		}
		raw = encoded
	}

	frame, err := json.Marshal(Envelope{
		Type:      frameType,
		Data:      raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		logger.Error("Failed to marshal envelope for %s: %v", c.ID, err)
		return
	}

	select {
	case c.Send <- frame:
	default:
		logger.Warn("WebSocket send queue full for %s, dropping connection", c.ID)
		c.Conn.Close()
	}
}

// PushError sends a typed error frame.
func (c *Client) PushError(code, message string) {
	c.Push(FrameTypeError, ErrorData{Code: code, Message: message})
}
