package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"supportchat/internal/domain/entity"
	"supportchat/internal/infrastructure/metrics"
	ws "supportchat/internal/infrastructure/websocket"
	"supportchat/internal/usecase"
	apperrors "supportchat/pkg/errors"
	"supportchat/pkg/logger"
)

type WebSocketHandler struct {
	manager      *ws.Manager
	chatUseCase  *usecase.ChatUseCase
	inboxUseCase *usecase.InboxUseCase
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // restrict in production
	},
}

func NewWebSocketHandler(manager *ws.Manager, chatUseCase *usecase.ChatUseCase, inboxUseCase *usecase.InboxUseCase) *WebSocketHandler {
	return &WebSocketHandler{
		manager:      manager,
		chatUseCase:  chatUseCase,
		inboxUseCase: inboxUseCase,
	}
}

// HandleUserChat runs one end-user chat session over a WebSocket. Identity
// comes from the request; authentication is handled upstream.
func (h *WebSocketHandler) HandleUserChat(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return apperrors.BadRequest("user_id query parameter is required", nil)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return apperrors.Internal("Failed to upgrade connection", err)
	}

	client := &ws.Client{
		ID:   userID,
		Kind: "user",
		Conn: conn,
		Send: make(chan []byte, 256),
	}
	h.manager.Register <- client
	go client.WritePump()

	metrics.WSConnections.WithLabelValues("user").Inc()

	session, err := h.chatUseCase.OpenSession(c.Request().Context(), userID)
	if err != nil {
		pushAppError(client, err)
		metrics.WSConnections.WithLabelValues("user").Dec()
		h.manager.Unregister <- client
		conn.Close()
		return nil
	}

	// Three independent streams; no ordering guarantee between them.
	go func() {
		for {
			select {
			case snapshot, ok := <-session.Messages:
				if !ok {
					return
				}
				client.Push(ws.FrameTypeMessages, snapshot)
			case status, ok := <-session.AdminStatus:
				if !ok {
					return
				}
				client.Push(ws.FrameTypeAdminStatus, map[string]entity.AdminStatus{"status": status})
			case status, ok := <-session.SelfPresence:
				if !ok {
					return
				}
				client.Push(ws.FrameTypePresence, entity.Presence{UserID: userID, Status: status})
			}
		}
	}()

	onMessage := func(raw []byte) {
		var env ws.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			client.PushError("BAD_REQUEST", "Invalid frame")
			return
		}

		ctx := context.Background()
		switch env.Type {
		case ws.FrameTypePing:
			session.Heartbeat(ctx)
			client.Push(ws.FrameTypePong, nil)

		case ws.FrameTypeSendMessage:
			var data ws.SendMessageData
			if err := json.Unmarshal(env.Data, &data); err != nil {
				client.PushError("BAD_REQUEST", "Invalid send_message frame")
				return
			}
			if _, err := session.Send(ctx, data.Text); err != nil {
				pushAppError(client, err)
			}

		case ws.FrameTypeTyping:
			var data ws.TypingData
			if err := json.Unmarshal(env.Data, &data); err != nil {
				client.PushError("BAD_REQUEST", "Invalid typing frame")
				return
			}
			if err := session.SetTyping(ctx, data.IsTyping); err != nil {
				pushAppError(client, err)
			}

		default:
			client.PushError("BAD_REQUEST", "Unknown frame type: "+env.Type)
		}
	}

	onClose := func() {
		session.Close(context.Background())
		metrics.WSConnections.WithLabelValues("user").Dec()
	}

	go client.ReadPump(h.manager, onMessage, onClose)
	return nil
}

// HandleAdminConsole runs one admin console connection: the aggregated
// inbox stream plus at most one joined conversation at a time.
func (h *WebSocketHandler) HandleAdminConsole(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return apperrors.Internal("Failed to upgrade connection", err)
	}

	client := &ws.Client{
		ID:   "admin-" + uuid.New().String(),
		Kind: "admin",
		Conn: conn,
		Send: make(chan []byte, 256),
	}
	h.manager.Register <- client
	go client.WritePump()

	metrics.WSConnections.WithLabelValues("admin").Inc()

	ctx := context.Background()
	if err := h.chatUseCase.AdminChannelOnline(ctx); err != nil {
		logger.Error("Admin channel online write failed: %v", err)
	}

	inboxStream, cancelInbox := h.inboxUseCase.Subscribe(ctx)
	go func() {
		for items := range inboxStream {
			client.Push(ws.FrameTypeInbox, items)
		}
	}()

	// At most one joined conversation per console connection.
	var mu sync.Mutex
	var joined *usecase.AdminConversation

	leave := func() {
		mu.Lock()
		defer mu.Unlock()
		if joined != nil {
			joined.Close()
			joined = nil
		}
	}

	join := func(conversationID string) {
		conv, err := h.inboxUseCase.OpenConversation(conversationID)
		if err != nil {
			pushAppError(client, err)
			return
		}

		mu.Lock()
		if joined != nil {
			joined.Close()
		}
		joined = conv
		mu.Unlock()

		go func() {
			for {
				select {
				case snapshot, ok := <-conv.Messages:
					if !ok {
						return
					}
					client.Push(ws.FrameTypeMessages, snapshot)
				case typing, ok := <-conv.UserTyping:
					if !ok {
						return
					}
					client.Push(ws.FrameTypeUserTyping, map[string]interface{}{
						"conversation_id": conversationID,
						"is_typing":       typing,
					})
				}
			}
		}()
	}

	onMessage := func(raw []byte) {
		var env ws.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			client.PushError("BAD_REQUEST", "Invalid frame")
			return
		}

		switch env.Type {
		case ws.FrameTypePing:
			h.chatUseCase.AdminChannelHeartbeat(ctx)
			client.Push(ws.FrameTypePong, nil)

		case ws.FrameTypeJoin:
			var data ws.JoinData
			if err := json.Unmarshal(env.Data, &data); err != nil {
				client.PushError("BAD_REQUEST", "Invalid join frame")
				return
			}
			join(data.ConversationID)

		case ws.FrameTypeLeave:
			leave()

		case ws.FrameTypeSendMessage:
			var data ws.SendMessageData
			if err := json.Unmarshal(env.Data, &data); err != nil {
				client.PushError("BAD_REQUEST", "Invalid send_message frame")
				return
			}
			mu.Lock()
			current := joined
			mu.Unlock()
			if current == nil {
				client.PushError("BAD_REQUEST", "Join a conversation before sending")
				return
			}
			if _, err := h.inboxUseCase.SendAsAdmin(ctx, current.ConversationID, data.Text); err != nil {
				pushAppError(client, err)
			}

		case ws.FrameTypeTyping:
			var data ws.TypingData
			if err := json.Unmarshal(env.Data, &data); err != nil {
				client.PushError("BAD_REQUEST", "Invalid typing frame")
				return
			}
			if err := h.chatUseCase.AdminChannelTyping(ctx, data.IsTyping); err != nil {
				pushAppError(client, err)
			}

		case ws.FrameTypeMarkRead:
			var data ws.MarkReadData
			if err := json.Unmarshal(env.Data, &data); err != nil {
				client.PushError("BAD_REQUEST", "Invalid mark_read frame")
				return
			}
			if _, err := h.inboxUseCase.MarkConversationRead(ctx, data.ConversationID); err != nil {
				pushAppError(client, err)
			}

		default:
			client.PushError("BAD_REQUEST", "Unknown frame type: "+env.Type)
		}
	}

	onClose := func() {
		leave()
		cancelInbox()
		if err := h.chatUseCase.AdminChannelOffline(context.Background()); err != nil {
			logger.Error("Admin channel offline write failed: %v", err)
		}
		metrics.WSConnections.WithLabelValues("admin").Dec()
	}

	go client.ReadPump(h.manager, onMessage, onClose)
	return nil
}

func pushAppError(client *ws.Client, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		client.PushError(appErr.Code, appErr.Message)
		return
	}
	client.PushError("INTERNAL_ERROR", "An unexpected error occurred")
}
