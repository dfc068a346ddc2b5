package handler

import (
	"github.com/labstack/echo/v4"

	"supportchat/internal/domain/entity"
	"supportchat/internal/usecase"
	"supportchat/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

type markReadRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// SendMessage appends an end-user message to their conversation.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	userID := c.Param("userId")

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.SendAsUser(c.Request().Context(), userID, req.Text)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// GetMessages returns the full ordered snapshot of one conversation.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	userID := c.Param("userId")
	return response.Success(c, h.chatUseCase.Messages(userID))
}

// MarkRead marks the counterpart's unread messages as read.
func (h *ChatHandler) MarkRead(c echo.Context) error {
	userID := c.Param("userId")

	var req markReadRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	marked, err := h.chatUseCase.MarkRead(c.Request().Context(), userID, entity.Sender(req.Role))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"marked": marked})
}

// GetPresence reports one user's last-known status.
func (h *ChatHandler) GetPresence(c echo.Context) error {
	userID := c.Param("userId")
	return response.Success(c, entity.Presence{
		UserID: userID,
		Status: h.chatUseCase.PresenceStatus(c.Request().Context(), userID),
	})
}

// GetAdminStatus reports the shared admin channel scalar.
func (h *ChatHandler) GetAdminStatus(c echo.Context) error {
	return response.Success(c, map[string]entity.AdminStatus{"status": h.chatUseCase.AdminStatus()})
}
