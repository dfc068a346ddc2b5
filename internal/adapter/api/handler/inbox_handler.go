package handler

import (
	"github.com/labstack/echo/v4"

	"supportchat/internal/usecase"
	"supportchat/pkg/response"
)

type InboxHandler struct {
	inboxUseCase *usecase.InboxUseCase
}

func NewInboxHandler(inboxUseCase *usecase.InboxUseCase) *InboxHandler {
	return &InboxHandler{
		inboxUseCase: inboxUseCase,
	}
}

// GetInbox returns the aggregated admin inbox.
func (h *InboxHandler) GetInbox(c echo.Context) error {
	return response.Success(c, h.inboxUseCase.Snapshot(c.Request().Context()))
}

// SendMessage appends an admin reply to a conversation.
func (h *InboxHandler) SendMessage(c echo.Context) error {
	conversationID := c.Param("userId")

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.inboxUseCase.SendAsAdmin(c.Request().Context(), conversationID, req.Text)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// MarkRead marks every unread user message in the conversation as read.
func (h *InboxHandler) MarkRead(c echo.Context) error {
	conversationID := c.Param("userId")

	marked, err := h.inboxUseCase.MarkConversationRead(c.Request().Context(), conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"marked": marked})
}
