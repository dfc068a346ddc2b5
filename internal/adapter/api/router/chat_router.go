package router

import (
	"github.com/labstack/echo/v4"

	"supportchat/internal/adapter/api/handler"
)

// SetupChatRouter sets up the end-user conversation routes.
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler) {
	conversations := e.Group("/v1/conversations")

	conversations.POST("/:userId/messages", chatHandler.SendMessage) // POST /v1/conversations/:userId/messages
	conversations.GET("/:userId/messages", chatHandler.GetMessages)  // GET  /v1/conversations/:userId/messages
	conversations.PUT("/:userId/read", chatHandler.MarkRead)         // PUT  /v1/conversations/:userId/read

	e.GET("/v1/presence/:userId", chatHandler.GetPresence)
	e.GET("/v1/admin-channel/status", chatHandler.GetAdminStatus)
}
