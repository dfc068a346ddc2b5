package router

import (
	"github.com/labstack/echo/v4"

	"supportchat/internal/adapter/api/handler"
)

// SetupInboxRouter sets up the admin-side routes.
func SetupInboxRouter(e *echo.Echo, inboxHandler *handler.InboxHandler) {
	admin := e.Group("/v1/admin")

	admin.GET("/inbox", inboxHandler.GetInbox)                           // GET  /v1/admin/inbox
	admin.POST("/conversations/:userId/messages", inboxHandler.SendMessage) // POST /v1/admin/conversations/:userId/messages
	admin.PUT("/conversations/:userId/read", inboxHandler.MarkRead)      // PUT  /v1/admin/conversations/:userId/read
}
