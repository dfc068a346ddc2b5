package router

import (
	"github.com/labstack/echo/v4"

	"supportchat/internal/adapter/api/handler"
)

// SetupWebSocketRouter sets up the realtime endpoints. Identity comes from
// the request; authentication is handled upstream of this service.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws/chat", wsHandler.HandleUserChat)
	e.GET("/ws/admin", wsHandler.HandleAdminConsole)
}
