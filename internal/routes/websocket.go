package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"property-desk/internal/controllers"
	"property-desk/pkg/middleware"
	appwebsocket "property-desk/pkg/websocket"
)

// Браузерный WebSocket не умеет слать заголовки, поэтому токен идёт в query.
func runWebSocketRouter(api *echo.Group, hub *appwebsocket.Hub, allowedOrigins []string, logger *zap.Logger, authMW *middleware.AuthMiddleware) {
	wsCtrl := controllers.NewWebSocketController(hub, allowedOrigins, logger)

	api.GET("/ws", wsCtrl.ServeWs, authMW.QueryToken)
}
