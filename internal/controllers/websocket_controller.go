package controllers

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"property-desk/pkg/constants"
	"property-desk/pkg/utils"
	appwebsocket "property-desk/pkg/websocket"
)

type WebSocketController struct {
	hub      *appwebsocket.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketController - allowedOrigins пустой или с "*" пропускает любой Origin.
func NewWebSocketController(hub *appwebsocket.Hub, allowedOrigins []string, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// parseTopics разбирает ?topics=a,b. Неизвестные топики отбрасываются, пусто - все топики.
func parseTopics(raw string) []string {
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if constants.IsTicketTopic(t) {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return constants.TicketTopics
	}
	return topics
}

// ServeWs - маршрут закрыт AuthMiddleware.QueryToken, subject уже в контексте.
func (c *WebSocketController) ServeWs(ctx echo.Context) error {
	subject, err := utils.GetSubjectFromCtx(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	topics := parseTopics(ctx.QueryParam("topics"))

	conn, err := c.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		c.logger.Error("WebSocket: не удалось улучшить соединение", zap.Error(err))
		return nil
	}

	client := appwebsocket.NewClient(c.hub, conn, subject, topics, constants.IsTicketTopic)
	c.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	c.logger.Info("WebSocket: клиент подключен", zap.String("subject", subject), zap.Strings("topics", topics))
	return nil
}
