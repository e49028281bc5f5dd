package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"property-desk/internal/controllers"
	"property-desk/internal/services"
	"property-desk/pkg/middleware"
	"property-desk/pkg/service"
	appwebsocket "property-desk/pkg/websocket"
)

type Loggers struct {
	Main   *zap.Logger
	Auth   *zap.Logger
	Ticket *zap.Logger
}

// Dependencies - собранные в main сервисы. Жизненным циклом процессора и хаба управляет main.
type Dependencies struct {
	TicketService   services.TicketServiceInterface
	PropertyService services.PropertyServiceInterface
	AuthService     services.AuthServiceInterface
	Exporter        controllers.TicketExporterInterface
	Hub             *appwebsocket.Hub
	JWT             service.JWTService
	AllowedOrigins  []string
}

func InitRouter(e *echo.Echo, deps Dependencies, loggers *Loggers) {
	loggers.Main.Info("InitRouter: Начало создания маршрутов")

	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(deps.JWT, loggers.Auth)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	runAuthRouter(api, deps.AuthService, loggers.Auth)
	runWebSocketRouter(api, deps.Hub, deps.AllowedOrigins, loggers.Main, authMW)

	secureGroup := api.Group("", authMW.Auth)

	runTicketRouter(secureGroup, deps.TicketService, deps.Exporter, loggers.Ticket)
	runPropertyRouter(secureGroup, deps.PropertyService, loggers.Main)

	loggers.Main.Info("INIT_ROUTER: Создание маршрутов завершено")
}
