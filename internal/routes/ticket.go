package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"property-desk/internal/controllers"
	"property-desk/internal/services"
)

func runTicketRouter(secureGroup *echo.Group, ticketService services.TicketServiceInterface, exporter controllers.TicketExporterInterface, logger *zap.Logger) {
	ticketCtrl := controllers.NewTicketController(ticketService, exporter, logger)
	{
		secureGroup.GET("/tickets", ticketCtrl.ListTickets)
		secureGroup.POST("/tickets", ticketCtrl.CreateTicket)
		secureGroup.POST("/tickets/classify", ticketCtrl.ClassifyTicket)
		secureGroup.POST("/tickets/generate-test", ticketCtrl.GenerateTestTicket)
		secureGroup.GET("/tickets/:id", ticketCtrl.FindTicket)
		secureGroup.PUT("/tickets/:id", ticketCtrl.UpdateTicket)
		secureGroup.DELETE("/tickets/:id", ticketCtrl.DeleteTicket)
	}
}
