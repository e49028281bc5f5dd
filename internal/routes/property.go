package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"property-desk/internal/controllers"
	"property-desk/internal/services"
)

func runPropertyRouter(secureGroup *echo.Group, propertyService services.PropertyServiceInterface, logger *zap.Logger) {
	propertyCtrl := controllers.NewPropertyController(propertyService, logger)
	{
		secureGroup.GET("/properties", propertyCtrl.ListProperties)
		secureGroup.POST("/properties", propertyCtrl.CreateProperty)
		secureGroup.GET("/properties/:id", propertyCtrl.FindProperty)
	}
}
