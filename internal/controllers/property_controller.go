package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"property-desk/internal/dto"
	"property-desk/internal/services"
	"property-desk/pkg/api"
	apperrors "property-desk/pkg/errors"
	"property-desk/pkg/utils"
)

type PropertyController struct {
	propertyService services.PropertyServiceInterface
	logger          *zap.Logger
}

func NewPropertyController(propertyService services.PropertyServiceInterface, logger *zap.Logger) *PropertyController {
	return &PropertyController{propertyService: propertyService, logger: logger}
}

func (c *PropertyController) ListProperties(ctx echo.Context) error {
	params := utils.ParseFilterFromQuery(ctx.Request().URL.Query())
	properties, total, err := c.propertyService.ListProperties(ctx.Request().Context(), params)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessList(ctx, "Список объектов успешно получен", properties, total, params.Page, params.Limit)
}

func (c *PropertyController) FindProperty(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID объекта", err,
				map[string]interface{}{"param": ctx.Param("id")}),
			c.logger)
	}
	property, err := c.propertyService.FindProperty(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, property, "Объект успешно найден", http.StatusOK)
}

func (c *PropertyController) CreateProperty(ctx echo.Context) error {
	var payload dto.CreatePropertyDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, bindError(err), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	property, err := c.propertyService.CreateProperty(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, property, "Объект успешно создан", http.StatusCreated)
}
