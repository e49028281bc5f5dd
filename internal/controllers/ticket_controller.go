package controllers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"property-desk/internal/dto"
	"property-desk/internal/entities"
	"property-desk/internal/services"
	apperrors "property-desk/pkg/errors"
	"property-desk/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TicketExporterInterface - выгрузка списка заявок в файл.
type TicketExporterInterface interface {
	FileName(now time.Time) string
	WriteXLSX(w io.Writer, tickets []entities.Ticket) error
}

type TicketController struct {
	ticketService services.TicketServiceInterface
	exporter      TicketExporterInterface
	logger        *zap.Logger
}

func NewTicketController(ticketService services.TicketServiceInterface, exporter TicketExporterInterface, logger *zap.Logger) *TicketController {
	return &TicketController{ticketService: ticketService, exporter: exporter, logger: logger}
}

func (c *TicketController) parseID(ctx echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID заявки", err,
			map[string]interface{}{"param": ctx.Param("id")})
	}
	return id, nil
}

func parseTicketFilter(ctx echo.Context) (dto.TicketFilterDTO, error) {
	var filter dto.TicketFilterDTO
	if status := ctx.QueryParam("status"); status != "" {
		filter.Status = &status
	}
	if priority := ctx.QueryParam("priority"); priority != "" {
		filter.Priority = &priority
	}
	if raw := ctx.QueryParam("propertyId"); raw != "" {
		propertyID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filter, apperrors.NewHttpError(http.StatusBadRequest, "Неверный propertyId", err,
				map[string]interface{}{"propertyId": raw})
		}
		filter.PropertyID = &propertyID
	}
	filter.SearchQuery = ctx.QueryParam("searchQuery")
	return filter, nil
}

func bindError(err error) error {
	return apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат запроса", err, nil)
}

func (c *TicketController) ListTickets(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	filter, err := parseTicketFilter(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	params := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	tickets := c.ticketService.ListTickets(reqCtx, filter, params)

	if ctx.QueryParam("format") == "xlsx" {
		return c.respondWithXLSX(ctx, tickets)
	}
	return utils.SuccessResponse(ctx, tickets, "Список заявок успешно получен", http.StatusOK)
}

func (c *TicketController) respondWithXLSX(ctx echo.Context, tickets []entities.Ticket) error {
	ctx.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+c.exporter.FileName(time.Now()))
	ctx.Response().WriteHeader(http.StatusOK)
	if err := c.exporter.WriteXLSX(ctx.Response().Writer, tickets); err != nil {
		c.logger.Error("Не удалось сформировать XLSX", zap.Error(err))
		return err
	}
	return nil
}

func (c *TicketController) FindTicket(ctx echo.Context) error {
	id, err := c.parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	ticket, err := c.ticketService.FindTicket(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, ticket, "Заявка успешно найдена", http.StatusOK)
}

func (c *TicketController) CreateTicket(ctx echo.Context) error {
	var payload dto.CreateTicketDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, bindError(err), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	ticket, err := c.ticketService.CreateTicket(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, ticket, "Заявка успешно создана", http.StatusCreated)
}

func (c *TicketController) UpdateTicket(ctx echo.Context) error {
	id, err := c.parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var payload dto.UpdateTicketDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, bindError(err), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	ticket, err := c.ticketService.UpdateTicket(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, ticket, "Заявка успешно обновлена", http.StatusOK)
}

// DeleteTicket всегда отвечает 200: итог удаления в поле success.
func (c *TicketController) DeleteTicket(ctx echo.Context) error {
	id, err := c.parseID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result := c.ticketService.DeleteTicket(ctx.Request().Context(), id)
	message := "Заявка успешно удалена"
	if !result.Success {
		message = "Не удалось удалить заявку"
	}
	return utils.SuccessResponse(ctx, result, message, http.StatusOK)
}

func (c *TicketController) ClassifyTicket(ctx echo.Context) error {
	var payload dto.ClassifyTicketDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, bindError(err), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.ticketService.ClassifyTicket(ctx.Request().Context(), payload.Description)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Заявка классифицирована", http.StatusOK)
}

func (c *TicketController) GenerateTestTicket(ctx echo.Context) error {
	var payload dto.GenerateTestTicketDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, bindError(err), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	ticket, err := c.ticketService.GenerateTestTicket(ctx.Request().Context(), payload.PropertyID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, ticket, "Тестовая заявка создана", http.StatusCreated)
}
