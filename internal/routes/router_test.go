package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"property-desk/internal/dto"
	"property-desk/internal/entities"
	"property-desk/internal/services"
	"property-desk/pkg/config"
	"property-desk/pkg/constants"
	apperrors "property-desk/pkg/errors"
	"property-desk/pkg/service"
	"property-desk/pkg/types"
	"property-desk/pkg/utils"
	"property-desk/pkg/validation"
	appwebsocket "property-desk/pkg/websocket"
)

type stubTicketService struct {
	tickets    []entities.Ticket
	lastFilter dto.TicketFilterDTO
	lastCreate dto.CreateTicketDTO
	deleteOK   bool
}

func (s *stubTicketService) ListTickets(_ context.Context, filter dto.TicketFilterDTO, _ types.Filter) []entities.Ticket {
	s.lastFilter = filter
	return s.tickets
}

func (s *stubTicketService) FindTicket(_ context.Context, id uint64) (*entities.Ticket, error) {
	for i := range s.tickets {
		if s.tickets[i].ID == id {
			return &s.tickets[i], nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *stubTicketService) CreateTicket(_ context.Context, createDTO dto.CreateTicketDTO) (*entities.Ticket, error) {
	s.lastCreate = createDTO
	return &entities.Ticket{ID: 10, Title: createDTO.Title, Status: constants.TicketStatusOpen}, nil
}

func (s *stubTicketService) UpdateTicket(_ context.Context, id uint64, _ dto.UpdateTicketDTO) (*entities.Ticket, error) {
	return s.FindTicket(context.Background(), id)
}

func (s *stubTicketService) DeleteTicket(_ context.Context, id uint64) dto.DeleteTicketResultDTO {
	return dto.DeleteTicketResultDTO{ID: id, Success: s.deleteOK}
}

func (s *stubTicketService) GenerateTestTicket(_ context.Context, propertyID uint64) (*entities.Ticket, error) {
	return &entities.Ticket{ID: 11, PropertyID: propertyID}, nil
}

func (s *stubTicketService) ClassifyTicket(_ context.Context, _ string) (*dto.ClassificationDTO, error) {
	return &dto.ClassificationDTO{Category: "Plumbing", Priority: "HIGH"}, nil
}

type stubPropertyService struct{}

func (stubPropertyService) ListProperties(_ context.Context, _ types.Filter) ([]entities.Property, uint64, error) {
	return []entities.Property{{ID: 1, Address: "221B Baker Street"}}, 7, nil
}

func (stubPropertyService) FindProperty(_ context.Context, id uint64) (*entities.Property, error) {
	return nil, apperrors.ErrNotFound
}

func (stubPropertyService) CreateProperty(_ context.Context, payload dto.CreatePropertyDTO) (*entities.Property, error) {
	return &entities.Property{ID: 2, Name: payload.Name, Address: payload.Address}, nil
}

type RouterSuite struct {
	suite.Suite
	echo    *echo.Echo
	tickets *stubTicketService
	token   string
}

func (s *RouterSuite) SetupTest() {
	logger := zap.NewNop()
	jwtSvc := service.NewJWTService("test-secret", time.Hour)

	hash, err := utils.HashPassword("s3cret")
	s.Require().NoError(err)

	s.tickets = &stubTicketService{
		tickets: []entities.Ticket{{
			ID: 1, Title: "Leak", Status: constants.TicketStatusOpen,
			Priority: constants.TicketPriorityHigh, PropertyID: 1,
		}},
	}

	e := echo.New()
	e.Validator = validation.New()
	InitRouter(e, Dependencies{
		TicketService:   s.tickets,
		PropertyService: stubPropertyService{},
		AuthService:     services.NewAuthService(jwtSvc, config.AuthConfig{Username: "operator", PasswordHash: hash}, logger),
		Exporter:        services.NewTicketExporter(),
		Hub:             appwebsocket.NewHub(logger),
		JWT:             jwtSvc,
	}, &Loggers{Main: logger, Auth: logger, Ticket: logger})
	s.echo = e

	s.token, err = jwtSvc.GenerateAccessToken("operator")
	s.Require().NoError(err)
}

func (s *RouterSuite) do(method, target, body string, authorized bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if authorized {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *RouterSuite) TestTicketsRequireToken() {
	rec := s.do(http.MethodGet, "/api/tickets", "", false)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestLogin() {
	rec := s.do(http.MethodPost, "/api/auth/login", `{"username":"operator","password":"s3cret"}`, false)
	s.Require().Equal(http.StatusOK, rec.Code)
	body := decode(s.T(), rec)["body"].(map[string]interface{})
	s.NotEmpty(body["accessToken"])

	rec = s.do(http.MethodPost, "/api/auth/login", `{"username":"operator","password":"wrong"}`, false)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestListTicketsParsesFilters() {
	rec := s.do(http.MethodGet, "/api/tickets?status=open&priority=HIGH&propertyId=1&searchQuery=leak", "", true)
	s.Require().Equal(http.StatusOK, rec.Code)

	f := s.tickets.lastFilter
	s.Require().NotNil(f.Status)
	s.Equal("open", *f.Status)
	s.Require().NotNil(f.PropertyID)
	s.Equal(uint64(1), *f.PropertyID)
	s.Equal("leak", f.SearchQuery)

	rec = s.do(http.MethodGet, "/api/tickets?propertyId=abc", "", true)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestListTicketsAsXLSX() {
	rec := s.do(http.MethodGet, "/api/tickets?format=xlsx", "", true)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get(echo.HeaderContentType), "spreadsheetml")
	s.Contains(rec.Header().Get(echo.HeaderContentDisposition), ".xlsx")
	s.NotZero(rec.Body.Len())
}

func (s *RouterSuite) TestFindTicket() {
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/tickets/1", "", true).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/tickets/99", "", true).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/tickets/abc", "", true).Code)
}

func (s *RouterSuite) TestCreateTicket() {
	rec := s.do(http.MethodPost, "/api/tickets",
		`{"title":"Broken heater","description":"No heat","priority":"urgent","propertyId":1,"metadata":{"useAI":true}}`, true)
	s.Require().Equal(http.StatusCreated, rec.Code)
	s.Equal("Broken heater", s.tickets.lastCreate.Title)
	s.Require().NotNil(s.tickets.lastCreate.Metadata)
	s.Require().NotNil(s.tickets.lastCreate.Metadata.UseAI)
	s.True(*s.tickets.lastCreate.Metadata.UseAI)
}

func (s *RouterSuite) TestCreateTicketValidation() {
	rec := s.do(http.MethodPost, "/api/tickets", `{"title":"x","priority":"whenever"}`, true)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal(false, decode(s.T(), rec)["status"])

	rec = s.do(http.MethodPost, "/api/tickets", `{not json`, true)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestDeleteAlwaysOK() {
	rec := s.do(http.MethodDelete, "/api/tickets/5", "", true)
	s.Require().Equal(http.StatusOK, rec.Code)
	body := decode(s.T(), rec)["body"].(map[string]interface{})
	s.Equal(false, body["success"])
	s.Equal(float64(5), body["id"])
}

func (s *RouterSuite) TestClassifyAndGenerate() {
	rec := s.do(http.MethodPost, "/api/tickets/classify", `{"description":"water on the floor"}`, true)
	s.Require().Equal(http.StatusOK, rec.Code)
	body := decode(s.T(), rec)["body"].(map[string]interface{})
	s.Equal("Plumbing", body["category"])

	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/tickets/classify", `{}`, true).Code)
	s.Equal(http.StatusCreated, s.do(http.MethodPost, "/api/tickets/generate-test", `{"propertyId":1}`, true).Code)
}

func (s *RouterSuite) TestProperties() {
	rec := s.do(http.MethodGet, "/api/properties?page=2&limit=3", "", true)
	s.Require().Equal(http.StatusOK, rec.Code)
	body := decode(s.T(), rec)["body"].(map[string]interface{})
	s.Len(body["list"], 1)
	pagination := body["pagination"].(map[string]interface{})
	s.Equal(float64(7), pagination["total_count"])
	s.Equal(float64(3), pagination["total_pages"])
	s.Equal(float64(2), pagination["page"])

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/properties/3", "", true).Code)
	s.Equal(http.StatusCreated, s.do(http.MethodPost, "/api/properties", `{"address":"10 Downing Street"}`, true).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/properties", `{"address":""}`, true).Code)
}

func (s *RouterSuite) TestWebSocketRequiresQueryToken() {
	rec := s.do(http.MethodGet, "/api/ws", "", false)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestMetricsEndpoint() {
	rec := s.do(http.MethodGet, "/metrics", "", false)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}
