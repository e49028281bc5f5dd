package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"property-desk/pkg/contextkeys"
	apperrors "property-desk/pkg/errors"
	"property-desk/pkg/service"
	"property-desk/pkg/utils"
)

type AuthMiddleware struct {
	jwtService service.JWTService
	logger     *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtSvc,
		logger:     logger,
	}
}

// Auth проверяет заголовок "Authorization: Bearer <token>".
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			m.logger.Warn("AuthMiddleware: Пустой заголовок Authorization")
			return utils.ErrorResponse(c, apperrors.ErrEmptyAuthHeader, m.logger)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.logger.Warn("AuthMiddleware: Неверный формат заголовка Authorization")
			return utils.ErrorResponse(c, apperrors.ErrInvalidAuthHeader, m.logger)
		}

		return m.authenticate(c, next, parts[1])
	}
}

// QueryToken - для websocket: браузер не может передать заголовок, токен идёт в ?token=.
func (m *AuthMiddleware) QueryToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if token == "" {
			m.logger.Warn("AuthMiddleware: Токен не передан в query")
			return utils.ErrorResponse(c, apperrors.ErrUnauthorized, m.logger)
		}
		return m.authenticate(c, next, token)
	}
}

func (m *AuthMiddleware) authenticate(c echo.Context, next echo.HandlerFunc, token string) error {
	claims, err := m.jwtService.ValidateToken(token)
	if err != nil {
		m.logger.Warn("AuthMiddleware: Ошибка валидации токена", zap.Error(err))
		return utils.ErrorResponse(c, err, m.logger)
	}

	ctx := context.WithValue(c.Request().Context(), contextkeys.SubjectKey, claims.Subject)
	c.SetRequest(c.Request().WithContext(ctx))

	m.logger.Debug("AuthMiddleware: Пользователь аутентифицирован", zap.String("subject", claims.Subject))
	return next(c)
}
