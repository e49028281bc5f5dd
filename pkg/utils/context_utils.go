package utils

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"property-desk/pkg/contextkeys"
	apperrors "property-desk/pkg/errors"
)

func ContextWithTimeout(c echo.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), timeout)
}

// GetSubjectFromCtx - имя оператора из токена, кладётся AuthMiddleware.
func GetSubjectFromCtx(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(contextkeys.SubjectKey).(string)
	if !ok || subject == "" {
		return "", apperrors.ErrUnauthorized
	}
	return subject, nil
}
