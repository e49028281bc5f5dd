package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"property-desk/internal/dto"
	"property-desk/pkg/config"
	apperrors "property-desk/pkg/errors"
	"property-desk/pkg/service"
	"property-desk/pkg/utils"
)

func TestAuthService_Login(t *testing.T) {
	hash, err := utils.HashPassword("s3cret")
	require.NoError(t, err)
	jwtSvc := service.NewJWTService("secret", time.Hour)
	svc := NewAuthService(jwtSvc, config.AuthConfig{Username: "operator", PasswordHash: hash}, zap.NewNop())

	token, err := svc.Login(context.Background(), dto.LoginDTO{Username: "operator", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), token.ExpiresIn)

	claims, err := jwtSvc.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Subject)

	_, err = svc.Login(context.Background(), dto.LoginDTO{Username: "operator", Password: "nope"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), dto.LoginDTO{Username: "intruder", Password: "s3cret"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthService_LoginDisabledWithoutHash(t *testing.T) {
	svc := NewAuthService(service.NewJWTService("secret", time.Hour), config.AuthConfig{Username: "operator"}, zap.NewNop())

	_, err := svc.Login(context.Background(), dto.LoginDTO{Username: "operator", Password: ""})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
