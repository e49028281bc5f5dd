package services

import (
	"context"
	"crypto/subtle"

	"go.uber.org/zap"

	"property-desk/internal/dto"
	"property-desk/pkg/config"
	apperrors "property-desk/pkg/errors"
	"property-desk/pkg/service"
	"property-desk/pkg/utils"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, payload dto.LoginDTO) (*dto.TokenDTO, error)
}

// AuthService выдаёт токен единственному оператору из конфигурации.
type AuthService struct {
	jwtService service.JWTService
	cfg        config.AuthConfig
	logger     *zap.Logger
}

func NewAuthService(jwtService service.JWTService, cfg config.AuthConfig, logger *zap.Logger) AuthServiceInterface {
	return &AuthService{jwtService: jwtService, cfg: cfg, logger: logger.Named("auth_service")}
}

func (s *AuthService) Login(ctx context.Context, payload dto.LoginDTO) (*dto.TokenDTO, error) {
	logger := s.logger.With(zap.String("username", payload.Username))

	if s.cfg.PasswordHash == "" {
		logger.Warn("AUTH_PASSWORD_HASH не задан, вход невозможен")
		return nil, apperrors.ErrInvalidCredentials
	}
	sameUser := subtle.ConstantTimeCompare([]byte(payload.Username), []byte(s.cfg.Username)) == 1
	passwordErr := utils.ComparePasswords(s.cfg.PasswordHash, payload.Password)
	if !sameUser || passwordErr != nil {
		logger.Warn("Неудачная попытка входа")
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateAccessToken(payload.Username)
	if err != nil {
		logger.Error("Не удалось выпустить токен", zap.Error(err))
		return nil, err
	}
	logger.Info("Оператор вошёл в систему")
	return &dto.TokenDTO{
		AccessToken: token,
		ExpiresIn:   int64(s.jwtService.GetAccessTokenTTL().Seconds()),
	}, nil
}
