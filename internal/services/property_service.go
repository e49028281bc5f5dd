package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"property-desk/internal/dto"
	"property-desk/internal/entities"
	"property-desk/internal/repositories"
	apperrors "property-desk/pkg/errors"
	"property-desk/pkg/types"
)

type PropertyServiceInterface interface {
	ListProperties(ctx context.Context, params types.Filter) ([]entities.Property, uint64, error)
	FindProperty(ctx context.Context, id uint64) (*entities.Property, error)
	CreateProperty(ctx context.Context, createDTO dto.CreatePropertyDTO) (*entities.Property, error)
}

type PropertyService struct {
	repo   repositories.PropertyRepositoryInterface
	logger *zap.Logger
}

func NewPropertyService(repo repositories.PropertyRepositoryInterface, logger *zap.Logger) PropertyServiceInterface {
	return &PropertyService{repo: repo, logger: logger.Named("property_service")}
}

func (s *PropertyService) ListProperties(ctx context.Context, params types.Filter) ([]entities.Property, uint64, error) {
	properties, err := s.repo.ListProperties(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountProperties(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return properties, total, nil
}

func (s *PropertyService) FindProperty(ctx context.Context, id uint64) (*entities.Property, error) {
	property, err := s.repo.FindProperty(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("объект недвижимости %d: %w", id, apperrors.ErrNotFound)
	}
	return property, err
}

func (s *PropertyService) CreateProperty(ctx context.Context, createDTO dto.CreatePropertyDTO) (*entities.Property, error) {
	created, err := s.repo.CreateProperty(ctx, entities.Property{
		Name:    strings.TrimSpace(createDTO.Name),
		Address: strings.TrimSpace(createDTO.Address),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Объект недвижимости создан", zap.Uint64("propertyID", created.ID))
	return created, nil
}
