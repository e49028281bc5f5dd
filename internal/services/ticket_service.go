package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"property-desk/internal/dto"
	"property-desk/internal/entities"
	"property-desk/internal/integrations"
	"property-desk/internal/repositories"
	"property-desk/pkg/constants"
	apperrors "property-desk/pkg/errors"
	"property-desk/pkg/metrics"
	"property-desk/pkg/types"
	"property-desk/pkg/utils"
)

const classifyCachePrefix = "classify:"

// TicketProcessorInterface - то, что сервису нужно от TicketProcessor.
type TicketProcessorInterface interface {
	Mark(ctx context.Context, ticketID uint64) (*entities.Ticket, error)
	Launch(ticket entities.Ticket)
	Cancel(ticketID uint64) bool
}

type TicketServiceInterface interface {
	ListTickets(ctx context.Context, filter dto.TicketFilterDTO, params types.Filter) []entities.Ticket
	FindTicket(ctx context.Context, id uint64) (*entities.Ticket, error)
	CreateTicket(ctx context.Context, createDTO dto.CreateTicketDTO) (*entities.Ticket, error)
	UpdateTicket(ctx context.Context, id uint64, updateDTO dto.UpdateTicketDTO) (*entities.Ticket, error)
	DeleteTicket(ctx context.Context, id uint64) dto.DeleteTicketResultDTO
	GenerateTestTicket(ctx context.Context, propertyID uint64) (*entities.Ticket, error)
	ClassifyTicket(ctx context.Context, description string) (*dto.ClassificationDTO, error)
}

type TicketService struct {
	repo        repositories.TicketRepositoryInterface
	txManager   repositories.TxManagerInterface
	processor   TicketProcessorInterface
	generator   integrations.TextGenerator
	cache       repositories.CacheRepositoryInterface
	notifier    TicketNotifierInterface
	metrics     *metrics.ProcessingMetrics
	classifyTTL time.Duration
	logger      *zap.Logger
}

func NewTicketService(
	repo repositories.TicketRepositoryInterface,
	txManager repositories.TxManagerInterface,
	processor TicketProcessorInterface,
	generator integrations.TextGenerator,
	cache repositories.CacheRepositoryInterface,
	notifier TicketNotifierInterface,
	classifyTTL time.Duration,
	m *metrics.ProcessingMetrics,
	logger *zap.Logger,
) TicketServiceInterface {
	return &TicketService{
		repo:        repo,
		txManager:   txManager,
		processor:   processor,
		generator:   generator,
		cache:       cache,
		notifier:    notifier,
		metrics:     m,
		classifyTTL: classifyTTL,
		logger:      logger.Named("ticket_service"),
	}
}

// ListTickets не возвращает ошибок: при сбое хранилища - пустой список и запись в лог.
func (s *TicketService) ListTickets(ctx context.Context, filter dto.TicketFilterDTO, params types.Filter) []entities.Ticket {
	tickets, err := s.repo.ListTickets(ctx, filter, params)
	if err != nil {
		s.logger.Error("Не удалось получить список заявок", zap.Error(err))
		return []entities.Ticket{}
	}
	if tickets == nil {
		return []entities.Ticket{}
	}
	return tickets
}

func (s *TicketService) FindTicket(ctx context.Context, id uint64) (*entities.Ticket, error) {
	ticket, err := s.repo.FindTicket(ctx, nil, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("заявка %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) CreateTicket(ctx context.Context, createDTO dto.CreateTicketDTO) (*entities.Ticket, error) {
	status := constants.TicketStatusOpen
	if createDTO.Status != "" {
		parsed, err := constants.ParseTicketStatus(createDTO.Status)
		if err != nil {
			return nil, apperrors.NewValidationError("status", "%v", err)
		}
		status = parsed
	}
	priority, err := constants.ParseTicketPriority(createDTO.Priority)
	if err != nil {
		return nil, apperrors.NewValidationError("priority", "%v", err)
	}

	ticket := entities.Ticket{
		Title:       strings.TrimSpace(createDTO.Title),
		Description: createDTO.Description,
		Status:      status,
		Priority:    priority,
		PropertyID:  createDTO.PropertyID,
	}
	if createDTO.Metadata != nil {
		ticket.Metadata = *createDTO.Metadata
	}

	return s.createAndProcess(ctx, ticket)
}

// createAndProcess сохраняет заявку, синхронно помечает её in_progress_by_ai при useAI
// и публикует ticketCreated до запуска фоновой обработки.
func (s *TicketService) createAndProcess(ctx context.Context, ticket entities.Ticket) (*entities.Ticket, error) {
	created, err := s.repo.CreateTicket(ctx, ticket)
	if err != nil {
		return nil, err
	}

	result := created
	launch := false
	if created.UsesAI() {
		marked, err := s.processor.Mark(ctx, created.ID)
		if err != nil {
			s.logger.Error("Не удалось перевести заявку в AI-обработку", zap.Uint64("ticketID", created.ID), zap.Error(err))
		} else {
			result = marked
			launch = true
		}
	}

	s.publish(ctx, constants.TopicTicketCreated, result)
	if launch {
		s.processor.Launch(*result)
	}
	s.logger.Info("Заявка создана",
		zap.Uint64("ticketID", result.ID),
		zap.String("status", result.Status.String()),
		zap.Bool("useAI", launch))
	return result, nil
}

func (s *TicketService) UpdateTicket(ctx context.Context, id uint64, updateDTO dto.UpdateTicketDTO) (*entities.Ticket, error) {
	var updated *entities.Ticket
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		current, err := s.repo.FindTicketForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if updateDTO.IsEmpty() {
			updated = current
			return nil
		}
		if err := applyTicketUpdate(current, updateDTO); err != nil {
			return err
		}
		updated, err = s.repo.UpdateTicket(ctx, tx, *current)
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("заявка %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	if updateDTO.IsEmpty() {
		return updated, nil
	}

	// Ручная правка меняет version, поэтому текущая AI-обработка свой результат не запишет.
	// Если заявка осталась в in_progress_by_ai, обработка перезапускается с новой версией.
	if updated.Status == constants.TicketStatusInProgressByAI {
		s.processor.Launch(*updated)
	} else {
		s.processor.Cancel(id)
	}

	s.publish(ctx, constants.TopicTicketUpdated, updated)
	return updated, nil
}

func applyTicketUpdate(ticket *entities.Ticket, updateDTO dto.UpdateTicketDTO) error {
	if updateDTO.Title != nil {
		ticket.Title = strings.TrimSpace(*updateDTO.Title)
	}
	if updateDTO.Description != nil {
		ticket.Description = *updateDTO.Description
	}
	if updateDTO.Status != nil {
		status, err := constants.ParseTicketStatus(*updateDTO.Status)
		if err != nil {
			return apperrors.NewValidationError("status", "%v", err)
		}
		ticket.Status = status
	}
	if updateDTO.Priority != nil {
		priority, err := constants.ParseTicketPriority(*updateDTO.Priority)
		if err != nil {
			return apperrors.NewValidationError("priority", "%v", err)
		}
		ticket.Priority = priority
	}
	if updateDTO.PropertyID != nil {
		ticket.PropertyID = *updateDTO.PropertyID
	}
	if updateDTO.Metadata != nil {
		ticket.Metadata = ticket.Metadata.Merge(*updateDTO.Metadata)
	}
	return nil
}

// DeleteTicket никогда не возвращает ошибку: неудача - Success=false.
// Обработка отменяется только после успешного удаления, при ошибке заявка продолжает обрабатываться.
func (s *TicketService) DeleteTicket(ctx context.Context, id uint64) dto.DeleteTicketResultDTO {
	snapshot, err := s.repo.DeleteTicket(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Debug("Удаление несуществующей заявки", zap.Uint64("ticketID", id))
		} else {
			s.logger.Error("Не удалось удалить заявку", zap.Uint64("ticketID", id), zap.Error(err))
		}
		return dto.DeleteTicketResultDTO{ID: id, Success: false}
	}

	if s.processor.Cancel(id) {
		s.logger.Info("AI-обработка отменена из-за удаления заявки", zap.Uint64("ticketID", id))
	}

	result := dto.DeleteTicketResultDTO{ID: id, Success: true, Ticket: snapshot}
	s.publish(ctx, constants.TopicTicketDeleted, result)
	return result
}

func (s *TicketService) GenerateTestTicket(ctx context.Context, propertyID uint64) (*entities.Ticket, error) {
	issue, err := s.generator.GenerateIssue(ctx)
	if err != nil {
		return nil, fmt.Errorf("не удалось сгенерировать заявку: %w", err)
	}

	priority, err := constants.ParseTicketPriority(issue.Priority)
	if err != nil {
		priority = constants.TicketPriorityMedium
	}

	ticket := entities.Ticket{
		Title:       issue.Title,
		Description: issue.Description,
		Status:      constants.TicketStatusInProgressByAI,
		Priority:    priority,
		PropertyID:  propertyID,
		Metadata: entities.Metadata{
			UseAI:          utils.ToPtr(true),
			GeneratedByAI:  utils.ToPtr(true),
			ActionRequired: utils.ToPtr(issue.SuggestedAction),
		},
	}
	return s.createAndProcess(ctx, ticket)
}

// ClassifyTicket кеширует ответ по SHA-256 описания. Ошибки кеша не мешают ответу.
func (s *TicketService) ClassifyTicket(ctx context.Context, description string) (*dto.ClassificationDTO, error) {
	if strings.TrimSpace(description) == "" {
		return nil, apperrors.NewValidationError("description", "описание не может быть пустым")
	}

	key := classifyCacheKey(description)
	if cached, ok := s.cachedClassification(ctx, key); ok {
		return cached, nil
	}

	res, err := s.generator.Classify(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("не удалось классифицировать заявку: %w", err)
	}
	result := &dto.ClassificationDTO{
		Title:              res.Title,
		Priority:           strings.ToUpper(res.Priority),
		Category:           res.Category,
		EstimatedTimeToFix: res.EstimatedTimeToFix,
		SuggestedAction:    res.SuggestedAction,
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, string(encoded), s.classifyTTL); err != nil {
				s.logger.Warn("Не удалось записать классификацию в кеш", zap.Error(err))
			}
		}
	}
	return result, nil
}

func (s *TicketService) cachedClassification(ctx context.Context, key string) (*dto.ClassificationDTO, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repositories.ErrCacheMiss) {
			s.logger.Warn("Кеш классификации недоступен", zap.Error(err))
		}
		s.metrics.CacheLookup(false)
		return nil, false
	}
	var cached dto.ClassificationDTO
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		s.logger.Warn("Повреждённая запись в кеше классификации", zap.String("key", key), zap.Error(err))
		s.metrics.CacheLookup(false)
		return nil, false
	}
	s.metrics.CacheLookup(true)
	return &cached, true
}

func classifyCacheKey(description string) string {
	sum := sha256.Sum256([]byte(description))
	return classifyCachePrefix + hex.EncodeToString(sum[:])
}

func (s *TicketService) publish(ctx context.Context, topic string, payload interface{}) {
	if err := s.notifier.Publish(ctx, topic, payload); err != nil {
		s.logger.Error("Не удалось отправить уведомление", zap.String("topic", topic), zap.Error(err))
	}
}
