package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StaleRecoverer перезапускает зависшие AI-обработки.
type StaleRecoverer interface {
	RecoverStale(ctx context.Context) (int, error)
}

// RecoveryScheduler по расписанию cron ищет заявки, застрявшие в in_progress_by_ai.
type RecoveryScheduler struct {
	recoverer StaleRecoverer
	cron      *cron.Cron
	schedule  string
	timeout   time.Duration
	logger    *zap.Logger
}

func NewRecoveryScheduler(recoverer StaleRecoverer, schedule string, logger *zap.Logger) *RecoveryScheduler {
	return &RecoveryScheduler{
		recoverer: recoverer,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		schedule:  schedule,
		timeout:   time.Minute,
		logger:    logger.Named("recovery_scheduler"),
	}
}

// Start сразу выполняет один проход, затем запускает cron.
func (s *RecoveryScheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.sweep(ctx) }); err != nil {
		return fmt.Errorf("некорректное расписание восстановления %q: %w", s.schedule, err)
	}
	s.sweep(ctx)
	s.cron.Start()
	s.logger.Info("Планировщик восстановления запущен", zap.String("schedule", s.schedule))
	return nil
}

func (s *RecoveryScheduler) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	sweepCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	count, err := s.recoverer.RecoverStale(sweepCtx)
	if err != nil {
		s.logger.Error("Ошибка поиска зависших заявок", zap.Error(err))
		return
	}
	s.logger.Debug("Проход восстановления завершён", zap.Int("recovered", count))
}

// Stop останавливает cron и ждёт текущий проход.
func (s *RecoveryScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Планировщик восстановления остановлен")
}
