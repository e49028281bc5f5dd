package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"property-desk/internal/entities"
	"property-desk/internal/integrations"
	"property-desk/internal/integrations/dto"
	"property-desk/internal/repositories"
	"property-desk/pkg/config"
	"property-desk/pkg/constants"
	apperrors "property-desk/pkg/errors"
	"property-desk/pkg/metrics"
	"property-desk/pkg/utils"
)

const (
	manualReviewNotes  = "Automatic resolution was not possible. The ticket was handed over to a property manager."
	manualReviewReason = "The AI assistant could not resolve this issue with enough confidence"
)

// aiJob - одна фоновая обработка заявки. version - версия записи на момент старта.
type aiJob struct {
	id       string
	ticketID uint64
	version  int64
	cancel   context.CancelFunc
	outcome  string
}

type ProcessorOption func(*TicketProcessor)

// WithRand задаёт источник случайности для решения "решено / на ручной разбор".
func WithRand(rnd *rand.Rand) ProcessorOption {
	return func(p *TicketProcessor) { p.rnd = rnd }
}

func WithDelay(delay time.Duration) ProcessorOption {
	return func(p *TicketProcessor) { p.delay = delay }
}

func WithClock(now func() time.Time) ProcessorOption {
	return func(p *TicketProcessor) { p.now = now }
}

func WithMetrics(m *metrics.ProcessingMetrics) ProcessorOption {
	return func(p *TicketProcessor) { p.metrics = m }
}

// TicketProcessor ведёт реестр фоновых AI-обработок: не больше одной на заявку.
type TicketProcessor struct {
	repo        repositories.TicketRepositoryInterface
	generator   integrations.TextGenerator
	notifier    TicketNotifierInterface
	metrics     *metrics.ProcessingMetrics
	logger      *zap.Logger
	delay       time.Duration
	probability float64
	staleAfter  time.Duration
	now         func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand

	baseCtx context.Context
	stop    context.CancelFunc

	mu     sync.Mutex
	jobs   map[uint64]*aiJob
	closed bool
	wg     sync.WaitGroup
}

func NewTicketProcessor(
	repo repositories.TicketRepositoryInterface,
	generator integrations.TextGenerator,
	notifier TicketNotifierInterface,
	cfg config.ProcessingConfig,
	logger *zap.Logger,
	opts ...ProcessorOption,
) *TicketProcessor {
	baseCtx, stop := context.WithCancel(context.Background())
	p := &TicketProcessor{
		repo:        repo,
		generator:   generator,
		notifier:    notifier,
		logger:      logger.Named("ticket_processor"),
		delay:       cfg.Delay,
		probability: cfg.ResolveProbability,
		staleAfter:  cfg.StaleAfter,
		now:         time.Now,
		baseCtx:     baseCtx,
		stop:        stop,
		jobs:        make(map[uint64]*aiJob),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rnd == nil {
		p.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return p
}

// Start переводит заявку в in_progress_by_ai и запускает обработку в фоне.
func (p *TicketProcessor) Start(ctx context.Context, ticketID uint64) (*entities.Ticket, error) {
	ticket, err := p.Mark(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	p.Launch(*ticket)
	return ticket, nil
}

// Mark - синхронная часть старта: статус in_progress_by_ai, version увеличивается.
func (p *TicketProcessor) Mark(ctx context.Context, ticketID uint64) (*entities.Ticket, error) {
	return p.repo.SetStatus(ctx, ticketID, constants.TicketStatusInProgressByAI)
}

// Launch запускает фоновую обработку для снимка ticket. Коммит пройдёт, только если
// в БД всё ещё ticket.Version. Более ранняя обработка той же заявки отменяется.
func (p *TicketProcessor) Launch(ticket entities.Ticket) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("Обработчик остановлен, заявка останется в обработке до восстановления",
			zap.Uint64("ticketID", ticket.ID))
		return
	}
	if previous, ok := p.jobs[ticket.ID]; ok {
		previous.cancel()
	}
	jobCtx, cancel := context.WithCancel(p.baseCtx)
	job := &aiJob{
		id:       uuid.NewString(),
		ticketID: ticket.ID,
		version:  ticket.Version,
		cancel:   cancel,
		outcome:  metrics.OutcomeFailed,
	}
	p.jobs[ticket.ID] = job
	p.wg.Add(1)
	p.mu.Unlock()

	done := p.metrics.JobStarted()
	p.logger.Info("AI-обработка заявки запущена",
		zap.String("jobID", job.id),
		zap.Uint64("ticketID", job.ticketID),
		zap.Int64("version", job.version))

	utils.SafeGo(p.logger, "ai-job-"+job.id, func() {
		defer p.finish(job, done)
		job.outcome = p.run(jobCtx, job)
	})
}

func (p *TicketProcessor) finish(job *aiJob, done func(string)) {
	job.cancel()
	p.mu.Lock()
	if current, ok := p.jobs[job.ticketID]; ok && current == job {
		delete(p.jobs, job.ticketID)
	}
	p.mu.Unlock()
	done(job.outcome)
	p.wg.Done()
}

func (p *TicketProcessor) run(ctx context.Context, job *aiJob) string {
	log := p.logger.With(zap.String("jobID", job.id), zap.Uint64("ticketID", job.ticketID))

	ticket, err := p.repo.FindTicket(ctx, nil, job.ticketID)
	if err != nil {
		return p.classifyFailure(ctx, log, "чтение заявки", err)
	}
	if ticket.Version != job.version {
		log.Info("Заявка изменена до начала обработки, результат не нужен",
			zap.Int64("expected", job.version), zap.Int64("actual", ticket.Version))
		return metrics.OutcomeSuperseded
	}

	resolution, err := p.generator.ResolveIssue(ctx, ticket.Description)
	if err != nil {
		if ctx.Err() != nil {
			return metrics.OutcomeCancelled
		}
		log.Warn("Генератор не вернул решение, заявка уйдёт на ручной разбор", zap.Error(err))
	}

	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("AI-обработка отменена")
			return metrics.OutcomeCancelled
		case <-timer.C:
		}
	}

	resolved := resolution != nil && p.roll() < p.probability
	updated := *ticket
	if resolved {
		updated.Status = constants.TicketStatusResolved
	} else {
		updated.Status = constants.TicketStatusNeedsManualReview
	}
	updated.Metadata = ticket.Metadata.Merge(p.resultPatch(resolved, resolution))

	committed, err := p.repo.UpdateTicketIfVersion(ctx, updated, job.version)
	if err != nil {
		return p.classifyFailure(ctx, log, "запись результата", err)
	}

	if err := p.notifier.Publish(ctx, constants.TopicTicketUpdated, committed); err != nil {
		log.Error("Не удалось отправить уведомление ticketUpdated", zap.Error(err))
	}
	log.Info("AI-обработка завершена", zap.String("status", committed.Status.String()))
	if resolved {
		return metrics.OutcomeResolved
	}
	return metrics.OutcomeManualReview
}

// classifyFailure: удалённая заявка и устаревшая версия - штатные исходы, не ошибки.
func (p *TicketProcessor) classifyFailure(ctx context.Context, log *zap.Logger, step string, err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		log.Debug("Заявка удалена во время обработки", zap.String("step", step))
		return metrics.OutcomeDeleted
	case errors.Is(err, apperrors.ErrConflict):
		log.Info("Заявка изменена во время обработки, результат отброшен", zap.String("step", step))
		return metrics.OutcomeSuperseded
	case ctx.Err() != nil:
		log.Info("AI-обработка отменена", zap.String("step", step))
		return metrics.OutcomeCancelled
	default:
		log.Error("Ошибка AI-обработки", zap.String("step", step), zap.Error(err))
		return metrics.OutcomeFailed
	}
}

func (p *TicketProcessor) resultPatch(resolved bool, resolution *dto.IssueResolution) entities.Metadata {
	processedAt := p.now().UTC().Format(time.RFC3339Nano)
	patch := entities.Metadata{
		AIProcessed:      utils.ToPtr(true),
		AIProcessingTime: &processedAt,
	}
	if resolved {
		patch.AIResolution = utils.ToPtr(null.StringFrom(resolution.Resolution))
		patch.AIActionTaken = utils.ToPtr(null.StringFrom(resolution.ActionTaken))
		patch.AINotes = utils.ToPtr(resolution.Notes)
		return patch
	}
	patch.AIResolution = &null.String{}
	patch.AIActionTaken = &null.String{}
	patch.AINotes = utils.ToPtr(manualReviewNotes)
	patch.ManualReviewReason = utils.ToPtr(null.StringFrom(manualReviewReason))
	return patch
}

func (p *TicketProcessor) roll() float64 {
	p.rndMu.Lock()
	defer p.rndMu.Unlock()
	return p.rnd.Float64()
}

// Cancel отменяет обработку заявки, если она идёт. Возвращает true, если было что отменять.
func (p *TicketProcessor) Cancel(ticketID uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.jobs[ticketID]
	if !ok {
		return false
	}
	job.cancel()
	delete(p.jobs, ticketID)
	return true
}

func (p *TicketProcessor) IsRunning(ticketID uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.jobs[ticketID]
	return ok
}

func (p *TicketProcessor) ActiveJobs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

// RecoverStale перезапускает заявки, застрявшие в in_progress_by_ai дольше staleAfter
// без живой обработки в этом процессе (например, после рестарта).
func (p *TicketProcessor) RecoverStale(ctx context.Context) (int, error) {
	stale, err := p.repo.FindStaleProcessing(ctx, p.now().Add(-p.staleAfter))
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, ticket := range stale {
		if p.IsRunning(ticket.ID) {
			continue
		}
		p.Launch(ticket)
		recovered++
	}
	p.metrics.Recovered(recovered)
	if recovered > 0 {
		p.logger.Info("Восстановлены зависшие AI-обработки", zap.Int("count", recovered))
	}
	return recovered, nil
}

// Shutdown отменяет все обработки и ждёт их горутины. Незавершённые заявки
// подберёт RecoverStale при следующем запуске.
func (p *TicketProcessor) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.stop()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait ждёт завершения всех запущенных обработок, не отменяя их.
func (p *TicketProcessor) Wait() {
	p.wg.Wait()
}
