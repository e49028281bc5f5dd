package listeners

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"property-desk/internal/entities"
	"property-desk/internal/services"
	"property-desk/pkg/constants"
	"property-desk/pkg/telegram"
	"property-desk/pkg/utils"
)

const alertSendTimeout = 10 * time.Second

// ManualReviewAlertListener пишет в Telegram-чат дежурного, когда заявка уходит на ручной разбор.
// Одна заявка оповещается один раз, пока не выйдет из этого статуса.
type ManualReviewAlertListener struct {
	notifier services.TicketNotifierInterface
	sender   telegram.ServiceInterface
	chatID   int64
	logger   *zap.Logger

	mu      sync.Mutex
	alerted map[uint64]struct{}
	wg      sync.WaitGroup
}

func NewManualReviewAlertListener(notifier services.TicketNotifierInterface, sender telegram.ServiceInterface, chatID int64, logger *zap.Logger) *ManualReviewAlertListener {
	return &ManualReviewAlertListener{
		notifier: notifier,
		sender:   sender,
		chatID:   chatID,
		logger:   logger.Named("manual_review_alert"),
		alerted:  make(map[uint64]struct{}),
	}
}

func (l *ManualReviewAlertListener) Start(ctx context.Context) error {
	updates, err := l.notifier.Subscribe(ctx, constants.TopicTicketUpdated)
	if err != nil {
		return fmt.Errorf("не удалось подписаться на %s: %w", constants.TopicTicketUpdated, err)
	}
	deletes, err := l.notifier.Subscribe(ctx, constants.TopicTicketDeleted)
	if err != nil {
		return fmt.Errorf("не удалось подписаться на %s: %w", constants.TopicTicketDeleted, err)
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.loop(ctx, updates, deletes)
	}()
	return nil
}

func (l *ManualReviewAlertListener) loop(ctx context.Context, updates, deletes <-chan []byte) {
	for updates != nil || deletes != nil {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			l.handleUpdate(ctx, payload)
		case payload, ok := <-deletes:
			if !ok {
				deletes = nil
				continue
			}
			var res struct {
				ID uint64 `json:"id"`
			}
			if err := json.Unmarshal(payload, &res); err == nil {
				l.forget(res.ID)
			}
		}
	}
}

func (l *ManualReviewAlertListener) handleUpdate(ctx context.Context, payload []byte) {
	var ticket entities.Ticket
	if err := json.Unmarshal(payload, &ticket); err != nil {
		l.logger.Warn("Не удалось разобрать уведомление об обновлении", zap.Error(err))
		return
	}
	if ticket.Status != constants.TicketStatusNeedsManualReview {
		l.forget(ticket.ID)
		return
	}
	if !l.remember(ticket.ID) {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, alertSendTimeout)
	defer cancel()
	if err := l.sender.SendMessage(sendCtx, l.chatID, formatManualReviewAlert(ticket), telegram.WithHTML()); err != nil {
		l.logger.Error("Не удалось отправить оповещение в Telegram", zap.Uint64("ticketID", ticket.ID), zap.Error(err))
		// следующее обновление попробует снова
		l.forget(ticket.ID)
		return
	}
	l.logger.Info("Оповещение о ручном разборе отправлено", zap.Uint64("ticketID", ticket.ID))
}

// remember возвращает false, если по заявке уже оповещали.
func (l *ManualReviewAlertListener) remember(id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.alerted[id]; ok {
		return false
	}
	l.alerted[id] = struct{}{}
	return true
}

func (l *ManualReviewAlertListener) forget(id uint64) {
	l.mu.Lock()
	delete(l.alerted, id)
	l.mu.Unlock()
}

func (l *ManualReviewAlertListener) Wait() {
	l.wg.Wait()
}

func formatManualReviewAlert(ticket entities.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ Заявка #%d требует ручного разбора\n", ticket.ID)
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(ticket.Title))
	fmt.Fprintf(&b, "Приоритет: %s\n", ticket.Priority)
	if address := utils.SafeDeref(ticket.PropertyAddress); address != "" {
		fmt.Fprintf(&b, "Объект: %s\n", html.EscapeString(address))
	}
	if reason := ticket.Metadata.ManualReviewReason; reason != nil && reason.Valid {
		fmt.Fprintf(&b, "Причина: %s\n", html.EscapeString(reason.String))
	}
	return strings.TrimRight(b.String(), "\n")
}
