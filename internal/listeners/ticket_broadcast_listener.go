package listeners

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"property-desk/internal/services"
	"property-desk/pkg/constants"
)

// Broadcaster - получатель уведомлений, в проде это websocket.Hub.
type Broadcaster interface {
	Broadcast(topic string, payload json.RawMessage) error
}

// TicketBroadcastListener пересылает уведомления о заявках из канала уведомлений
// всем websocket-клиентам, подписанным на соответствующий топик.
type TicketBroadcastListener struct {
	notifier    services.TicketNotifierInterface
	broadcaster Broadcaster
	logger      *zap.Logger
	wg          sync.WaitGroup
}

func NewTicketBroadcastListener(notifier services.TicketNotifierInterface, broadcaster Broadcaster, logger *zap.Logger) *TicketBroadcastListener {
	return &TicketBroadcastListener{
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      logger.Named("ticket_broadcast_listener"),
	}
}

// Start подписывается на все топики заявок. Пересылка идёт, пока ctx не отменён.
func (l *TicketBroadcastListener) Start(ctx context.Context) error {
	for _, topic := range constants.TicketTopics {
		stream, err := l.notifier.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("не удалось подписаться на %s: %w", topic, err)
		}
		l.wg.Add(1)
		go l.forward(ctx, topic, stream)
	}
	l.logger.Info("Подписка на уведомления о заявках оформлена", zap.Strings("topics", constants.TicketTopics))
	return nil
}

func (l *TicketBroadcastListener) forward(ctx context.Context, topic string, stream <-chan []byte) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-stream:
			if !ok {
				return
			}
			if !json.Valid(payload) {
				l.logger.Warn("Пропущено уведомление с некорректным JSON", zap.String("topic", topic))
				continue
			}
			if err := l.broadcaster.Broadcast(topic, payload); err != nil {
				l.logger.Error("Не удалось разослать уведомление", zap.String("topic", topic), zap.Error(err))
			}
		}
	}
}

// Wait ждёт остановки всех пересылающих горутин.
func (l *TicketBroadcastListener) Wait() {
	l.wg.Wait()
}
