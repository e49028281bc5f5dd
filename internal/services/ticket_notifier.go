package services

import "context"

// TicketNotifierInterface - канал уведомлений ticketCreated/ticketUpdated/ticketDeleted.
// Реализации: pubsub.BusNotifier (один процесс) и pubsub.RedisNotifier.
type TicketNotifierInterface interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
}
