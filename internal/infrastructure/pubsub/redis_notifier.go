package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const channelPrefix = "property-desk:tickets:"

// RedisNotifier рассылает уведомления через Redis Pub/Sub, чтобы их получали все экземпляры сервиса.
type RedisNotifier struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisNotifier(client *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger.Named("redis_notifier")}
}

func channelFor(topic string) string {
	return channelPrefix + topic
}

func (n *RedisNotifier) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать уведомление %s: %w", topic, err)
	}
	if err := n.client.Publish(ctx, channelFor(topic), data).Err(); err != nil {
		n.logger.Error("Не удалось опубликовать уведомление", zap.String("topic", topic), zap.Error(err))
		return fmt.Errorf("ошибка публикации в redis: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	ps := n.client.Subscribe(ctx, channelFor(topic))
	// ждём подтверждения подписки, иначе первые сообщения можно потерять
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("не удалось подписаться на %s: %w", topic, err)
	}

	out := make(chan []byte, defaultBuffer)
	go func() {
		defer close(out)
		defer ps.Close()

		messages := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	n.logger.Debug("Подписка на канал оформлена", zap.String("channel", channelFor(topic)))
	return out, nil
}
