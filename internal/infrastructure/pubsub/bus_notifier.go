package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"property-desk/internal/events"
	"property-desk/pkg/eventbus"
)

const defaultBuffer = 64

// BusNotifier - уведомления внутри одного процесса поверх eventbus.
type BusNotifier struct {
	bus    *eventbus.Bus
	buffer int
}

func NewBusNotifier(bus *eventbus.Bus) *BusNotifier {
	return &BusNotifier{bus: bus, buffer: defaultBuffer}
}

func (n *BusNotifier) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать уведомление %s: %w", topic, err)
	}
	n.bus.Publish(ctx, events.TicketNotification{Topic: topic, Payload: data})
	return nil
}

func (n *BusNotifier) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	stream := n.bus.Stream(ctx, topic, n.buffer)
	out := make(chan []byte, n.buffer)

	go func() {
		defer close(out)
		for ev := range stream {
			notification, ok := ev.(events.TicketNotification)
			if !ok {
				continue
			}
			select {
			case out <- notification.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
