package eventbus

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Event представляет собой любое событие в системе.
type Event interface {
	Name() string
}

type stream struct {
	ch chan Event
}

// Bus - шина событий: каждый подписчик получает события своего имени в буферизованный канал.
type Bus struct {
	streams map[string]map[*stream]struct{}
	mu      sync.RWMutex
	logger  *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		streams: make(map[string]map[*stream]struct{}),
		logger:  logger,
	}
}

// Stream возвращает канал событий eventName. Канал закрывается, когда ctx отменён.
// Если читатель не успевает и буфер полон, событие для него теряется.
func (b *Bus) Stream(ctx context.Context, eventName string, buffer int) <-chan Event {
	s := &stream{ch: make(chan Event, buffer)}

	b.mu.Lock()
	if b.streams[eventName] == nil {
		b.streams[eventName] = make(map[*stream]struct{})
	}
	b.streams[eventName][s] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.streams[eventName], s)
		if len(b.streams[eventName]) == 0 {
			delete(b.streams, eventName)
		}
		close(s.ch)
		b.mu.Unlock()
	}()

	return s.ch
}

// Publish публикует событие. Подписчик с полным буфером событие не получает.
func (b *Bus) Publish(_ context.Context, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	eventName := event.Name()
	for s := range b.streams[eventName] {
		select {
		case s.ch <- event:
		default:
			b.logger.Warn("Подписчик не успевает читать события, событие пропущено", zap.String("event", eventName))
		}
	}
}
