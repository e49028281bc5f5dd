package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

type topicMessage struct {
	topic string
	data  []byte
}

// Hub управляет клиентами и раздаёт сообщения подписчикам топика.
// Все изменения набора клиентов происходят в горутине Run.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan topicMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      int
	mu         sync.RWMutex
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan topicMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.Named("ws_hub"),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.setCount(len(h.clients))
			h.logger.Info("Клиент зарегистрирован", zap.String("subject", client.Subject))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info("Клиент отсоединен", zap.String("subject", client.Subject))
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				if !client.IsSubscribed(msg.topic) {
					continue
				}
				select {
				case client.Send <- msg.data:
				default:
					h.logger.Warn("Клиент не успевает читать, соединение закрыто", zap.String("subject", client.Subject))
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.setCount(len(h.clients))
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast отправляет payload всем клиентам, подписанным на topic.
func (h *Hub) Broadcast(topic string, payload json.RawMessage) error {
	data, err := json.Marshal(Envelope{
		Type:      topic,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- topicMessage{topic: topic, data: data}:
	case <-h.done:
	}
	return nil
}
