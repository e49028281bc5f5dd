package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// Client - одно WebSocket-соединение со своим набором топиков.
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	Subject string

	mu     sync.RWMutex
	topics map[string]struct{}
	allow  func(topic string) bool
}

// NewClient - allow проверяет, можно ли подписаться на топик из команды клиента.
func NewClient(hub *Hub, conn *websocket.Conn, subject string, topics []string, allow func(string) bool) *Client {
	c := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		Subject: subject,
		topics:  make(map[string]struct{}, len(topics)),
		allow:   allow,
	}
	for _, t := range topics {
		c.topics[t] = struct{}{}
	}
	return c
}

func (c *Client) IsSubscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.topics[topic]
	return ok
}

func (c *Client) apply(cmd Command) {
	if c.allow != nil && !c.allow(cmd.Topic) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch cmd.Action {
	case "subscribe":
		c.topics[cmd.Topic] = struct{}{}
	case "unsubscribe":
		delete(c.topics, cmd.Topic)
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { _ = c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("WebSocket: соединение закрыто с ошибкой", zap.String("subject", c.Subject), zap.Error(err))
			}
			break
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.Hub.logger.Debug("WebSocket: некорректная команда клиента", zap.Error(err))
			continue
		}
		c.apply(cmd)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
