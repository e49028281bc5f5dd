package websocket

import (
	"encoding/json"
	"time"
)

// Envelope - "конверт" сообщения: Type совпадает с топиком (ticketCreated и т.д.).
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Command - сообщение от клиента для управления подписками.
type Command struct {
	Action string `json:"action"` // subscribe | unsubscribe
	Topic  string `json:"topic"`
}
