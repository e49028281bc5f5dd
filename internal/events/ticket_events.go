package events

// TicketNotification - уведомление об изменении заявки, Topic совпадает с именем события на шине.
type TicketNotification struct {
	Topic   string
	Payload []byte
}

// Name - реализуем интерфейс eventbus.Event
func (e TicketNotification) Name() string {
	return e.Topic
}
