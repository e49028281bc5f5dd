package constants

// Топики уведомлений об изменении заявок.
const (
	TopicTicketCreated = "ticketCreated"
	TopicTicketUpdated = "ticketUpdated"
	TopicTicketDeleted = "ticketDeleted"
)

var TicketTopics = []string{TopicTicketCreated, TopicTicketUpdated, TopicTicketDeleted}

func IsTicketTopic(topic string) bool {
	for _, t := range TicketTopics {
		if t == topic {
			return true
		}
	}
	return false
}
