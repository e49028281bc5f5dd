package entities

import (
	"time"

	"property-desk/pkg/constants"
)

type Ticket struct {
	ID              uint64                   `json:"id"`
	Title           string                   `json:"title"`
	Description     string                   `json:"description"`
	Status          constants.TicketStatus   `json:"status"`
	Priority        constants.TicketPriority `json:"priority"`
	PropertyID      uint64                   `json:"propertyId"`
	PropertyAddress *string                  `json:"propertyAddress,omitempty"`
	Metadata        Metadata                 `json:"metadata"`
	// Version растёт при каждой записи, по нему фоновая обработка проверяет, что её не опередили.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UsesAI - заявку нужно отправить на AI-обработку.
func (t *Ticket) UsesAI() bool {
	return t.Metadata.UseAI != nil && *t.Metadata.UseAI
}
