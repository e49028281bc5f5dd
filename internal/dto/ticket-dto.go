package dto

import (
	"property-desk/internal/entities"
)

type CreateTicketDTO struct {
	Title       string             `json:"title" validate:"required,min=3,max=255"`
	Description string             `json:"description" validate:"required"`
	Priority    string             `json:"priority" validate:"required,ticket_priority"`
	Status      string             `json:"status" validate:"omitempty,ticket_status"`
	PropertyID  uint64             `json:"propertyId" validate:"required,gt=0"`
	Metadata    *entities.Metadata `json:"metadata,omitempty" validate:"omitempty"`
}

// UpdateTicketDTO - частичное обновление: nil означает "не трогать".
type UpdateTicketDTO struct {
	Title       *string            `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Description *string            `json:"description,omitempty"`
	Priority    *string            `json:"priority,omitempty" validate:"omitempty,ticket_priority"`
	Status      *string            `json:"status,omitempty" validate:"omitempty,ticket_status"`
	PropertyID  *uint64            `json:"propertyId,omitempty" validate:"omitempty,gt=0"`
	Metadata    *entities.Metadata `json:"metadata,omitempty" validate:"omitempty"`
}

func (d UpdateTicketDTO) IsEmpty() bool {
	return d.Title == nil && d.Description == nil && d.Priority == nil &&
		d.Status == nil && d.PropertyID == nil && d.Metadata == nil
}

type TicketFilterDTO struct {
	Status      *string `query:"status"`
	Priority    *string `query:"priority"`
	PropertyID  *uint64 `query:"propertyId"`
	SearchQuery string  `query:"searchQuery"`
}

// DeleteTicketResultDTO - итог удаления. Ticket - снимок удалённой заявки, при неудаче nil.
type DeleteTicketResultDTO struct {
	ID      uint64           `json:"id"`
	Success bool             `json:"success"`
	Ticket  *entities.Ticket `json:"ticket,omitempty"`
}

type ClassifyTicketDTO struct {
	Description string `json:"description" validate:"required"`
}

type ClassificationDTO struct {
	Title              string `json:"title"`
	Priority           string `json:"priority"`
	Category           string `json:"category"`
	EstimatedTimeToFix string `json:"estimatedTimeToFix"`
	SuggestedAction    string `json:"suggestedAction"`
}

type GenerateTestTicketDTO struct {
	PropertyID uint64 `json:"propertyId" validate:"required,gt=0"`
}
