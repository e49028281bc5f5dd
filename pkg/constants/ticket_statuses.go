package constants

import (
	"fmt"
	"strings"
)

// TicketStatus хранится в БД в нижнем регистре.
type TicketStatus string

const (
	TicketStatusOpen              TicketStatus = "open"
	TicketStatusInProgress        TicketStatus = "in_progress"
	TicketStatusInProgressByAI    TicketStatus = "in_progress_by_ai"
	TicketStatusResolved          TicketStatus = "resolved"
	TicketStatusNeedsManualReview TicketStatus = "needs_manual_review"
	TicketStatusClosed            TicketStatus = "closed"
)

var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusInProgressByAI,
	TicketStatusResolved,
	TicketStatusNeedsManualReview,
	TicketStatusClosed,
}

// ParseTicketStatus принимает значение в любом регистре.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	candidate := TicketStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range TicketStatuses {
		if s == candidate {
			return s, nil
		}
	}
	return "", fmt.Errorf("неизвестный статус заявки: %q", raw)
}

func (s TicketStatus) String() string { return string(s) }

// TicketPriority хранится в верхнем регистре.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

func ParseTicketPriority(raw string) (TicketPriority, error) {
	candidate := TicketPriority(strings.ToUpper(strings.TrimSpace(raw)))
	for _, p := range TicketPriorities {
		if p == candidate {
			return p, nil
		}
	}
	return "", fmt.Errorf("неизвестный приоритет заявки: %q", raw)
}

func (p TicketPriority) String() string { return string(p) }
