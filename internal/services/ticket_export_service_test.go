package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"property-desk/internal/entities"
	"property-desk/pkg/constants"
	"property-desk/pkg/utils"
)

func TestTicketExporter_WriteXLSX(t *testing.T) {
	resolution := null.StringFrom("Plumber booked")
	created := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	tickets := []entities.Ticket{
		{
			ID:              7,
			Title:           "Leak",
			Description:     "Water under the sink",
			Status:          constants.TicketStatusResolved,
			Priority:        constants.TicketPriorityHigh,
			PropertyID:      1,
			PropertyAddress: utils.ToPtr("221B Baker Street"),
			Metadata: entities.Metadata{
				UseAI:        utils.ToPtr(true),
				AIProcessed:  utils.ToPtr(true),
				AIResolution: &resolution,
			},
			CreatedAt: created,
			UpdatedAt: created,
		},
		{ID: 8, Title: "Door", Status: constants.TicketStatusOpen, Priority: constants.TicketPriorityLow, PropertyID: 2},
	}

	var buf bytes.Buffer
	exporter := NewTicketExporter()
	require.NoError(t, exporter.WriteXLSX(&buf, tickets))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Tickets")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Updated at", rows[0][12])

	first := rows[1]
	assert.Equal(t, "7", first[0])
	assert.Equal(t, "resolved", first[3])
	assert.Equal(t, "HIGH", first[4])
	assert.Equal(t, "221B Baker Street", first[6])
	assert.Equal(t, "yes", first[7])
	assert.Equal(t, "Plumber booked", first[9])
	assert.Equal(t, "2026-03-04 10:30", first[11])

	assert.Equal(t, "8", rows[2][0])
	assert.Equal(t, "no", rows[2][7])
}

func TestTicketExporter_FileName(t *testing.T) {
	name := NewTicketExporter().FileName(time.Date(2026, 10, 15, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, "tickets_2026-10-15.xlsx", name)
}

func TestTicketExporter_EmptyList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTicketExporter().WriteXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Tickets")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
