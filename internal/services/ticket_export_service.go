package services

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"property-desk/internal/entities"
	"property-desk/pkg/utils"
)

const exportSheet = "Tickets"

var exportHeaders = []interface{}{
	"ID", "Title", "Description", "Status", "Priority", "Property ID", "Property address",
	"Use AI", "AI processed", "AI resolution", "Manual review reason", "Created at", "Updated at",
}

// TicketExporter пишет список заявок в XLSX.
type TicketExporter struct{}

func NewTicketExporter() *TicketExporter {
	return &TicketExporter{}
}

func (e *TicketExporter) FileName(now time.Time) string {
	return fmt.Sprintf("tickets_%s.xlsx", now.Format("2006-01-02"))
}

func (e *TicketExporter) WriteXLSX(w io.Writer, tickets []entities.Ticket) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(exportSheet, "A1", "M1", style); err != nil {
		return err
	}

	for i, ticket := range tickets {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := ticketRow(ticket)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(exportSheet, "B", "C", 40)
	_ = f.SetColWidth(exportSheet, "D", "D", 22)
	_ = f.SetColWidth(exportSheet, "G", "G", 30)
	_ = f.SetColWidth(exportSheet, "J", "K", 40)
	_ = f.SetColWidth(exportSheet, "L", "M", 20)

	return f.Write(w)
}

func ticketRow(t entities.Ticket) []interface{} {
	const tsFmt = "2006-01-02 15:04"
	var resolution, reason string
	if t.Metadata.AIResolution != nil && t.Metadata.AIResolution.Valid {
		resolution = t.Metadata.AIResolution.String
	}
	if t.Metadata.ManualReviewReason != nil && t.Metadata.ManualReviewReason.Valid {
		reason = t.Metadata.ManualReviewReason.String
	}
	return []interface{}{
		t.ID, t.Title, t.Description, t.Status.String(), t.Priority.String(), t.PropertyID,
		utils.SafeDeref(t.PropertyAddress),
		yesNo(t.UsesAI()), yesNo(utils.SafeDeref(t.Metadata.AIProcessed)),
		resolution, reason,
		t.CreatedAt.Format(tsFmt), t.UpdatedAt.Format(tsFmt),
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
