package services

import (
	"bytes"
	"dispatch_app_go/models"
	"fmt"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	sheetAssignments = "Assignments"
	sheetDeferred    = "Deferred"
	sheetUnassigned  = "Unassigned"
)

// GenerateAssignmentReport exports assignments, deferred occurrences and the
// unassigned pool for bookings with from <= date <= to
func GenerateAssignmentReport(db *gorm.DB, businessID string, from, to models.Date) (*bytes.Buffer, error) {
	if to.Before(from) {
		return nil, invalidf("range end %s is before start %s", to, from)
	}

	var assignments []models.Assignment
	err := db.Joins("Booking").Joins("Provider").
		Where("assignments.business_id = ?", businessID).
		Where("Booking.scheduled_date >= ? AND Booking.scheduled_date <= ?", from, to).
		Order("Booking.scheduled_date asc, Booking.scheduled_time asc").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	var deferred []models.DeferredOccurrence
	err = db.Where("business_id = ? AND date >= ? AND date <= ?", businessID, from, to).
		Order("date asc").
		Find(&deferred).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load deferred occurrences: %w", err)
	}

	unassigned, err := ListUnassigned(db, businessID, from, to)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E5E7EB"}, Pattern: 1},
	})

	// --- Assignments Sheet ---
	f.SetSheetName("Sheet1", sheetAssignments)
	writeHeader(f, sheetAssignments, headerStyle, []string{
		"Date", "Time", "Customer", "Provider", "Source", "Score", "Assigned At", "Booking ID",
	})
	for i, a := range assignments {
		row := i + 2
		providerName := ""
		if a.Provider != nil {
			providerName = a.Provider.Name
		}
		var date, start, customer string
		if a.Booking != nil {
			date = a.Booking.ScheduledDate.String()
			start = a.Booking.ScheduledTime.String()
			customer = a.Booking.CustomerName
		}
		setRow(f, sheetAssignments, row, date, start, customer, providerName, a.Source,
			a.Score, a.AssignedAt.UTC().Format("2006-01-02 15:04"), a.BookingID)
	}
	f.SetColWidth(sheetAssignments, "A", "H", 18)

	// --- Deferred Sheet ---
	f.NewSheet(sheetDeferred)
	writeHeader(f, sheetDeferred, headerStyle, []string{"Date", "Series ID", "Reason", "Detail", "Resolved"})
	for i, d := range deferred {
		resolved := "no"
		if d.IsResolved() {
			resolved = "yes"
		}
		setRow(f, sheetDeferred, i+2, d.Date.String(), d.SeriesID, d.Reason, d.Detail, resolved)
	}
	f.SetColWidth(sheetDeferred, "A", "E", 22)

	// --- Unassigned Sheet ---
	f.NewSheet(sheetUnassigned)
	writeHeader(f, sheetUnassigned, headerStyle, []string{"Date", "Time", "Duration", "Customer", "Address", "Price"})
	for i, b := range unassigned {
		price, _ := b.Price.Float64()
		setRow(f, sheetUnassigned, i+2, b.ScheduledDate.String(), b.ScheduledTime.String(),
			b.DurationMinutes, b.CustomerName, b.Address, price)
	}
	f.SetColWidth(sheetUnassigned, "A", "F", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	return buf, nil
}

func writeHeader(f *excelize.File, sheet string, style int, headers []string) {
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, v)
	}
}
