// Package export renders a user's booking history as an xlsx workbook.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"tripplanner/internal/logging"
	"tripplanner/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	SheetBookings = "Bookings"
	SheetSummary  = "Summary"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var bookingHeaders = []string{
	"Booking ID", "Trip", "Destination", "Start date", "Travelers", "Total", "Booked at", "Status",
}

// Exporter writes booking history workbooks.
type Exporter struct {
	dir    string
	logger *zerolog.Logger
	now    func() time.Time
}

// NewExporter returns an exporter saving files under dir.
func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		dir:    dir,
		logger: logging.Component(logger, "export"),
		now:    time.Now,
	}
}

// Write streams the workbook for user to w.
func (e *Exporter) Write(w io.Writer, user models.User, bookings []models.Booking, stats models.BookingStats) error {
	f, err := e.build(user, bookings, stats)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Save writes the workbook to the export directory and returns its path.
func (e *Exporter) Save(user models.User, bookings []models.Booking, stats models.BookingStats) (string, error) {
	// Создаем папку для экспорта, если не существует
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f, err := e.build(user, bookings, stats)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("bookings_%s_%s.xlsx", user.ID, e.now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("booking export created")
	return filePath, nil
}

func (e *Exporter) build(user models.User, bookings []models.Booking, stats models.BookingStats) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetBookings)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetBookings, cell, header)
		_ = f.SetCellStyle(SheetBookings, cell, cell, headerStyle)
	}

	upcomingStyle, _ := rowStyle(f, "#C6EFCE")
	pastStyle, _ := rowStyle(f, "#F2F2F2")

	now := e.now()
	for i, b := range bookings {
		row := i + 2
		values := []any{
			int64(b.ID), b.TripName, b.Destination, b.StartDate, b.NumTravelers, b.TotalPrice,
			formatDate(b.Date), statusOf(b, now),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(SheetBookings, cell, v)
		}

		style := pastStyle
		if statusOf(b, now) == "upcoming" {
			style = upcomingStyle
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(bookingHeaders), row)
		_ = f.SetCellStyle(SheetBookings, first, last, style)
	}

	_ = f.SetColWidth(SheetBookings, "A", "A", 12)
	_ = f.SetColWidth(SheetBookings, "B", "C", 28)
	_ = f.SetColWidth(SheetBookings, "D", "H", 16)

	if _, err := f.NewSheet(SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	summary := [][2]any{
		{"Traveler", user.Name},
		{"Email", user.Email},
		{"Bookings", stats.Count},
		{"Upcoming", stats.Upcoming},
		{"Total spent", stats.TotalSpent},
		{"Generated", now.Format("02.01.2006 15:04")},
	}
	for i, pair := range summary {
		row := i + 1
		_ = f.SetCellValue(SheetSummary, fmt.Sprintf("A%d", row), pair[0])
		_ = f.SetCellValue(SheetSummary, fmt.Sprintf("B%d", row), pair[1])
	}
	_ = f.SetColWidth(SheetSummary, "A", "B", 24)

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func rowStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true},
	})
}

func statusOf(b models.Booking, now time.Time) string {
	if start, ok := b.StartTime(); ok && start.After(now) {
		return "upcoming"
	}
	return "past"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02.01.2006 15:04")
}
