package services

import (
	"fmt"
	"math"

	"pdftally/models"

	"github.com/xuri/excelize/v2"
)

const (
	historySheet = "Upload History"
	dailySheet   = "Daily Summary"
)

// ExcelExporter rendert das History-Dokument als zweiseitigen xlsx-Report.
// Pure projection: the workbook is regenerated from scratch on every save.
type ExcelExporter struct {
	path string
}

// NewExcelExporter returns an exporter writing to the given path.
func NewExcelExporter(path string) *ExcelExporter {
	return &ExcelExporter{path: path}
}

// Path returns the workbook location.
func (e *ExcelExporter) Path() string {
	return e.path
}

// Write erzeugt den Report: Sheet 1 listet jeden Record, Sheet 2 den
// Tages-Sumar (datumsabsteigend).
func (e *ExcelExporter) Write(doc models.HistoryDocument) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", historySheet)
	if err := f.SetSheetRow(historySheet, "A1", &[]interface{}{
		"ID", "Date", "Time", "Filename", "Pages", "Cost (EUR)", "Size (MB)",
	}); err != nil {
		return err
	}
	for i, u := range doc.Uploads {
		ts := u.Timestamp
		if ts == "" {
			ts = u.Date
		}
		datePart := ts
		timePart := ""
		if len(ts) >= 19 {
			datePart = ts[:10]
			timePart = ts[11:19]
		} else if len(ts) >= 10 {
			datePart = ts[:10]
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(historySheet, cell, &[]interface{}{
			shortID(u.ID), datePart, timePart, u.Filename, u.Pages,
			Round4(u.Cost), roundMB(u.SizeBytes),
		}); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(dailySheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(dailySheet, "A1", &[]interface{}{
		"Date", "Files", "Pages", "Cost (EUR)",
	}); err != nil {
		return err
	}
	for i, day := range DailySummaries(doc.Uploads) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(dailySheet, cell, &[]interface{}{
			day.Date, day.Files, day.Pages, day.Cost,
		}); err != nil {
			return err
		}
	}

	if err := f.SaveAs(e.path); err != nil {
		return fmt.Errorf("save xlsx report: %w", err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func roundMB(sizeBytes int64) float64 {
	return math.Round(float64(sizeBytes)/(1024*1024)*100) / 100
}
