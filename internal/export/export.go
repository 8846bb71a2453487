// Package export renders job applications as an xlsx workbook and practice
// interview reports as PDF.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/garnizeh/careerhub/pkg/models"
)

const (
	ApplicationsSheet = "Applications"
	SummarySheet      = "Summary"
	ContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var header = []string{"Job Title", "Company", "Location", "Status", "Type", "Level", "Salary", "Source", "Applied At", "Notes"}

// ApplicationsXLSX writes one row per application plus a per-status summary to w.
func ApplicationsXLSX(apps []models.JobApplication, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", ApplicationsSheet)
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := applicationsSheet(f, apps, headerStyle); err != nil {
		return fmt.Errorf("applications sheet: %w", err)
	}
	if err := summarySheet(f, apps, headerStyle); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func applicationsSheet(f *excelize.File, apps []models.JobApplication, style int) error {
	sheet := ApplicationsSheet
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "J1", style); err != nil {
		return err
	}
	f.SetColWidth(sheet, "A", "C", 28)
	f.SetColWidth(sheet, "D", "I", 14)
	f.SetColWidth(sheet, "J", "J", 50)

	for i, a := range apps {
		var salary any = ""
		if a.Salary != nil {
			salary = *a.Salary
		}
		values := []any{
			a.JobTitle,
			a.CompanyName,
			a.Location,
			a.Status,
			a.JobType,
			a.ExperienceLevel,
			salary,
			a.Source(),
			time.UnixMilli(a.AppliedAt).UTC().Format("2006-01-02"),
			a.Notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

func summarySheet(f *excelize.File, apps []models.JobApplication, style int) error {
	sheet := SummarySheet
	f.SetCellValue(sheet, "A1", "Status")
	f.SetCellValue(sheet, "B1", "Count")
	if err := f.SetCellStyle(sheet, "A1", "B1", style); err != nil {
		return err
	}
	f.SetColWidth(sheet, "A", "A", 20)

	counts := make(map[string]int, len(models.ApplicationStatuses))
	for _, a := range apps {
		counts[a.Status]++
	}
	row := 2
	for _, s := range models.ApplicationStatuses {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), s)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), counts[s])
		row++
	}
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), len(apps))
	return nil
}
