package listing

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/linesmerrill/legal-case-api/models"
)

const exportSheet = "Cases"

var exportHeaders = []string{
	"Case Number", "Status", "Type", "Subject", "Client", "Phone",
	"District", "Taluk", "Court", "Acts & Sections", "Filed", "Next Hearing", "Hearing Status", "Documents",
}

// Export writes cs as an xlsx workbook with one row per case
func Export(w io.Writer, cs []models.Case, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", exportSheet)
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, header)
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	f.SetCellStyle(exportSheet, "A1", last, headerStyle)
	f.SetColWidth(exportSheet, "A", "N", 20)

	for i, c := range cs {
		row := i + 2
		var client, phone, hearing string
		var hearingDate *time.Time
		if cd := c.ClientDetails; cd != nil {
			client, phone, hearingDate = cd.Name, cd.Phone, cd.HearingDate
			if hearingDate != nil {
				hearing = hearingDate.Format(models.DateLayout)
			}
		}
		values := []interface{}{
			c.CaseNumber,
			string(c.CaseStatus),
			string(c.CaseType),
			c.Subject,
			client,
			phone,
			c.District,
			c.Taluk,
			c.Court,
			actsSummary(c.ActsSections),
			c.FiledDate.Format(models.DateLayout),
			hearing,
			HearingStatusFor(hearingDate, now).Message,
			len(c.Documents),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}
	return f.Write(w)
}

func actsSummary(acts []models.ActSection) string {
	parts := make([]string, 0, len(acts))
	for _, a := range acts {
		parts = append(parts, fmt.Sprintf("%s s.%s", a.Act, a.Section))
	}
	return strings.Join(parts, "; ")
}
