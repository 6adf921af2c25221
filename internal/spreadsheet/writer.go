package spreadsheet

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ukydev/boomlift-maintenance/internal/models"
	"github.com/xuri/excelize/v2"
)

// Sheet names of an exported report.
const (
	SheetRecords     = "Records"
	SheetAssets      = "Boom Lifts"
	SheetTechnicians = "Technicians"
	SheetSites       = "Sites"
	SheetPeriod      = "Review Period"
)

type sheet struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]interface{}
}

// WriteReport renders a report and the annotated record history as a
// workbook, one sheet per view.
func WriteReport(report models.Report, recs []models.AnnotatedRecord) ([]byte, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := []sheet{
		recordsSheet(recs),
		assetsSheet(report.Assets),
		techniciansSheet(report.Technicians),
		sitesSheet(report.Sites),
		periodSheet(report.Period),
	}
	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(SheetRecords); err == nil {
		f.SetActiveSheet(index)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	for col, header := range s.headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(s.name, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(s.name, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		if col < len(s.widths) {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				return fmt.Errorf("failed to convert column number: %w", err)
			}
			if err := f.SetColWidth(s.name, name, name, s.widths[col]); err != nil {
				return fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	for i, values := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		row := values
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, s.name, err)
		}
	}

	return f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func recordsSheet(recs []models.AnnotatedRecord) sheet {
	s := sheet{
		name: SheetRecords,
		headers: []string{ColAssetID, ColCompletionTime, ColName, ColRole, "Site/Builder", ColHours,
			ColOilLevel, ColGasLevel, ColIssues, ColMaintenanceWork, "Total Cost",
			ColHoursSinceOilChange, ColAnnualInspectionDate, "Inspection Expires", "Warnings"},
		widths: []float64{14, 20, 18, 12, 20, 10, 12, 12, 30, 30, 12, 14, 14, 16, 30},
	}
	sorted := append([]models.AnnotatedRecord(nil), recs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Record.SubmittedAt.After(sorted[j].Record.SubmittedAt)
	})
	for _, a := range sorted {
		r := a.Record
		var total float64
		for _, c := range r.Costs() {
			total += c
		}
		s.rows = append(s.rows, []interface{}{
			r.AssetID, r.SubmittedAt.Format("2006-01-02 15:04"), r.SubmitterName, string(r.SubmitterRole),
			r.SiteOrBuilder, r.Hours, r.OilLevel, r.GasLevel, r.IssueNotes, r.MaintenanceWork, total,
			r.HoursSinceOilChangeText(), r.InspectionDateText(), a.Expiry, warningText(a.Warnings),
		})
	}
	return s
}

func assetsSheet(assets []models.AssetSummary) sheet {
	s := sheet{
		name: SheetAssets,
		headers: []string{ColAssetID, ColCompletionTime, ColName, ColHours, ColOilLevel, ColGasLevel,
			ColIssues, "Last Maintenance", "Oil Change Hours", "Annual Inspection Hours", "Inspection Expires", "Warnings"},
		widths: []float64{14, 20, 18, 10, 12, 12, 30, 16, 16, 22, 16, 30},
	}
	for _, a := range assets {
		s.rows = append(s.rows, []interface{}{
			a.AssetID, a.Latest.SubmittedAt.Format("2006-01-02 15:04"), a.Latest.SubmitterName, a.Latest.Hours,
			a.Latest.OilLevel, a.Latest.GasLevel, a.Latest.IssueNotes, dateText(a.LastMaintenance),
			intText(a.OilChangeHours), intText(a.AnnualInspectionHours), a.Warnings.ExpiryText(), warningText(a.Warnings),
		})
	}
	return s
}

func techniciansSheet(techs []models.TechnicianSummary) sheet {
	s := sheet{
		name:    SheetTechnicians,
		headers: []string{ColName, "Submissions", "Latest Submission", "Issues", "Total Cost"},
		widths:  []float64{20, 12, 20, 10, 12},
	}
	for _, t := range techs {
		s.rows = append(s.rows, []interface{}{
			t.Name, t.Submissions, t.LatestSubmission.Format("2006-01-02 15:04"), t.Issues, t.TotalCost(),
		})
	}
	return s
}

func sitesSheet(sites []models.SiteSummary) sheet {
	s := sheet{
		name:    SheetSites,
		headers: []string{"Site/Builder", "Submissions", "Issues", "Total Cost"},
		widths:  []float64{24, 12, 10, 12},
	}
	for _, site := range sites {
		s.rows = append(s.rows, []interface{}{site.Site, site.Submissions, site.Issues, site.TotalCost()})
	}
	return s
}

func periodSheet(p models.PeriodSummary) sheet {
	s := sheet{
		name:    SheetPeriod,
		headers: []string{"Date", ColName, "Boom Lifts"},
		widths:  []float64{16, 20, 40},
	}
	for _, day := range p.Days {
		date := day.Date.Format("Mon, Jan 02")
		if len(day.Submissions) == 0 {
			s.rows = append(s.rows, []interface{}{date, "", "No submissions"})
			continue
		}
		names := make([]string, 0, len(day.Submissions))
		for name := range day.Submissions {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s.rows = append(s.rows, []interface{}{date, name, strings.Join(day.Submissions[name], ", ")})
		}
	}
	return s
}

func warningText(w models.AssetWarningState) string {
	var parts []string
	if w.OilChangeOverdue {
		parts = append(parts, "Oil change overdue")
	}
	if w.InspectionOverdue {
		parts = append(parts, "Annual inspection due")
	}
	return strings.Join(parts, "; ")
}

func dateText(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(models.DateLayout)
}

func intText(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
