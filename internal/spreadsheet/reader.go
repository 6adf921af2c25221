// Package spreadsheet imports maintenance records from the form's Excel
// export and writes summary reports as workbooks.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ukydev/boomlift-maintenance/internal/models"
	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet the form writes responses to.
const DefaultSheet = "Sheet1"

// Column titles of the form export. Columns are looked up by title, so their
// order in the sheet does not matter.
const (
	ColName                 = "Name"
	ColRole                 = "Role"
	ColAssetID              = "Boom Lift ID"
	ColCompletionTime       = "Completion time"
	ColBuilder              = "Builder"
	ColSite                 = "Site"
	ColHours                = "Hours"
	ColOilLevel             = "Oil Level"
	ColGasLevel             = "Gas Level"
	ColIssues               = "General Issues"
	ColContinue             = "Continue to Maintenance or Complete"
	ColMaintenanceWork      = "Maintenance Work"
	ColMaintenanceCost      = "Cost of Maintenance"
	ColHoursSinceOilChange  = "Hours Since Oil Change"
	ColAnnualInspectionDate = "Annual Inspection Date"
	ColLocation             = "Location"
)

var requiredColumns = []string{ColName, ColAssetID, ColCompletionTime, ColHours}

// Maintenance Work items that map to action flags.
var workActions = map[string]string{
	"oil change":        models.FieldOilChange,
	"annual inspection": models.FieldAnnualInspection,
	"ndt":               models.FieldNDT,
	"radiator":          models.FieldRadiatorRepair,
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06 15:04",
	models.DateLayout,
}

// ErrMissingColumn is returned when the header row lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// Options controls how a workbook is read.
type Options struct {
	// Sheet defaults to DefaultSheet.
	Sheet string
	// Location is the zone completion times were recorded in. Defaults to UTC.
	Location *time.Location
}

// Row is a record read from the workbook with its 1-based sheet row number.
type Row struct {
	Number int
	Record models.MaintenanceRecord
}

// RowError reports a row that could not be read or imported.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// ReadWorkbook reads every response row. Rows that cannot be parsed are
// reported in the returned RowErrors and do not stop the read. The rows are
// returned in submission order.
func ReadWorkbook(r io.Reader, opts Options) ([]Row, []RowError, error) {
	if opts.Sheet == "" {
		opts.Sheet = DefaultSheet
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(opts.Sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", opts.Sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %s: %w: header row is empty", opts.Sheet, ErrMissingColumn)
	}

	cols := make(map[string]int, len(rows[0]))
	for i, title := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(title))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := cols[strings.ToLower(col)]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var out []Row
	var rowErrs []RowError
	for i, cells := range rows[1:] {
		number := i + 2
		row := sheetRow{cols: cols, cells: cells}
		if row.blank() {
			continue
		}
		rec, err := row.record(opts.Location)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: number, Err: err})
			continue
		}
		out = append(out, Row{Number: number, Record: rec})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Record.SubmittedAt.Before(out[j].Record.SubmittedAt)
	})
	return out, rowErrs, nil
}

type sheetRow struct {
	cols  map[string]int
	cells []string
}

func (r sheetRow) get(col string) string {
	i, ok := r.cols[strings.ToLower(col)]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r sheetRow) blank() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (r sheetRow) record(loc *time.Location) (models.MaintenanceRecord, error) {
	work := r.get(ColMaintenanceWork)
	site := r.get(ColSite)
	if site == "" {
		site = r.get(ColBuilder)
	}

	fields := models.Fields{
		models.FieldSubmitterName:        r.get(ColName),
		models.FieldRole:                 r.role(),
		models.FieldAssetID:              r.get(ColAssetID),
		models.FieldHours:                r.get(ColHours),
		models.FieldOilLevel:             r.get(ColOilLevel),
		models.FieldGasLevel:             r.get(ColGasLevel),
		models.FieldIssues:               r.get(ColIssues),
		models.FieldSiteOrBuilder:        site,
		models.FieldMaintenanceWork:      work,
		models.FieldMaintenanceCost:      r.get(ColMaintenanceCost),
		models.FieldHoursSinceOilChange:  r.get(ColHoursSinceOilChange),
		models.FieldAnnualInspectionDate: excelDate(r.get(ColAnnualInspectionDate)),
		models.FieldLocation:             r.get(ColLocation),
	}
	for _, item := range strings.Split(work, ";") {
		item = strings.ToLower(strings.TrimSpace(item))
		for name, field := range workActions {
			if strings.Contains(item, name) {
				fields[field] = true
			}
		}
	}

	rec, err := models.RecordFromFields(fields)
	if err != nil {
		return rec, err
	}
	at, err := parseTimestamp(r.get(ColCompletionTime), loc)
	if err != nil {
		return rec, &models.FieldError{Field: ColCompletionTime, Reason: err.Error()}
	}
	rec.SubmittedAt = at
	return rec, nil
}

// role reads the Role column. Older exports have none; a row that reports
// maintenance work or continued to maintenance came from a mechanic.
func (r sheetRow) role() string {
	if role := r.get(ColRole); role != "" {
		return role
	}
	if r.get(ColMaintenanceWork) != "" || r.get(ColMaintenanceCost) != "" ||
		strings.Contains(strings.ToLower(r.get(ColContinue)), "maintenance") {
		return string(models.RoleMechanic)
	}
	return string(models.RoleInstaller)
}

// parseTimestamp accepts an Excel serial date or one of timestampLayouts.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("required")
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		t = t.Round(time.Second)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// excelDate converts an Excel serial date to DateLayout, passing any other
// text through unchanged.
func excelDate(s string) string {
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return s
	}
	return t.Format(models.DateLayout)
}
