package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for display and form input.
const DateLayout = "2006-01-02"

// Field names of the submission form. Fields are always addressed by name.
const (
	FieldSubmitterName        = "name"
	FieldRole                 = "role"
	FieldAssetID              = "boom_lift_id"
	FieldHours                = "hours"
	FieldOilLevel             = "oil_level"
	FieldGasLevel             = "gas_level"
	FieldIssues               = "general_issues"
	FieldSiteOrBuilder        = "site_or_builder"
	FieldSiteOrBuilderOther   = "site_or_builder_other"
	FieldOilChange            = "oil_change"
	FieldOilChangeCost        = "oil_change_cost"
	FieldAnnualInspection     = "annual_inspection"
	FieldAnnualInspectionCost = "annual_inspection_cost"
	FieldAnnualInspectionDate = "annual_inspection_date"
	FieldNDT                  = "ndt"
	FieldNDTCost              = "ndt_cost"
	FieldRadiatorRepair       = "radiator_repair"
	FieldRadiatorRepairCost   = "radiator_repair_cost"
	FieldMaintenanceWork      = "maintenance_work"
	FieldMaintenanceCost      = "maintenance_cost"
	FieldHoursSinceOilChange  = "hours_since_oil_change"
	FieldLocation             = "location"
)

// BaseColumns is the column set shared by every revision of the form.
var BaseColumns = []string{
	FieldSubmitterName, FieldRole, FieldAssetID, FieldHours, FieldOilLevel, FieldGasLevel,
	FieldIssues, FieldSiteOrBuilder, FieldOilChange, FieldOilChangeCost,
	FieldAnnualInspection, FieldAnnualInspectionCost, FieldAnnualInspectionDate,
	FieldMaintenanceWork, FieldMaintenanceCost, FieldHoursSinceOilChange, FieldLocation,
}

// ExtendedColumns adds the NDT and radiator repair actions to BaseColumns.
var ExtendedColumns = append(append([]string{}, BaseColumns...),
	FieldNDT, FieldNDTCost, FieldRadiatorRepair, FieldRadiatorRepairCost)

// mechanicOnly fields are ignored on installer submissions.
var mechanicOnly = map[string]bool{
	FieldOilChange:            true,
	FieldOilChangeCost:        true,
	FieldAnnualInspection:     true,
	FieldAnnualInspectionCost: true,
	FieldNDT:                  true,
	FieldNDTCost:              true,
	FieldRadiatorRepair:       true,
	FieldRadiatorRepairCost:   true,
	FieldMaintenanceWork:      true,
	FieldMaintenanceCost:      true,
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
}

// Fields is a flat submission as produced by the form collaborator.
// Values are strings, booleans or JSON numbers; unknown keys are ignored.
type Fields map[string]any

// FieldError reports a missing or malformed required field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// Has reports whether the field is present with a non-blank value.
func (f Fields) Has(name string) bool {
	return f.String(name) != ""
}

// String returns the trimmed text form of a field, or "" when absent.
func (f Fields) String(name string) string {
	switch v := f[name].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Flag reads a checkbox-style field.
func (f Fields) Flag(name string) bool {
	if b, ok := f[name].(bool); ok {
		return b
	}
	return ParseFlag(f.String(name))
}

// RecordFromFields builds a candidate record from a flat submission.
// Optional values that cannot be parsed are treated as absent; fields that do
// not apply to the submitter's role are ignored.
func RecordFromFields(f Fields) (MaintenanceRecord, error) {
	var rec MaintenanceRecord

	rec.AssetID = f.String(FieldAssetID)
	if rec.AssetID == "" {
		return rec, &FieldError{Field: FieldAssetID, Reason: "required"}
	}
	rec.SubmitterName = f.String(FieldSubmitterName)
	if rec.SubmitterName == "" {
		return rec, &FieldError{Field: FieldSubmitterName, Reason: "required"}
	}
	rec.SubmitterRole = Role(strings.ToLower(f.String(FieldRole)))
	if !IsSubmitterRole(rec.SubmitterRole) {
		return rec, &FieldError{Field: FieldRole, Reason: "must be installer or mechanic"}
	}
	hours, ok := ParseInt(f.String(FieldHours))
	if !ok {
		return rec, &FieldError{Field: FieldHours, Reason: "must be a whole number"}
	}
	if hours < 0 {
		return rec, &FieldError{Field: FieldHours, Reason: "must not be negative"}
	}
	rec.Hours = hours

	rec.OilLevel = f.String(FieldOilLevel)
	rec.GasLevel = f.String(FieldGasLevel)
	rec.IssueNotes = f.String(FieldIssues)
	rec.SiteOrBuilder = ResolveSite(f.String(FieldSiteOrBuilder), f.String(FieldSiteOrBuilderOther))
	rec.Location = f.String(FieldLocation)
	rec.AnnualInspectionDate = ParseDate(f.String(FieldAnnualInspectionDate))
	if v, ok := ParseInt(f.String(FieldHoursSinceOilChange)); ok && v >= 0 {
		rec.HoursSinceOilChange = &v
	}

	if rec.SubmitterRole == RoleMechanic {
		rec.OilChange = f.action(FieldOilChange, FieldOilChangeCost)
		rec.AnnualInspection = f.action(FieldAnnualInspection, FieldAnnualInspectionCost)
		rec.NDT = f.action(FieldNDT, FieldNDTCost)
		rec.RadiatorRepair = f.action(FieldRadiatorRepair, FieldRadiatorRepairCost)
		rec.MaintenanceWork = f.String(FieldMaintenanceWork)
		rec.MaintenanceCost = ParseCost(f.String(FieldMaintenanceCost))
	}
	return rec, nil
}

// AppliesTo reports whether a field is accepted for submissions by the role.
func AppliesTo(field string, role Role) bool {
	return role == RoleMechanic || !mechanicOnly[field]
}

func (f Fields) action(flag, cost string) Action {
	a := Action{Performed: f.Flag(flag)}
	if a.Performed {
		a.Cost = ParseCost(f.String(cost))
	}
	return a
}

// ResolveSite returns the free-text value when the "Other" option is chosen.
func ResolveSite(site, other string) string {
	site = strings.TrimSpace(site)
	if strings.EqualFold(site, SiteOther) {
		if other = strings.TrimSpace(other); other != "" {
			return other
		}
		return SiteOther
	}
	return site
}

// ParseFlag parses checkbox values such as "yes", "on" or "true".
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "on", "1", "x", "performed":
		return true
	default:
		return false
	}
}

// ParseInt parses a whole number, accepting thousands separators and a
// zero fractional part. The NoData sentinel, blanks and values outside the
// int range are not numbers.
func ParseInt(s string) (int, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || strings.EqualFold(s, NoData) {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, false
	}
	// -MinInt is a power of two, so the float bound is exact
	if v < float64(math.MinInt) || v >= -float64(math.MinInt) {
		return 0, false
	}
	return int(v), true
}

// MaxCost is the largest amount whose whole cents fit in an int64.
const MaxCost = float64(math.MaxInt64/100) / 100

// ParseCost parses a non-negative currency amount such as "$1,250.00".
// Amounts above MaxCost are treated as missing.
func ParseCost(s string) *float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) || v > MaxCost {
		return nil
	}
	return &v
}

// ParseDate parses a calendar date in any of the accepted layouts.
// It returns nil for blanks, NoData and unparseable input.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, NoData) {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
