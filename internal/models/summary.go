package models

import (
	"fmt"
	"time"
)

// InspectionExpiry is the time left before an annual inspection lapses.
type InspectionExpiry struct {
	DaysUntilExpiry int  `json:"days_until_expiry"`
	Expired         bool `json:"expired"`
}

func (e InspectionExpiry) String() string {
	if e.Expired {
		return "Expired"
	}
	if e.DaysUntilExpiry == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", e.DaysUntilExpiry)
}

// AssetWarningState holds the warnings derived from a single record.
type AssetWarningState struct {
	AssetID           string            `json:"asset_id"`
	OilChangeOverdue  bool              `json:"oil_change_overdue"`
	InspectionOverdue bool              `json:"inspection_overdue"`
	InspectionExpiry  *InspectionExpiry `json:"inspection_expiry,omitempty"`
}

// ExpiryText is the inspection expiry for display, or "" when the record
// carries no usable inspection date.
func (s AssetWarningState) ExpiryText() string {
	if s.InspectionExpiry == nil {
		return ""
	}
	return s.InspectionExpiry.String()
}

// Any reports whether at least one warning is raised.
func (s AssetWarningState) Any() bool {
	return s.OilChangeOverdue || s.InspectionOverdue
}

// AnnotatedRecord pairs a record with its derived warnings.
type AnnotatedRecord struct {
	Record   MaintenanceRecord `json:"record"`
	Warnings AssetWarningState `json:"warnings"`
	Expiry   string            `json:"expiry"`
}

// TechnicianSummary rolls up the records submitted by one technician.
type TechnicianSummary struct {
	Name             string    `json:"name"`
	Submissions      int       `json:"submissions"`
	Issues           int       `json:"issues"`
	TotalCostCents   int64     `json:"total_cost_cents"`
	LatestSubmission time.Time `json:"latest_submission"`
}

// TotalCost returns the summed cost in USD.
func (s TechnicianSummary) TotalCost() float64 { return float64(s.TotalCostCents) / 100 }

// SiteSummary rolls up the records for one site or builder.
type SiteSummary struct {
	Site           string `json:"site"`
	Submissions    int    `json:"submissions"`
	Issues         int    `json:"issues"`
	TotalCostCents int64  `json:"total_cost_cents"`
}

// TotalCost returns the summed cost in USD.
func (s SiteSummary) TotalCost() float64 { return float64(s.TotalCostCents) / 100 }

// AssetSummary is the current picture of one boom lift.
type AssetSummary struct {
	AssetID               string            `json:"asset_id"`
	Latest                MaintenanceRecord `json:"latest"`
	LastMaintenance       *time.Time        `json:"last_maintenance,omitempty"`
	OilChangeHours        *int              `json:"oil_change_hours,omitempty"`
	AnnualInspectionHours *int              `json:"annual_inspection_hours,omitempty"`
	LastInspectionDate    *time.Time        `json:"last_inspection_date,omitempty"`
	Warnings              AssetWarningState `json:"warnings"`
}

// DailyReview lists, for one calendar day, the boom lifts each technician reported on.
type DailyReview struct {
	Date        time.Time           `json:"date"`
	Submissions map[string][]string `json:"submissions"`
}

// PeriodSummary covers one fourteen-day review period.
type PeriodSummary struct {
	Start time.Time     `json:"start"`
	End   time.Time     `json:"end"`
	Days  []DailyReview `json:"days"`
	Sites []SiteSummary `json:"sites"`
}

// Report bundles every summary view of a record set.
type Report struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Records     int                 `json:"records"`
	Technicians []TechnicianSummary `json:"technicians"`
	Sites       []SiteSummary       `json:"sites"`
	Assets      []AssetSummary      `json:"assets"`
	Period      PeriodSummary       `json:"period"`
}
