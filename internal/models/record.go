package models

import (
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NoData is the display form of an absent reading.
const NoData = "no data"

// SiteOther is the site/builder option that requires a companion free-text value.
const SiteOther = "Other"

// Action is a maintenance action performed during a visit, optionally with its cost in USD.
type Action struct {
	Performed bool     `json:"performed" bson:"performed"`
	Cost      *float64 `json:"cost,omitempty" bson:"cost,omitempty"`
}

// MaintenanceRecord is a single boom lift reading submitted by a technician.
// Records are never modified after they are accepted.
type MaintenanceRecord struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AssetID       string             `json:"asset_id" bson:"asset_id"`
	SubmittedAt   time.Time          `json:"submitted_at" bson:"submitted_at"`
	SubmitterName string             `json:"submitter_name" bson:"submitter_name"`
	SubmitterRole Role               `json:"submitter_role" bson:"submitter_role"` // "installer" or "mechanic"
	Hours         int                `json:"hours" bson:"hours"`
	OilLevel      string             `json:"oil_level" bson:"oil_level"`
	GasLevel      string             `json:"gas_level" bson:"gas_level"`
	IssueNotes    string             `json:"issue_notes" bson:"issue_notes"`
	SiteOrBuilder string             `json:"site_or_builder" bson:"site_or_builder"`

	OilChange        Action `json:"oil_change" bson:"oil_change"`
	AnnualInspection Action `json:"annual_inspection" bson:"annual_inspection"`
	NDT              Action `json:"ndt" bson:"ndt"`
	RadiatorRepair   Action `json:"radiator_repair" bson:"radiator_repair"`

	MaintenanceWork string   `json:"maintenance_work,omitempty" bson:"maintenance_work,omitempty"`
	MaintenanceCost *float64 `json:"maintenance_cost,omitempty" bson:"maintenance_cost,omitempty"`

	// nil means no data; an absent date is never stored as a zero time.
	AnnualInspectionDate *time.Time `json:"annual_inspection_date,omitempty" bson:"annual_inspection_date,omitempty"`
	HoursSinceOilChange  *int       `json:"hours_since_oil_change,omitempty" bson:"hours_since_oil_change,omitempty"`

	Location string `json:"location,omitempty" bson:"location,omitempty"`
}

// HasIssue reports whether the technician noted an issue.
func (r MaintenanceRecord) HasIssue() bool {
	return strings.TrimSpace(r.IssueNotes) != ""
}

// HasMaintenance reports whether any maintenance action or work was recorded.
func (r MaintenanceRecord) HasMaintenance() bool {
	return r.OilChange.Performed || r.AnnualInspection.Performed || r.NDT.Performed ||
		r.RadiatorRepair.Performed || strings.TrimSpace(r.MaintenanceWork) != ""
}

// Costs returns every cost recorded on the record.
func (r MaintenanceRecord) Costs() []float64 {
	var costs []float64
	for _, c := range []*float64{r.OilChange.Cost, r.AnnualInspection.Cost, r.NDT.Cost, r.RadiatorRepair.Cost, r.MaintenanceCost} {
		if c != nil {
			costs = append(costs, *c)
		}
	}
	return costs
}

// InspectionDateText formats the annual inspection date or returns NoData.
func (r MaintenanceRecord) InspectionDateText() string {
	if r.AnnualInspectionDate == nil {
		return NoData
	}
	return r.AnnualInspectionDate.Format(DateLayout)
}

// HoursSinceOilChangeText formats the hours since the last oil change or returns NoData.
func (r MaintenanceRecord) HoursSinceOilChangeText() string {
	if r.HoursSinceOilChange == nil {
		return NoData
	}
	return strconv.Itoa(*r.HoursSinceOilChange)
}
