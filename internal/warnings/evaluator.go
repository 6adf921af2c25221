// Package warnings derives oil-change and annual-inspection warnings from a
// single maintenance record.
package warnings

import (
	"time"

	"github.com/ukydev/boomlift-maintenance/internal/models"
)

const (
	// OilChangeIntervalHours is the number of operating hours allowed between oil changes.
	OilChangeIntervalHours = 250
	// InspectionWarningMonths is how many calendar months after an annual
	// inspection the next one is flagged as due.
	InspectionWarningMonths = 10
)

// Evaluator computes warning state relative to a clock.
type Evaluator struct {
	Now func() time.Time
}

// New returns an evaluator using the wall clock.
func New() *Evaluator {
	return &Evaluator{Now: time.Now}
}

// NewIn returns an evaluator using the wall clock, counting calendar days in loc.
func NewIn(loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &Evaluator{Now: func() time.Time { return time.Now().In(loc) }}
}

// At returns an evaluator pinned to a fixed instant. Calendar days are
// counted in the location of now.
func At(now time.Time) *Evaluator {
	return &Evaluator{Now: func() time.Time { return now }}
}

// Evaluate returns the warnings for one record. Missing readings never
// produce a warning.
func (e *Evaluator) Evaluate(rec models.MaintenanceRecord) models.AssetWarningState {
	state := models.AssetWarningState{AssetID: rec.AssetID}

	if h := rec.HoursSinceOilChange; h != nil && *h > OilChangeIntervalHours {
		state.OilChangeOverdue = true
	}

	if d := rec.AnnualInspectionDate; d != nil && !d.IsZero() {
		today := calendarDate(e.now())
		inspected := calendarDate(*d)
		state.InspectionOverdue = monthsBetween(inspected, today) > InspectionWarningMonths
		days := daysBetween(today, inspected.AddDate(1, 0, 0))
		state.InspectionExpiry = &models.InspectionExpiry{
			DaysUntilExpiry: days,
			Expired:         days <= 0,
		}
	}
	return state
}

// Annotate evaluates every record, keeping the input order.
func (e *Evaluator) Annotate(recs []models.MaintenanceRecord) []models.AnnotatedRecord {
	out := make([]models.AnnotatedRecord, 0, len(recs))
	for _, rec := range recs {
		w := e.Evaluate(rec)
		out = append(out, models.AnnotatedRecord{Record: rec, Warnings: w, Expiry: w.ExpiryText()})
	}
	return out
}

func (e *Evaluator) now() time.Time {
	if e == nil || e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// monthsBetween counts calendar months using the year and month only.
func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// calendarDate returns the date of t as seen in t's own location, at
// midnight UTC so that day arithmetic is free of DST shifts.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole days from one calendar date to another.
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
