// Package summary folds a record history into technician, site, asset and
// review-period views. Every function is a pure fold over its input.
package summary

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ukydev/boomlift-maintenance/internal/models"
	"github.com/ukydev/boomlift-maintenance/internal/warnings"
)

// Unspecified labels records without a site or builder.
const Unspecified = "Unspecified"

// ByTechnician groups records by submitter name.
func ByTechnician(recs []models.MaintenanceRecord) map[string]models.TechnicianSummary {
	out := make(map[string]models.TechnicianSummary)
	for _, rec := range recs {
		name := strings.TrimSpace(rec.SubmitterName)
		s := out[name]
		s.Name = name
		s.Submissions++
		if rec.HasIssue() {
			s.Issues++
		}
		s.TotalCostCents = addCents(s.TotalCostCents, costCents(rec))
		if rec.SubmittedAt.After(s.LatestSubmission) {
			s.LatestSubmission = rec.SubmittedAt
		}
		out[name] = s
	}
	return out
}

// BySite groups records by site or builder.
func BySite(recs []models.MaintenanceRecord) map[string]models.SiteSummary {
	out := make(map[string]models.SiteSummary)
	for _, rec := range recs {
		site := siteKey(rec)
		s := out[site]
		s.Site = site
		s.Submissions++
		if rec.HasIssue() {
			s.Issues++
		}
		s.TotalCostCents = addCents(s.TotalCostCents, costCents(rec))
		out[site] = s
	}
	return out
}

// SortedTechnicians returns the summaries ordered by name.
func SortedTechnicians(m map[string]models.TechnicianSummary) []models.TechnicianSummary {
	out := make([]models.TechnicianSummary, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SortedSites returns the summaries ordered by site.
func SortedSites(m map[string]models.SiteSummary) []models.SiteSummary {
	out := make([]models.SiteSummary, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Site < out[j].Site })
	return out
}

// Assets builds the latest picture of every boom lift, including when it
// last had maintenance and the hour readings at its last oil change and
// annual inspection.
func Assets(recs []models.MaintenanceRecord, ev *warnings.Evaluator) []models.AssetSummary {
	byAsset := make(map[string]*models.AssetSummary)
	for _, rec := range chronological(recs) {
		a, ok := byAsset[rec.AssetID]
		if !ok {
			a = &models.AssetSummary{AssetID: rec.AssetID}
			byAsset[rec.AssetID] = a
		}
		a.Latest = rec
		if rec.HasMaintenance() {
			at := rec.SubmittedAt
			a.LastMaintenance = &at
		}
		if rec.OilChange.Performed {
			h := rec.Hours
			a.OilChangeHours = &h
		}
		if rec.AnnualInspection.Performed {
			h := rec.Hours
			a.AnnualInspectionHours = &h
		}
		inspected := rec.AnnualInspectionDate
		if inspected == nil && rec.AnnualInspection.Performed {
			inspected = &rec.SubmittedAt
		}
		if inspected != nil && (a.LastInspectionDate == nil || inspected.After(*a.LastInspectionDate)) {
			d := *inspected
			a.LastInspectionDate = &d
		}
	}

	out := make([]models.AssetSummary, 0, len(byAsset))
	for _, a := range byAsset {
		a.Warnings = ev.Evaluate(a.Latest)
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out
}

// Build assembles every view of the record set at the given instant.
func Build(recs []models.MaintenanceRecord, ev *warnings.Evaluator, now time.Time) models.Report {
	return models.Report{
		GeneratedAt: now,
		Records:     len(recs),
		Technicians: SortedTechnicians(ByTechnician(recs)),
		Sites:       SortedSites(BySite(recs)),
		Assets:      Assets(recs, ev),
		Period:      Period(recs, now),
	}
}

func siteKey(rec models.MaintenanceRecord) string {
	if site := strings.TrimSpace(rec.SiteOrBuilder); site != "" {
		return site
	}
	return Unspecified
}

// costCents sums in whole cents so totals do not depend on record order.
// A cost that is negative, not finite or above models.MaxCost counts as no
// data.
func costCents(rec models.MaintenanceRecord) int64 {
	var total int64
	for _, c := range rec.Costs() {
		if !(c >= 0 && c <= models.MaxCost) {
			continue
		}
		total = addCents(total, int64(math.Round(c*100)))
	}
	return total
}

// addCents adds non-negative amounts, saturating at math.MaxInt64.
func addCents(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// chronological returns a sorted copy with a total order, so ties in
// submission time resolve the same way for any input permutation.
func chronological(recs []models.MaintenanceRecord) []models.MaintenanceRecord {
	out := append([]models.MaintenanceRecord(nil), recs...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		if a.Hours != b.Hours {
			return a.Hours < b.Hours
		}
		if a.AssetID != b.AssetID {
			return a.AssetID < b.AssetID
		}
		return a.ID.Hex() < b.ID.Hex()
	})
	return out
}
