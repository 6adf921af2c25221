package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ukydev/boomlift-maintenance/internal/models"
	"github.com/ukydev/boomlift-maintenance/internal/summary"
	warn "github.com/ukydev/boomlift-maintenance/internal/warnings"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func sample() models.Report {
	cost := 80.5
	overdue := 300
	inspected := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	recs := []models.MaintenanceRecord{
		{AssetID: "BL-1", SubmitterName: "Jordan", Hours: 400, SiteOrBuilder: "Lakeside",
			HoursSinceOilChange: &overdue, AnnualInspectionDate: &inspected, SubmittedAt: now.Add(-time.Hour)},
		{AssetID: "BL-2", SubmitterName: "Riley", Hours: 90, SubmitterRole: models.RoleMechanic,
			OilChange: models.Action{Performed: true, Cost: &cost}, SubmittedAt: now.Add(-2 * time.Hour)},
	}
	return summary.Build(recs, warn.At(now), now)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	Write(&buf, sample())
	out := buf.String()

	assert.Contains(t, out, "2 records")
	for _, title := range []string{"Boom Lifts", "Technicians", "Sites", "Review Period 2026-10-05 to 2026-10-18"} {
		assert.Contains(t, out, title)
	}
	assert.Contains(t, out, "oil change due, inspection due")
	assert.Contains(t, out, "Expired")
	assert.Contains(t, out, "$80.50")
	assert.Contains(t, out, "Unspecified")
}

func TestAssets_NoData(t *testing.T) {
	var buf bytes.Buffer
	Assets(&buf, []models.AssetSummary{{AssetID: "BL-3", Latest: models.MaintenanceRecord{Hours: 5, SubmittedAt: now}}})

	line := ""
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "BL-3") {
			line = l
		}
	}
	assert.Equal(t, 2, strings.Count(line, models.NoData))
}

func TestPeriod_SkipsEmptyDays(t *testing.T) {
	p := summary.Period([]models.MaintenanceRecord{
		{AssetID: "BL-1", SubmitterName: "Sky", SubmittedAt: now},
		{AssetID: "BL-4", SubmitterName: "Sky", SubmittedAt: now.Add(time.Minute)},
	}, now)

	var buf bytes.Buffer
	Period(&buf, p)

	assert.Contains(t, buf.String(), "BL-1, BL-4")
	assert.Equal(t, 1, strings.Count(buf.String(), "2026-10-16"))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$0.00", money(0))
	assert.Equal(t, "$1250.05", money(125005))
}
