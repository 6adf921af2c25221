package summary

import (
	"strings"
	"time"

	"github.com/ukydev/boomlift-maintenance/internal/models"
)

// PeriodDays is the length of a review period.
const PeriodDays = 14

// periodAnchor is the first day of the first review period.
var periodAnchor = civil{2024, time.December, 30}

type civil struct {
	year  int
	month time.Month
	day   int
}

func civilOf(t time.Time) civil {
	y, m, d := t.Date()
	return civil{y, m, d}
}

// dayNumber counts days on a DST-free clock.
func (c civil) dayNumber() int {
	return int(time.Date(c.year, c.month, c.day, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func (c civil) in(loc *time.Location) time.Time {
	return time.Date(c.year, c.month, c.day, 0, 0, 0, 0, loc)
}

// PeriodFor returns the first and last day of the review period containing
// now, in now's location.
func PeriodFor(now time.Time) (start, end time.Time) {
	loc := now.Location()
	diff := civilOf(now).dayNumber() - periodAnchor.dayNumber()
	n := diff / PeriodDays
	if diff < 0 && diff%PeriodDays != 0 {
		n--
	}
	start = periodAnchor.in(loc).AddDate(0, 0, n*PeriodDays)
	end = start.AddDate(0, 0, PeriodDays-1)
	return start, end
}

// Period summarizes the review period containing now: which boom lifts each
// technician reported on per day, and the site totals for the period.
func Period(recs []models.MaintenanceRecord, now time.Time) models.PeriodSummary {
	loc := now.Location()
	start, end := PeriodFor(now)
	stop := end.AddDate(0, 0, 1)

	days := make([]models.DailyReview, PeriodDays)
	index := make(map[civil]int, PeriodDays)
	for i := range days {
		d := start.AddDate(0, 0, i)
		days[i] = models.DailyReview{Date: d, Submissions: make(map[string][]string)}
		index[civilOf(d)] = i
	}

	var window []models.MaintenanceRecord
	for _, rec := range chronological(recs) {
		at := rec.SubmittedAt.In(loc)
		if at.Before(start) || !at.Before(stop) {
			continue
		}
		window = append(window, rec)
		if i, ok := index[civilOf(at)]; ok {
			name := strings.TrimSpace(rec.SubmitterName)
			days[i].Submissions[name] = append(days[i].Submissions[name], rec.AssetID)
		}
	}

	return models.PeriodSummary{
		Start: start,
		End:   end,
		Days:  days,
		Sites: SortedSites(BySite(window)),
	}
}
