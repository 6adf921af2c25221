// Package report renders summary views as text tables for the command line.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/ukydev/boomlift-maintenance/internal/models"
)

const timeLayout = "2006-01-02 15:04"

// Write renders every view of r, one table per view.
func Write(w io.Writer, r models.Report) {
	fmt.Fprintf(w, "Boom lift maintenance report, %d records, generated %s\n\n", r.Records, r.GeneratedAt.Format(timeLayout))
	Assets(w, r.Assets)
	fmt.Fprintln(w)
	Technicians(w, r.Technicians)
	fmt.Fprintln(w)
	Sites(w, r.Sites)
	fmt.Fprintln(w)
	Period(w, r.Period)
}

// Assets renders the latest state and warnings of every boom lift.
func Assets(w io.Writer, assets []models.AssetSummary) {
	tw := newTable(w, "Boom Lifts")
	tw.AppendHeader(table.Row{"Boom Lift", "Hours", "Last Reading", "Last Maintenance", "Oil Change Hrs", "Inspection", "Warnings"})
	for _, a := range assets {
		tw.AppendRow(table.Row{
			a.AssetID,
			a.Latest.Hours,
			a.Latest.SubmittedAt.Format(timeLayout),
			dateOrNone(a.LastMaintenance),
			intOrNone(a.OilChangeHours),
			a.Warnings.ExpiryText(),
			warnings(a.Warnings),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	tw.Render()
}

// Technicians renders the per-technician totals.
func Technicians(w io.Writer, techs []models.TechnicianSummary) {
	tw := newTable(w, "Technicians")
	tw.AppendHeader(table.Row{"Technician", "Submissions", "Issues", "Total Cost", "Latest"})
	var subs, issues int
	var cents int64
	for _, t := range techs {
		tw.AppendRow(table.Row{t.Name, t.Submissions, t.Issues, money(t.TotalCostCents), t.LatestSubmission.Format(timeLayout)})
		subs += t.Submissions
		issues += t.Issues
		cents += t.TotalCostCents
	}
	tw.AppendFooter(table.Row{"Total", subs, issues, money(cents), ""})
	tw.Render()
}

// Sites renders the per-site totals.
func Sites(w io.Writer, sites []models.SiteSummary) {
	tw := newTable(w, "Sites")
	tw.AppendHeader(table.Row{"Site / Builder", "Submissions", "Issues", "Total Cost"})
	for _, s := range sites {
		tw.AppendRow(table.Row{s.Site, s.Submissions, s.Issues, money(s.TotalCostCents)})
	}
	tw.Render()
}

// Period renders which boom lifts each technician reported on per day of a
// review period. Days without submissions are skipped.
func Period(w io.Writer, p models.PeriodSummary) {
	tw := newTable(w, fmt.Sprintf("Review Period %s to %s", p.Start.Format(models.DateLayout), p.End.Format(models.DateLayout)))
	tw.AppendHeader(table.Row{"Date", "Technician", "Boom Lifts"})
	for _, day := range p.Days {
		names := make([]string, 0, len(day.Submissions))
		for name := range day.Submissions {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			tw.AppendRow(table.Row{day.Date.Format(models.DateLayout), name, strings.Join(day.Submissions[name], ", ")})
		}
	}
	tw.Render()
}

func newTable(w io.Writer, title string) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(title)
	tw.SetStyle(table.StyleLight)
	return tw
}

func warnings(s models.AssetWarningState) string {
	var out []string
	if s.OilChangeOverdue {
		out = append(out, "oil change due")
	}
	if s.InspectionOverdue {
		out = append(out, "inspection due")
	}
	return strings.Join(out, ", ")
}

func money(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func dateOrNone(t *time.Time) string {
	if t == nil {
		return models.NoData
	}
	return t.Format(models.DateLayout)
}

func intOrNone(v *int) string {
	if v == nil {
		return models.NoData
	}
	return fmt.Sprint(*v)
}
