package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boomlift-maintenance/internal/cache"
	"github.com/ukydev/boomlift-maintenance/internal/models"
	"github.com/ukydev/boomlift-maintenance/internal/records"
	"github.com/ukydev/boomlift-maintenance/internal/spreadsheet"
	"github.com/ukydev/boomlift-maintenance/internal/summary"
	"github.com/ukydev/boomlift-maintenance/internal/warnings"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SummaryHandler serves the derived summary views
type SummaryHandler struct {
	store    *records.Store
	cache    *cache.SummaryCache
	location *time.Location
	now      func() time.Time
}

// NewSummaryHandler creates a new summary handler. A nil cache disables caching.
func NewSummaryHandler(store *records.Store, c *cache.SummaryCache, loc *time.Location) *SummaryHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SummaryHandler{
		store:    store,
		cache:    c,
		location: loc,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for warnings and review periods
func (h *SummaryHandler) WithClock(now func() time.Time) *SummaryHandler {
	h.now = now
	return h
}

// Report returns every summary view
func (h *SummaryHandler) Report(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.report(r.Context()))
}

// Technicians returns the per-technician totals
func (h *SummaryHandler) Technicians(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.report(r.Context()).Technicians)
}

// Sites returns the per-site totals
func (h *SummaryHandler) Sites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.report(r.Context()).Sites)
}

// Assets returns the current state of every boom lift
func (h *SummaryHandler) Assets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.report(r.Context()).Assets)
}

// Period returns the review period containing today, or the one containing
// the date query parameter.
func (h *SummaryHandler) Period(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("date")
	if v == "" {
		writeJSON(w, http.StatusOK, h.report(r.Context()).Period)
		return
	}
	day, err := time.ParseInLocation(models.DateLayout, v, h.location)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, summary.Period(h.store.All(), day))
}

// Export returns the records and summaries as an Excel workbook
func (h *SummaryHandler) Export(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.location)
	recs := h.store.All()
	report := summary.Build(recs, warnings.At(now), now)

	data, err := spreadsheet.WriteReport(report, warnings.At(now).Annotate(recs))
	if err != nil {
		log.WithError(err).Error("Failed to build workbook")
		http.Error(w, "Failed to build workbook", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="boomlift-report-%s.xlsx"`, now.Format(models.DateLayout)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.WithError(err).Warn("Failed to write workbook")
	}
}

// report builds the summary for the current store version, reading through
// the cache when one is configured. Cache failures only cost a rebuild.
func (h *SummaryHandler) report(ctx context.Context) models.Report {
	now := h.now().In(h.location)

	// read the version before the records so a racing append changes the key
	version := h.store.Version()
	var key string
	if h.cache != nil {
		key = h.cache.Key(version, now)
		cached, err := h.cache.Get(ctx, key)
		if err == nil {
			return cached
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.WithError(err).Warn("Summary cache read failed")
		}
	}

	report := summary.Build(h.store.All(), warnings.At(now), now)
	if h.cache != nil {
		if err := h.cache.Set(ctx, key, report); err != nil {
			log.WithError(err).Warn("Summary cache write failed")
		}
	}
	return report
}
