package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/boomlift-maintenance/internal/cache"
	"github.com/ukydev/boomlift-maintenance/internal/models"
	"github.com/ukydev/boomlift-maintenance/internal/records"
	"github.com/xuri/excelize/v2"
)

func summaryHistory() []models.MaintenanceRecord {
	cost := 120.0
	return []models.MaintenanceRecord{
		{AssetID: "BL-1", SubmitterName: "Jordan", Hours: 100, SiteOrBuilder: "Lakeside", SubmittedAt: testNow.Add(-26 * time.Hour)},
		{AssetID: "BL-1", SubmitterName: "Riley", Hours: 110, SiteOrBuilder: "Lakeside", SubmitterRole: models.RoleMechanic,
			OilChange: models.Action{Performed: true, Cost: &cost}, SubmittedAt: testNow.Add(-2 * time.Hour)},
		{AssetID: "BL-2", SubmitterName: "Jordan", Hours: 5, IssueNotes: "bucket latch", SubmittedAt: testNow.Add(-20 * 24 * time.Hour)},
	}
}

func newSummaryHandler(store *records.Store, c *cache.SummaryCache) *SummaryHandler {
	return NewSummaryHandler(store, c, time.UTC).WithClock(func() time.Time { return testNow })
}

func getJSON(t *testing.T, handler http.HandlerFunc, target string, v interface{}) int {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", target, nil))
	if w.Code == http.StatusOK && v != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
	}
	return w.Code
}

func TestSummaryHandler_Views(t *testing.T) {
	h := newSummaryHandler(records.NewStore(summaryHistory()...), nil)

	var report models.Report
	require.Equal(t, http.StatusOK, getJSON(t, h.Report, "/api/summary", &report))
	assert.Equal(t, 3, report.Records)

	var techs []models.TechnicianSummary
	require.Equal(t, http.StatusOK, getJSON(t, h.Technicians, "/api/summary/technicians", &techs))
	require.Len(t, techs, 2)
	assert.Equal(t, "Jordan", techs[0].Name)
	assert.Equal(t, 2, techs[0].Submissions)
	assert.Equal(t, 1, techs[0].Issues)
	assert.Equal(t, int64(12000), techs[1].TotalCostCents)

	var sites []models.SiteSummary
	require.Equal(t, http.StatusOK, getJSON(t, h.Sites, "/api/summary/sites", &sites))
	require.Len(t, sites, 2)
	assert.Equal(t, "Lakeside", sites[0].Site)
	assert.Equal(t, "Unspecified", sites[1].Site)

	var assets []models.AssetSummary
	require.Equal(t, http.StatusOK, getJSON(t, h.Assets, "/api/summary/assets", &assets))
	require.Len(t, assets, 2)
	assert.Equal(t, 110, assets[0].Latest.Hours)
	require.NotNil(t, assets[0].OilChangeHours)
	assert.Equal(t, 110, *assets[0].OilChangeHours)

	var period models.PeriodSummary
	require.Equal(t, http.StatusOK, getJSON(t, h.Period, "/api/summary/period", &period))
	assert.Equal(t, "2026-10-05", period.Start.Format(models.DateLayout))
	assert.Len(t, period.Days, 14)
	require.Len(t, period.Sites, 1)
	assert.Equal(t, 2, period.Sites[0].Submissions)
}

func TestSummaryHandler_PeriodForDate(t *testing.T) {
	h := newSummaryHandler(records.NewStore(summaryHistory()...), nil)

	var period models.PeriodSummary
	require.Equal(t, http.StatusOK, getJSON(t, h.Period, "/api/summary/period?date=2026-09-26", &period))
	assert.Equal(t, "2026-09-21", period.Start.Format(models.DateLayout))
	assert.Equal(t, "2026-10-04", period.End.Format(models.DateLayout))
	assert.Equal(t, []string{"BL-2"}, period.Days[5].Submissions["Jordan"])

	assert.Equal(t, http.StatusBadRequest, getJSON(t, h.Period, "/api/summary/period?date=26/09/2026", nil))
}

func TestSummaryHandler_ReadsThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.NewSummaryCache(cache.NewRedisClient(mr.Addr(), "", 0), "", time.Minute)
	store := records.NewStore(summaryHistory()...)
	h := newSummaryHandler(store, c)

	var first models.Report
	require.Equal(t, http.StatusOK, getJSON(t, h.Report, "/api/summary", &first))
	key := c.Key(store.Version(), testNow)
	assert.True(t, mr.Exists(key))

	// a cached entry is served as is
	require.NoError(t, mr.Set(key, `{"records":99}`))
	var cached models.Report
	require.Equal(t, http.StatusOK, getJSON(t, h.Report, "/api/summary", &cached))
	assert.Equal(t, 99, cached.Records)

	// an append changes the key
	require.NoError(t, store.Append(models.MaintenanceRecord{AssetID: "BL-3", Hours: 1, SubmittedAt: testNow}))
	var fresh models.Report
	require.Equal(t, http.StatusOK, getJSON(t, h.Report, "/api/summary", &fresh))
	assert.Equal(t, 4, fresh.Records)
}

func TestSummaryHandler_CacheDown(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.NewSummaryCache(cache.NewRedisClient(mr.Addr(), "", 0), "", time.Minute)
	mr.Close()
	h := newSummaryHandler(records.NewStore(summaryHistory()...), c)

	var report models.Report
	require.Equal(t, http.StatusOK, getJSON(t, h.Report, "/api/summary", &report))
	assert.Equal(t, 3, report.Records)
}

func TestSummaryHandler_Export(t *testing.T) {
	h := newSummaryHandler(records.NewStore(summaryHistory()...), nil)
	w := httptest.NewRecorder()

	h.Export(w, httptest.NewRequest("GET", "/api/summary/export", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "boomlift-report-2026-10-16.xlsx")

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Records")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}
