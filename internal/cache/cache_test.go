package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/boomlift-maintenance/internal/models"
)

func setupTestCache(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *SummaryCache) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(mr.Addr(), "", 0)
	t.Cleanup(func() { client.Close() })
	return mr, NewSummaryCache(client, "", ttl)
}

func sampleReport() models.Report {
	return models.Report{
		GeneratedAt: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC),
		Records:     2,
		Technicians: []models.TechnicianSummary{{Name: "Riley", Submissions: 2, Issues: 1, TotalCostCents: 12550}},
		Sites:       []models.SiteSummary{{Site: "Lakeside", Submissions: 2, Issues: 1, TotalCostCents: 12550}},
	}
}

func TestSummaryCache_Key(t *testing.T) {
	_, c := setupTestCache(t, time.Minute)
	now := time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, "boomlift:summary:7:2026-10-16", c.Key(7, now))
	assert.NotEqual(t, c.Key(7, now), c.Key(8, now))
	assert.NotEqual(t, c.Key(7, now), c.Key(7, now.Add(2*time.Hour)))
}

func TestSummaryCache_Miss(t *testing.T) {
	_, c := setupTestCache(t, time.Minute)

	_, err := c.Get(context.Background(), "boomlift:summary:1:2026-10-16")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSummaryCache_SetGet(t *testing.T) {
	mr, c := setupTestCache(t, time.Minute)
	ctx := context.Background()
	key := c.Key(3, time.Now())

	require.NoError(t, c.Set(ctx, key, sampleReport()))
	got, err := c.Get(ctx, key)

	require.NoError(t, err)
	assert.Equal(t, 2, got.Records)
	require.Len(t, got.Technicians, 1)
	assert.Equal(t, int64(12550), got.Technicians[0].TotalCostCents)
	assert.True(t, sampleReport().GeneratedAt.Equal(got.GeneratedAt))
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestSummaryCache_Expires(t *testing.T) {
	mr, c := setupTestCache(t, time.Minute)
	ctx := context.Background()
	key := c.Key(1, time.Now())

	require.NoError(t, c.Set(ctx, key, sampleReport()))
	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSummaryCache_CorruptEntry(t *testing.T) {
	mr, c := setupTestCache(t, 0)
	require.NoError(t, mr.Set("boomlift:summary:1:2026-10-16", "not json"))

	_, err := c.Get(context.Background(), "boomlift:summary:1:2026-10-16")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSummaryCache_Unavailable(t *testing.T) {
	mr, c := setupTestCache(t, time.Minute)
	mr.Close()

	assert.Error(t, c.Ping(context.Background()))
	_, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
