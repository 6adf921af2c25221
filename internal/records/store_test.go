package records

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/boomlift-maintenance/internal/models"
)

var base = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func record(asset string, hours int, offset time.Duration) models.MaintenanceRecord {
	return models.MaintenanceRecord{
		AssetID:       asset,
		Hours:         hours,
		SubmittedAt:   base.Add(offset),
		SubmitterName: "Sam",
		SubmitterRole: models.RoleInstaller,
	}
}

func TestNewStore_SortsHistoryAndIndexesLatest(t *testing.T) {
	s := NewStore(
		record("BL-2", 90, 3*time.Hour),
		record("BL-1", 10, time.Hour),
		record("BL-1", 25, 2*time.Hour),
	)

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, 10, all[0].Hours)
	assert.Equal(t, 25, all[1].Hours)
	assert.Equal(t, 90, all[2].Hours)

	latest, ok := s.LatestFor("BL-1")
	require.True(t, ok)
	assert.Equal(t, 25, latest.Hours)
	assert.Equal(t, []string{"BL-1", "BL-2"}, s.Assets())
	assert.Equal(t, uint64(3), s.Version())
}

func TestStore_LatestForUnknownAsset(t *testing.T) {
	s := NewStore()
	_, ok := s.LatestFor("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_AppendUpdatesLatest(t *testing.T) {
	s := NewStore(record("BL-1", 10, 0))

	require.NoError(t, s.Append(record("BL-1", 10, time.Hour)))
	require.NoError(t, s.Append(record("BL-1", 14, 2*time.Hour)))

	latest, ok := s.LatestFor("BL-1")
	require.True(t, ok)
	assert.Equal(t, 14, latest.Hours)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, uint64(3), s.Version())
}

func TestStore_AppendRejectsLowerHours(t *testing.T) {
	s := NewStore(record("BL-1", 50, 0))

	err := s.Append(record("BL-1", 49, time.Hour))
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, uint64(1), s.Version())
}

func TestStore_AppendRejectsEarlierSubmission(t *testing.T) {
	s := NewStore(record("BL-1", 50, time.Hour))

	err := s.Append(record("BL-1", 60, 0))
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, 1, s.Len())
}

func TestStore_AppendKeepsHistoryChronological(t *testing.T) {
	s := NewStore(record("BL-1", 10, 5*time.Hour))

	require.NoError(t, s.Append(record("BL-2", 7, time.Hour)))
	require.NoError(t, s.Append(record("BL-1", 12, 6*time.Hour)))

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "BL-2", all[0].AssetID)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].SubmittedAt.Before(all[i-1].SubmittedAt))
	}
	l1, _ := s.LatestFor("BL-1")
	l2, _ := s.LatestFor("BL-2")
	assert.Equal(t, 12, l1.Hours)
	assert.Equal(t, 7, l2.Hours)
}

func TestStore_AllReturnsCopy(t *testing.T) {
	s := NewStore(record("BL-1", 10, 0))
	all := s.All()
	all[0].Hours = 9999

	latest, _ := s.LatestFor("BL-1")
	assert.Equal(t, 10, latest.Hours)
}

func TestStore_ConcurrentReadsDuringAppends(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			assert.NoError(t, s.Append(record("BL-1", i, time.Duration(i)*time.Minute)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if latest, ok := s.LatestFor("BL-1"); ok {
				assert.GreaterOrEqual(t, latest.Hours, 0)
			}
			_ = s.All()
		}
	}()
	wg.Wait()

	all := s.All()
	require.Len(t, all, 200)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i].Hours, all[i-1].Hours)
	}
}
