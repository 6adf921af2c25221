// Package records keeps the accepted maintenance history in memory together
// with an index of the latest record per boom lift.
package records

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ukydev/boomlift-maintenance/internal/models"
)

// ErrInvariantViolation is returned when an append would break the per-asset
// ordering of hours or submission times. Appends are expected to go through
// the submission path, so this indicates a programming error.
var ErrInvariantViolation = errors.New("record store invariant violation")

// Store is an append-only view over the full record history.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records []models.MaintenanceRecord
	latest  map[string]int // asset id -> index into records
	version uint64
}

// NewStore seeds a store with previously accepted history. The history is
// ordered by submission time; it is not re-validated.
func NewStore(history ...models.MaintenanceRecord) *Store {
	s := &Store{
		records: append([]models.MaintenanceRecord(nil), history...),
		latest:  make(map[string]int),
	}
	sort.SliceStable(s.records, func(i, j int) bool {
		return s.records[i].SubmittedAt.Before(s.records[j].SubmittedAt)
	})
	for i, rec := range s.records {
		if cur, ok := s.latest[rec.AssetID]; !ok || !rec.SubmittedAt.Before(s.records[cur].SubmittedAt) {
			s.latest[rec.AssetID] = i
		}
	}
	s.version = uint64(len(s.records))
	return s
}

func (s *Store) check(rec models.MaintenanceRecord) error {
	i, ok := s.latest[rec.AssetID]
	if !ok {
		return nil
	}
	prev := s.records[i]
	if rec.Hours < prev.Hours {
		return fmt.Errorf("%w: asset %s hours %d below latest %d", ErrInvariantViolation, rec.AssetID, rec.Hours, prev.Hours)
	}
	if rec.SubmittedAt.Before(prev.SubmittedAt) {
		return fmt.Errorf("%w: asset %s submitted at %s before latest %s", ErrInvariantViolation,
			rec.AssetID, rec.SubmittedAt.Format(time.RFC3339), prev.SubmittedAt.Format(time.RFC3339))
	}
	return nil
}

// Append adds an accepted record and updates the latest-record index in the
// same step.
func (s *Store) Append(rec models.MaintenanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(rec); err != nil {
		return err
	}

	// Keep the history chronological across assets.
	pos := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].SubmittedAt.After(rec.SubmittedAt)
	})
	s.records = append(s.records, models.MaintenanceRecord{})
	copy(s.records[pos+1:], s.records[pos:])
	s.records[pos] = rec
	for id, i := range s.latest {
		if i >= pos {
			s.latest[id] = i + 1
		}
	}
	s.latest[rec.AssetID] = pos
	s.version++
	return nil
}

// All returns a chronological copy of every record.
func (s *Store) All() []models.MaintenanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.MaintenanceRecord(nil), s.records...)
}

// LatestFor returns the most recently submitted record for an asset.
func (s *Store) LatestFor(assetID string) (models.MaintenanceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.latest[assetID]
	if !ok {
		return models.MaintenanceRecord{}, false
	}
	return s.records[i], true
}

// Assets returns the known asset ids in sorted order.
func (s *Store) Assets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.latest))
	for id := range s.latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Version increases with every append. Derived views can be cached by version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
