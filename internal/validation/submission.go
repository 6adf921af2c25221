package validation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ukydev/boomlift-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrOutOfOrder is returned for a historical record that predates the latest
// record of its boom lift.
var ErrOutOfOrder = errors.New("submitted before the latest record")

// RecordStore is the store the submitter validates against and appends to.
type RecordStore interface {
	LatestLookup
	Append(rec models.MaintenanceRecord) error
}

// Forwarder durably stores or forwards an accepted record.
// Errors are returned to the caller unchanged.
type Forwarder interface {
	Store(ctx context.Context, rec models.MaintenanceRecord) error
}

// Submitter is the single write entry point for maintenance records.
type Submitter struct {
	mu        sync.Mutex
	store     RecordStore
	forwarder Forwarder
	now       func() time.Time
}

// NewSubmitter creates a submitter. forwarder may be nil when records are only
// kept in memory.
func NewSubmitter(store RecordStore, forwarder Forwarder) *Submitter {
	return &Submitter{
		store:     store,
		forwarder: forwarder,
		now:       time.Now,
	}
}

// WithClock replaces the submission clock.
func (s *Submitter) WithClock(now func() time.Time) *Submitter {
	s.now = now
	return s
}

// Submit validates a candidate, stamps its submission time, forwards it and
// appends it to the store. On any error the store is left unchanged.
// Validation and append happen under one lock so two submissions for the
// same asset cannot both pass against the same stale reading.
func (s *Submitter) Submit(ctx context.Context, candidate models.MaintenanceRecord) (models.MaintenanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ValidateHours(candidate, s.store); err != nil {
		return models.MaintenanceRecord{}, err
	}

	rec := candidate
	rec.SubmittedAt = s.now().UTC()
	if latest, ok := s.store.LatestFor(rec.AssetID); ok && rec.SubmittedAt.Before(latest.SubmittedAt) {
		// clock moved backwards; keep the asset's history ordered
		rec.SubmittedAt = latest.SubmittedAt
	}
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}

	return s.commit(ctx, rec)
}

// Rejection is a historical record that failed validation, by its index in
// the submitted batch.
type Rejection struct {
	Index int
	Err   error
}

// SubmitHistory writes records that already carry their submission time,
// oldest first, holding the submission lock for the whole batch. A record
// with lower hours than its asset's latest, or one that predates it, is
// rejected and skipped. A forwarding failure stops the batch and is returned
// with the records accepted so far.
func (s *Submitter) SubmitHistory(ctx context.Context, recs []models.MaintenanceRecord) (int, []Rejection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var accepted int
	var rejected []Rejection
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return accepted, rejected, err
		}
		if err := s.validateHistorical(rec); err != nil {
			rejected = append(rejected, Rejection{Index: i, Err: err})
			continue
		}
		if rec.ID.IsZero() {
			rec.ID = primitive.NewObjectID()
		}
		if _, err := s.commit(ctx, rec); err != nil {
			return accepted, rejected, err
		}
		accepted++
	}
	return accepted, rejected, nil
}

func (s *Submitter) validateHistorical(rec models.MaintenanceRecord) error {
	if err := ValidateHours(rec, s.store); err != nil {
		return err
	}
	if latest, ok := s.store.LatestFor(rec.AssetID); ok && rec.SubmittedAt.Before(latest.SubmittedAt) {
		return fmt.Errorf("%w: %s at %s, latest %s", ErrOutOfOrder, rec.AssetID,
			rec.SubmittedAt.Format(time.RFC3339), latest.SubmittedAt.Format(time.RFC3339))
	}
	return nil
}

// commit forwards rec and then appends it. Callers hold s.mu.
func (s *Submitter) commit(ctx context.Context, rec models.MaintenanceRecord) (models.MaintenanceRecord, error) {
	if s.forwarder != nil {
		if err := s.forwarder.Store(ctx, rec); err != nil {
			return models.MaintenanceRecord{}, err
		}
	}
	if err := s.store.Append(rec); err != nil {
		return models.MaintenanceRecord{}, err
	}
	return rec, nil
}
