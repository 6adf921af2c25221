// Package validation guards the write path: a candidate record is checked
// against the asset's latest known reading before it is forwarded and stored.
package validation

import (
	"errors"
	"fmt"

	"github.com/ukydev/boomlift-maintenance/internal/models"
)

// ErrNegativeHours is returned for a candidate with a negative hour reading.
var ErrNegativeHours = errors.New("hours must not be negative")

// HoursTooLowError reports a reading below the asset's last known hours.
// The submitter should correct the value; nothing was written.
type HoursTooLowError struct {
	AssetID     string
	Hours       int
	LatestHours int
}

func (e *HoursTooLowError) Error() string {
	return fmt.Sprintf("hours %d for boom lift %s is below the last recorded %d", e.Hours, e.AssetID, e.LatestHours)
}

// LatestLookup finds the most recent record for an asset.
type LatestLookup interface {
	LatestFor(assetID string) (models.MaintenanceRecord, bool)
}

// ValidateHours enforces non-decreasing hours per asset. The first reading
// for an asset is always accepted and equal hours are allowed.
func ValidateHours(candidate models.MaintenanceRecord, store LatestLookup) error {
	if candidate.Hours < 0 {
		return ErrNegativeHours
	}
	latest, ok := store.LatestFor(candidate.AssetID)
	if !ok {
		return nil
	}
	if candidate.Hours < latest.Hours {
		return &HoursTooLowError{
			AssetID:     candidate.AssetID,
			Hours:       candidate.Hours,
			LatestHours: latest.Hours,
		}
	}
	return nil
}
