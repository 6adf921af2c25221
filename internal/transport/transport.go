// Package transport forwards accepted maintenance records to durable or
// downstream destinations.
package transport

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boomlift-maintenance/internal/models"
)

// Error reports that a record could not be stored or forwarded.
type Error struct {
	Transport string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Transport, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err as a transport error, leaving an existing *Error untouched.
func Wrap(transport string, err error) error {
	if err == nil {
		return nil
	}
	var terr *Error
	if errors.As(err, &terr) {
		return err
	}
	return &Error{Transport: transport, Err: err}
}

// Forwarder stores or forwards one accepted record.
type Forwarder interface {
	Store(ctx context.Context, rec models.MaintenanceRecord) error
}

// Multi forwards to every destination in order and stops at the first
// failure. A failure after an earlier destination succeeded leaves that
// write in place, so only the first destination may be durable; put
// notifications behind Announce.
type Multi []Forwarder

// Store implements Forwarder.
func (m Multi) Store(ctx context.Context, rec models.MaintenanceRecord) error {
	for _, f := range m {
		if f == nil {
			continue
		}
		if err := f.Store(ctx, rec); err != nil {
			return Wrap("forwarder", err)
		}
	}
	return nil
}

// Announce sends an already stored record to notification destinations.
// Failures are logged and never reject the record.
type Announce []Forwarder

// Store implements Forwarder. It always returns nil.
func (a Announce) Store(ctx context.Context, rec models.MaintenanceRecord) error {
	for _, f := range a {
		if f == nil {
			continue
		}
		if err := f.Store(ctx, rec); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"asset_id":  rec.AssetID,
				"record_id": rec.ID.Hex(),
			}).Warn("Failed to announce maintenance record")
		}
	}
	return nil
}

// Chain stores a record durably and then announces it. Only a durable
// failure is returned. Chain returns nil when there is nothing to forward to.
func Chain(durable Forwarder, announce ...Forwarder) Forwarder {
	var m Multi
	if durable != nil {
		m = append(m, durable)
	}
	var ann Announce
	for _, f := range announce {
		if f != nil {
			ann = append(ann, f)
		}
	}
	if len(ann) > 0 {
		m = append(m, ann)
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
