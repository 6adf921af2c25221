package db

import (
	"context"

	"github.com/ukydev/boomlift-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RecordCollection defines the interface for maintenance record operations.
type RecordCollection interface {
	InsertRecord(ctx context.Context, rec models.MaintenanceRecord) error
	FindRecords(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (RecordCursor, error)
}

// RecordCursor defines the interface for record cursor operations.
type RecordCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}
