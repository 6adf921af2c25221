package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/boomlift-maintenance/internal/models"
	"github.com/ukydev/boomlift-maintenance/internal/transport"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoURI is returned when no MongoDB URI is configured.
var ErrNoURI = errors.New("mongo URI is not configured")

const mongoTransport = "mongo"

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
// Credentials are part of uri and always come from runtime configuration.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, ErrNoURI
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoRecordCollection stores maintenance records in a MongoDB collection.
type MongoRecordCollection struct {
	Collection *mongo.Collection
}

// InsertRecord inserts a maintenance record into the collection.
func (c *MongoRecordCollection) InsertRecord(ctx context.Context, rec models.MaintenanceRecord) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.InsertOne(ctx, rec)
	return err
}

// Store implements transport.Forwarder.
func (c *MongoRecordCollection) Store(ctx context.Context, rec models.MaintenanceRecord) error {
	return transport.Wrap(mongoTransport, c.InsertRecord(ctx, rec))
}

// mongoRecordCursor wraps a MongoDB cursor for record queries.
type mongoRecordCursor struct {
	cursor *mongo.Cursor
}

// All retrieves all results from the cursor.
func (m *mongoRecordCursor) All(ctx context.Context, out interface{}) error {
	return m.cursor.All(ctx, out)
}

func (m *mongoRecordCursor) Close(ctx context.Context) error {
	return m.cursor.Close(ctx)
}

// FindRecords queries maintenance records from the collection.
func (c *MongoRecordCollection) FindRecords(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (RecordCursor, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoRecordCursor{cursor: cursor}, nil
}

// DeleteAll deletes all maintenance records from the collection.
func (c *MongoRecordCollection) DeleteAll(ctx context.Context) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.DeleteMany(ctx, bson.M{})
	return err
}

// EnsureIndexes creates the indexes used to load an asset's history in order.
func (c *MongoRecordCollection) EnsureIndexes(ctx context.Context) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "submitted_at", Value: 1}}},
		{Keys: bson.D{{Key: "asset_id", Value: 1}, {Key: "submitted_at", Value: -1}}},
	})
	return err
}

// LoadRecords returns every stored record in submission order.
func LoadRecords(ctx context.Context, coll RecordCollection) ([]models.MaintenanceRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := coll.FindRecords(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer cursor.Close(ctx)

	var recs []models.MaintenanceRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return recs, nil
}
