package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boomlift-maintenance/internal/config"
	"github.com/ukydev/boomlift-maintenance/internal/db"
	"github.com/ukydev/boomlift-maintenance/internal/models"
	"github.com/ukydev/boomlift-maintenance/internal/transport"
	"github.com/ukydev/boomlift-maintenance/internal/warnings"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	recordsCollection = "maintenance_records"
	usersCollection   = "users"
)

// app holds the connections opened for one command.
type app struct {
	cfg     *config.Config
	loc     *time.Location
	mongo   *mongo.Client
	db      *mongo.Database
	records *db.MongoRecordCollection
	closers []func()
}

// connect opens MongoDB when it is configured. Without it the app keeps
// records in memory only, unless requireMongo is set.
func (c *cli) connect(ctx context.Context, requireMongo bool) (*app, error) {
	loc, err := c.cfg.Location()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: c.cfg, loc: loc}

	if c.cfg.MongoURI == "" {
		if requireMongo {
			return nil, fmt.Errorf("%w: set MONGO_URI", db.ErrNoURI)
		}
		return a, nil
	}

	client, err := db.ConnectMongo(ctx, c.cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	a.mongo = client
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	})
	a.db = client.Database(c.cfg.MongoDB)
	a.records = &db.MongoRecordCollection{Collection: a.db.Collection(recordsCollection)}
	if err := a.records.EnsureIndexes(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	log.WithField("database", c.cfg.MongoDB).Info("Connected to MongoDB")
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// history returns the stored records, or none without MongoDB.
func (a *app) history(ctx context.Context) ([]models.MaintenanceRecord, error) {
	if a.records == nil {
		return nil, nil
	}
	return db.LoadRecords(ctx, a.records)
}

// forwarder builds the chain every accepted record goes through: MongoDB
// first, then the webhook and MQTT announcements that are configured. Only a
// MongoDB failure rejects a record.
func (a *app) forwarder() (transport.Forwarder, error) {
	var durable transport.Forwarder
	if a.records != nil {
		durable = a.records
	}
	var announce []transport.Forwarder
	if a.cfg.WebhookURL != "" {
		announce = append(announce, transport.NewWebhook(transport.WebhookConfig{
			URL:        a.cfg.WebhookURL,
			Token:      a.cfg.WebhookToken,
			RetryCount: a.cfg.WebhookRetries,
		}))
	}
	if a.cfg.MQTTBroker != "" {
		pub, client, err := transport.NewMQTTPublisher(transport.MQTTConfig{
			Broker:      a.cfg.MQTTBroker,
			Username:    a.cfg.MQTTUsername,
			Password:    a.cfg.MQTTPassword,
			TopicPrefix: a.cfg.MQTTTopicPrefix,
		}, warnings.NewIn(a.loc))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { client.Disconnect(250) })
		announce = append(announce, pub)
	}
	return transport.Chain(durable, announce...), nil
}
