package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/ukydev/boomlift-maintenance/internal/models"
	"github.com/ukydev/boomlift-maintenance/internal/warnings"
)

const mqttName = "mqtt"

// MQTTConfig configures an MQTTPublisher.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// Publisher is the subset of an MQTT client used for publishing.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes accepted records and their warning state.
type MQTTPublisher struct {
	client    Publisher
	prefix    string
	qos       byte
	evaluator *warnings.Evaluator
	timeout   time.Duration
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg MQTTConfig, ev *warnings.Evaluator) (*MQTTPublisher, mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "boomlift-" + uuid.NewString()
	}
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return NewMQTTPublisherWithClient(client, cfg.TopicPrefix, cfg.QoS, ev), client, nil
}

// NewMQTTPublisherWithClient wraps an already connected client.
func NewMQTTPublisherWithClient(client Publisher, prefix string, qos byte, ev *warnings.Evaluator) *MQTTPublisher {
	if prefix == "" {
		prefix = "boomlift"
	}
	if ev == nil {
		ev = warnings.New()
	}
	return &MQTTPublisher{
		client:    client,
		prefix:    strings.TrimSuffix(prefix, "/"),
		qos:       qos,
		evaluator: ev,
		timeout:   5 * time.Second,
	}
}

// RecordTopic is the topic accepted records for an asset are published on.
func (p *MQTTPublisher) RecordTopic(assetID string) string {
	return p.prefix + "/records/" + assetID
}

// WarningTopic is the topic an asset's warning state is published on.
func (p *MQTTPublisher) WarningTopic(assetID string) string {
	return p.prefix + "/warnings/" + assetID
}

// Store implements Forwarder. Warning state is published retained so new
// subscribers see the current state of every asset.
func (p *MQTTPublisher) Store(ctx context.Context, rec models.MaintenanceRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return &Error{Transport: mqttName, Err: err}
	}
	if err := p.publish(ctx, p.RecordTopic(rec.AssetID), false, payload); err != nil {
		return err
	}

	state, err := json.Marshal(p.evaluator.Evaluate(rec))
	if err != nil {
		return &Error{Transport: mqttName, Err: err}
	}
	return p.publish(ctx, p.WarningTopic(rec.AssetID), true, state)
}

func (p *MQTTPublisher) publish(ctx context.Context, topic string, retained bool, payload []byte) error {
	token := p.client.Publish(topic, p.qos, retained, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return &Error{Transport: mqttName, Err: ctx.Err()}
	case <-time.After(p.timeout):
		return &Error{Transport: mqttName, Err: fmt.Errorf("publish to %s timed out", topic)}
	}
	if err := token.Error(); err != nil {
		return &Error{Transport: mqttName, Err: fmt.Errorf("failed to publish to topic %s: %w", topic, err)}
	}
	return nil
}
