package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ukydev/boomlift-maintenance/internal/models"
)

const webhookName = "webhook"

// DispatchEvent is the body posted for every accepted record.
type DispatchEvent struct {
	EventType     string                   `json:"event_type"`
	ClientPayload models.MaintenanceRecord `json:"client_payload"`
}

// WebhookConfig configures a Webhook. Token is sent as a bearer token when set.
type WebhookConfig struct {
	URL        string
	Token      string
	EventType  string
	Timeout    time.Duration
	RetryCount int
}

// Webhook posts accepted records to an HTTP endpoint.
type Webhook struct {
	client    *resty.Client
	url       string
	eventType string
}

// NewWebhook creates a webhook forwarder.
func NewWebhook(cfg WebhookConfig) *Webhook {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.EventType == "" {
		cfg.EventType = "maintenance_record"
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	return &Webhook{client: client, url: cfg.URL, eventType: cfg.EventType}
}

// Store implements Forwarder.
func (w *Webhook) Store(ctx context.Context, rec models.MaintenanceRecord) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(DispatchEvent{EventType: w.eventType, ClientPayload: rec}).
		Post(w.url)
	if err != nil {
		return &Error{Transport: webhookName, Err: err}
	}
	if resp.IsError() {
		return &Error{Transport: webhookName, Err: fmt.Errorf("unexpected status %d", resp.StatusCode())}
	}
	return nil
}
