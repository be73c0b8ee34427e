package publish

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tansey/vitals-edge/internal/model"
)

// HTTPPublisher posts records to a collector HTTP API. Like Kafka, HTTP
// has no standing connection, so availability is inferred from the outcome
// of the last request.
type HTTPPublisher struct {
	client   *resty.Client
	deviceID string
	down     atomic.Bool
}

// NewHTTPPublisher creates a publisher posting to the collector at
// baseURL: records to /records, system events to /events.
func NewHTTPPublisher(baseURL, deviceID string) *HTTPPublisher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &HTTPPublisher{
		client:   client,
		deviceID: deviceID,
	}
}

// Publish posts one vitals record.
func (p *HTTPPublisher) Publish(rec model.Record) error {
	payload, err := FormatPayload(p.deviceID, rec)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	resp, err := p.client.R().SetBody(payload).Post("/records")
	p.down.Store(err != nil || resp.IsError())
	if err != nil {
		return fmt.Errorf("post record: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("post record: collector returned %s", resp.Status())
	}
	return nil
}

// PublishSystem posts one system lifecycle event.
func (p *HTTPPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(p.deviceID, event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	resp, err := p.client.R().SetBody(payload).Post("/events")
	if err != nil {
		return fmt.Errorf("post system event: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("post system event: collector returned %s", resp.Status())
	}
	return nil
}

// IsAvailable reports true until a request fails, and again after the
// next success.
func (p *HTTPPublisher) IsAvailable() bool {
	return !p.down.Load()
}

// Close is a no-op; resty keeps no standing connection worth tearing down.
func (p *HTTPPublisher) Close() error {
	return nil
}
