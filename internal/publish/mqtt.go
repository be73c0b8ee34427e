package publish

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/tansey/vitals-edge/internal/model"
)

// MQTTPublisher publishes to an MQTT broker. It is the primary sink: the
// broker connection state doubles as the connectivity signal for the sync
// scheduler.
type MQTTPublisher struct {
	client   paho.Client
	deviceID string
}

// NewMQTTPublisher creates a publisher connected to the given broker.
// The client auto-reconnects; publish attempts while disconnected fail
// fast and are retried by the sync scheduler.
func NewMQTTPublisher(broker, deviceID string) (*MQTTPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("vitals-edge-" + deviceID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &MQTTPublisher{
		client:   client,
		deviceID: deviceID,
	}, nil
}

// Publish sends a vitals record to the broker.
func (p *MQTTPublisher) Publish(rec model.Record) error {
	payload, err := FormatPayload(p.deviceID, rec)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0: redelivery is the sync scheduler's job, not the broker's.
	token := p.client.Publish(Topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the broker.
func (p *MQTTPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(p.deviceID, event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1: a shutdown notice must survive a flaky link.
	token := p.client.Publish(TopicSystem, 1, event.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsAvailable reports whether the broker connection is up.
func (p *MQTTPublisher) IsAvailable() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(1000) // milliseconds
	return nil
}
