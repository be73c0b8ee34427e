package publish

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tansey/vitals-edge/internal/model"
)

// KafkaPublisher publishes records to a Kafka topic, keyed by device id so
// one device's samples stay on one partition. Kafka has no connection
// probe, so availability is inferred from the outcome of the last write.
type KafkaPublisher struct {
	writer   *kafka.Writer
	system   *kafka.Writer
	deviceID string
	timeout  time.Duration
	down     atomic.Bool
}

// NewKafkaPublisher creates a publisher writing to topic on the given
// brokers. System events go to systemTopic.
func NewKafkaPublisher(brokers []string, topic, systemTopic, deviceID string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
		system: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    systemTopic,
			Balancer: &kafka.Hash{},
		},
		deviceID: deviceID,
		timeout:  5 * time.Second,
	}
}

// Publish writes one vitals record.
func (p *KafkaPublisher) Publish(rec model.Record) error {
	payload, err := FormatPayload(p.deviceID, rec)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(p.deviceID),
		Value: payload,
	})
	p.down.Store(err != nil)
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// PublishSystem writes one system lifecycle event.
func (p *KafkaPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(p.deviceID, event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.system.WriteMessages(ctx, kafka.Message{
		Key:   []byte(p.deviceID),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("kafka write system: %w", err)
	}
	return nil
}

// IsAvailable reports true until a write fails, and again after the next
// success. A freshly constructed publisher is assumed available so the
// first drain attempt is not suppressed.
func (p *KafkaPublisher) IsAvailable() bool {
	return !p.down.Load()
}

// Close closes both writers.
func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return p.system.Close()
}
