package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter is the subset of *kafka.Writer used by the KafkaPublisher.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements the Publisher interface on a Kafka topic.
// Messages are keyed by transaction ID so every event of a transaction lands on the same partition.
type KafkaPublisher struct {
	writer KafkaWriter
}

// NewKafkaPublisher creates a publisher writing to topic on the given brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	})
}

// NewKafkaPublisherWithWriter creates a publisher on an existing writer.
func NewKafkaPublisherWithWriter(writer KafkaWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

var _ Publisher = (*KafkaPublisher)(nil)

// Publish writes the event to the topic.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for Kafka: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Transaction.Id),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
