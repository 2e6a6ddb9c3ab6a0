// Package events delivers catalog lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TitanMusic/core/catalog"
	"TitanMusic/logger"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one JSON message per event, keyed by track id so
// events of the same track stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a producer for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			MaxAttempts:            3,
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

// Publish implements catalog.EventPublisher.
func (p *KafkaPublisher) Publish(ctx context.Context, evt catalog.Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", evt.Type, err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.TrackID),
		Value: value,
		Time:  evt.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write %s event to %s: %w", evt.Type, p.topic, err)
	}
	return nil
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Consumer reads catalog events back from Kafka.
type Consumer struct {
	reader  *kafka.Reader
	backoff time.Duration
}

// NewConsumer joins groupID on topic. An empty groupID reads the single
// partition 0 from the newest offset.
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  time.Second,
	}
	if groupID == "" {
		cfg.StartOffset = kafka.LastOffset
	}
	return &Consumer{reader: kafka.NewReader(cfg), backoff: 2 * time.Second}
}

// Consume calls handle for every decodable event until ctx is done.
func (c *Consumer) Consume(ctx context.Context, handle func(catalog.Event) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("failed to read event", logger.ErrorField(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff):
			}
			continue
		}

		evt, err := Decode(msg.Value)
		if err != nil {
			logger.Warn("skipping malformed event",
				logger.String("key", string(msg.Key)), logger.ErrorField(err))
			continue
		}
		if err := handle(evt); err != nil {
			logger.Error("event handler failed",
				logger.String("trackId", evt.TrackID), logger.ErrorField(err))
		}
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Decode parses a message value written by KafkaPublisher.
func Decode(value []byte) (catalog.Event, error) {
	var evt catalog.Event
	if err := json.Unmarshal(value, &evt); err != nil {
		return evt, err
	}
	if evt.Type == "" || evt.TrackID == "" {
		return evt, fmt.Errorf("event is missing type or track id")
	}
	return evt, nil
}
