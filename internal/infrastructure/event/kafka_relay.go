package event

import (
	"context"
	"fmt"
	"time"

	"github.com/propflow/backend/internal/domain/shared"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of kafka.Writer the relay needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaRelayHandler forwards every domain event to a Kafka topic named
// <prefix><event type>, keyed by aggregate id so one aggregate stays ordered
type KafkaRelayHandler struct {
	writer      MessageWriter
	serializer  *EventSerializer
	topicPrefix string
	logger      *zap.Logger
}

// NewKafkaWriter builds the producer used by the relay
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}
}

// NewKafkaRelayHandler creates the relay
func NewKafkaRelayHandler(writer MessageWriter, serializer *EventSerializer, topicPrefix string, logger *zap.Logger) *KafkaRelayHandler {
	return &KafkaRelayHandler{
		writer:      writer,
		serializer:  serializer,
		topicPrefix: topicPrefix,
		logger:      logger.Named("kafka_relay"),
	}
}

// EventTypes is empty: the relay subscribes to every event
func (h *KafkaRelayHandler) EventTypes() []string {
	return nil
}

// Handle writes the event; a failed write is returned so the outbox retries it
func (h *KafkaRelayHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := h.serializer.Serialize(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: h.topicPrefix + event.EventType(),
		Key:   []byte(event.AggregateID()),
		Value: payload,
		Time:  event.OccurredAt(),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID().String())},
			{Key: "aggregate_type", Value: []byte(event.AggregateType())},
		},
	}
	if err := h.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("relay %s to kafka: %w", event.EventType(), err)
	}
	h.logger.Debug("event relayed",
		zap.String("topic", msg.Topic),
		zap.String("event_id", event.EventID().String()),
	)
	return nil
}

// Close closes the underlying writer
func (h *KafkaRelayHandler) Close() error {
	return h.writer.Close()
}

var _ shared.EventHandler = (*KafkaRelayHandler)(nil)
