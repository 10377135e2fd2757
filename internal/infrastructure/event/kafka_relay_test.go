package event

import (
	"context"
	"errors"
	"testing"

	"github.com/propflow/backend/internal/domain/shared"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaRelayHandler_WritesTopicPerEventType(t *testing.T) {
	writer := &fakeWriter{}
	relay := NewKafkaRelayHandler(writer, NewEventSerializer(), "propflow.", zap.NewNop())
	event := newTestEvent("agreement.signed")

	require.NoError(t, relay.Handle(context.Background(), event))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "propflow.agreement.signed", msg.Topic)
	assert.Equal(t, "42", string(msg.Key))
	assert.Contains(t, string(msg.Value), `"data":"test data"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, event.EventID().String(), string(msg.Headers[0].Value))
	assert.Equal(t, "TestAggregate", string(msg.Headers[1].Value))
	assert.Empty(t, relay.EventTypes())

	require.NoError(t, relay.Close())
	assert.True(t, writer.closed)
}

func TestKafkaRelayHandler_WriteErrorIsReturned(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	relay := NewKafkaRelayHandler(writer, NewEventSerializer(), "propflow.", zap.NewNop())

	err := relay.Handle(context.Background(), newTestEvent("agreement.signed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestKafkaRelayHandler_ThroughBus(t *testing.T) {
	writer := &fakeWriter{}
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(NewKafkaRelayHandler(writer, NewEventSerializer(), "pf.", zap.NewNop()))

	events := []shared.DomainEvent{newTestEvent("stand.status_changed"), newTestEvent("mandate.assigned")}
	require.NoError(t, bus.Publish(context.Background(), events...))
	require.Len(t, writer.messages, 2)
	assert.Equal(t, "pf.mandate.assigned", writer.messages[1].Topic)
}
