package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/propflow/backend/internal/domain/shared"
)

// Run outcomes reported by IdempotentHandler
const (
	RunProcessed = "processed"
	RunDuplicate = "duplicate"
	RunFailed    = "failed"
)

// RunRecorder receives the outcome of every guarded run
type RunRecorder interface {
	RecordHandlerRun(ctx context.Context, handler, eventType, outcome string)
}

type discardRuns struct{}

func (discardRuns) RecordHandlerRun(context.Context, string, string, string) {}

// IdempotentHandler lets a side effect run once per event even though the
// outbox redelivers an entry whenever any of its handlers fails. Keys are
// written only after success, so a failed run is attempted again.
type IdempotentHandler struct {
	name     string
	handler  shared.EventHandler
	store    shared.IdempotencyStore
	config   shared.IdempotencyConfig
	recorder RunRecorder
	logger   *zap.Logger
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the key TTL or switches the guard off
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithRunRecorder reports run outcomes to r
func WithRunRecorder(r RunRecorder) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if r != nil {
			h.recorder = r
		}
	}
}

// NewIdempotentHandler guards handler under name. Two guarded handlers of
// the same event need distinct names.
func NewIdempotentHandler(name string, handler shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	h := &IdempotentHandler{
		name:     name,
		handler:  handler,
		store:    store,
		config:   shared.DefaultIdempotencyConfig(),
		recorder: discardRuns{},
		logger:   logger.With(zap.String("handler", name)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes returns the event types of the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Key is the store key recording that this handler processed event
func (h *IdempotentHandler) Key(event shared.DomainEvent) string {
	return h.name + ":" + event.EventID().String()
}

// Handle implements shared.EventHandler. A store outage never blocks
// delivery: the event is handled and may repeat on a later replay.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	key := h.Key(event)
	if h.seen(ctx, key) {
		h.logger.Debug("Skipping replayed event",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()))
		h.recorder.RecordHandlerRun(ctx, h.name, event.EventType(), RunDuplicate)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.recorder.RecordHandlerRun(ctx, h.name, event.EventType(), RunFailed)
		return err
	}
	h.recorder.RecordHandlerRun(ctx, h.name, event.EventType(), RunProcessed)

	if _, err := h.store.MarkProcessed(ctx, key, h.config.TTL); err != nil {
		h.logger.Warn("Could not record processed event, a replay will repeat it",
			zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (h *IdempotentHandler) seen(ctx context.Context, key string) bool {
	done, err := h.store.IsProcessed(ctx, key)
	if err != nil {
		h.logger.Warn("Idempotency store unavailable, handling event anyway",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return done
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
