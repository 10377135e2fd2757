package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/propflow/backend/internal/domain/shared"
)

// ErrMeterNil is returned when a metrics constructor receives no meter
var ErrMeterNil = errors.New("NewWorkflowMetrics: meter cannot be nil")

// Email delivery outcomes
const (
	EmailOutcomeSent      = "sent"
	EmailOutcomeRetried   = "retried"
	EmailOutcomeExhausted = "exhausted"
)

// WorkflowMetrics counts what happens in the sale pipeline
type WorkflowMetrics struct {
	events        *Counter
	handlerRuns   *Counter
	emails        *Counter
	finalizations *Counter
	emailDuration *Histogram
}

// NewWorkflowMetrics registers the workflow instruments on meter
func NewWorkflowMetrics(meter metric.Meter) (*WorkflowMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	events, err := NewCounter(meter, "workflow_events_total", "Domain events delivered from the outbox", "{event}")
	if err != nil {
		return nil, err
	}
	handlerRuns, err := NewCounter(meter, "event_handler_runs_total", "Guarded handler runs by outcome, replays included", "{run}")
	if err != nil {
		return nil, err
	}
	emails, err := NewCounter(meter, "email_delivery_total", "Email delivery attempts by outcome", "{attempt}")
	if err != nil {
		return nil, err
	}
	finalizations, err := NewCounter(meter, "finalizations_total", "Loan accounts opened", "{account}")
	if err != nil {
		return nil, err
	}
	emailDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "email_delivery_duration_seconds",
		Description: "Time spent delivering one email including retries",
		Unit:        "s",
		Boundaries:  SmallDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &WorkflowMetrics{
		events:        events,
		handlerRuns:   handlerRuns,
		emails:        emails,
		finalizations: finalizations,
		emailDuration: emailDuration,
	}, nil
}

// RecordEvent counts one delivered domain event
func (m *WorkflowMetrics) RecordEvent(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.events.Inc(ctx, AttrEventType.String(eventType))
}

// RecordHandlerRun counts one run of a replay-guarded handler. outcome is
// processed, duplicate or failed.
func (m *WorkflowMetrics) RecordHandlerRun(ctx context.Context, handler, eventType, outcome string) {
	if m == nil {
		return
	}
	m.handlerRuns.Inc(ctx, AttrHandler.String(handler), AttrEventType.String(eventType), AttrOutcome.String(outcome))
}

// RecordEmail counts one delivery attempt outcome
func (m *WorkflowMetrics) RecordEmail(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.emails.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordEmailDuration records how long a delivery took end to end
func (m *WorkflowMetrics) RecordEmailDuration(ctx context.Context, d time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.emailDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome))
}

// RecordFinalization counts one opened loan account
func (m *WorkflowMetrics) RecordFinalization(ctx context.Context) {
	if m == nil {
		return
	}
	m.finalizations.Inc(ctx)
}

// WorkflowMetricsHandler counts every event published on the bus
type WorkflowMetricsHandler struct {
	metrics *WorkflowMetrics
}

// NewWorkflowMetricsHandler creates the handler
func NewWorkflowMetricsHandler(metrics *WorkflowMetrics) *WorkflowMetricsHandler {
	return &WorkflowMetricsHandler{metrics: metrics}
}

// EventTypes subscribes to all events
func (h *WorkflowMetricsHandler) EventTypes() []string {
	return nil
}

// Handle implements shared.EventHandler
func (h *WorkflowMetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.metrics.RecordEvent(ctx, event.EventType())
	return nil
}

var _ shared.EventHandler = (*WorkflowMetricsHandler)(nil)
