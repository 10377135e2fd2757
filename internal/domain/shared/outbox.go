package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of a recorded event
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// DeliveryPolicy bounds how often a recorded event is offered to the bus
// and how long the relay waits between attempts.
type DeliveryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultDeliveryPolicy applies when the event config leaves it unset
var DefaultDeliveryPolicy = DeliveryPolicy{
	MaxAttempts: 5,
	BaseBackoff: time.Second,
	MaxBackoff:  5 * time.Minute,
}

// Normalize fills zero fields from DefaultDeliveryPolicy
func (p DeliveryPolicy) Normalize() DeliveryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultDeliveryPolicy.MaxAttempts
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = DefaultDeliveryPolicy.BaseBackoff
	}
	if p.MaxBackoff < p.BaseBackoff {
		p.MaxBackoff = DefaultDeliveryPolicy.MaxBackoff
	}
	return p
}

// Delay returns the wait before attempt n+1, doubling from BaseBackoff
// and capped at MaxBackoff.
func (p DeliveryPolicy) Delay(failures int) time.Duration {
	p = p.Normalize()
	delay := p.BaseBackoff
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return delay
}

// OutboxEntry is a domain event recorded in the same transaction as the
// change that raised it, waiting for the relay.
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   string
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry records event with the attempt budget of policy
func NewOutboxEntry(event DomainEvent, payload []byte, policy DeliveryPolicy) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    policy.Normalize().MaxAttempts,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Resource names the aggregate the entry belongs to, e.g. "Stand/7"
func (e *OutboxEntry) Resource() string {
	return e.AggregateType + "/" + e.AggregateID
}

// CanRetry reports whether a failed entry still has attempts left
func (e *OutboxEntry) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

// MarkProcessing claims a pending or failed entry for delivery
func (e *OutboxEntry) MarkProcessing() error {
	switch e.Status {
	case OutboxStatusPending, OutboxStatusFailed:
	default:
		return NewConflictError(fmt.Sprintf("Outbox entry %s is %s and cannot be claimed", e.ID, e.Status))
	}
	e.Status = OutboxStatusProcessing
	e.UpdatedAt = time.Now()
	return nil
}

// MarkSent records a successful hand-off to the bus
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.LastError = ""
	e.NextRetryAt = nil
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records cause and schedules the next attempt using
// DefaultDeliveryPolicy's backoff. Entries without attempts left go dead.
func (e *OutboxEntry) MarkFailed(cause string) {
	now := time.Now()
	e.RetryCount++
	e.LastError = cause
	e.UpdatedAt = now

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := now.Add(DefaultDeliveryPolicy.Delay(e.RetryCount))
	e.NextRetryAt = &next
}

// IsDead reports whether the entry ran out of attempts
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// ResetForRetry requeues a dead entry with a fresh attempt budget
func (e *OutboxEntry) ResetForRetry() error {
	if !e.IsDead() {
		return NewConflictError(fmt.Sprintf("Outbox entry %s is %s, only dead entries can be retried", e.ID, e.Status))
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now()
	return nil
}

// OutboxRepository persists outbox entries for the relay and the admin API
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	// MarkProcessing claims entries and returns only those this caller won
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
