// Package audit defines the structured audit trail written for every call
// that reaches the authorization guard.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one audited request
type Record struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Role      string    `json:"role,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Outcome   int       `json:"outcome"`
	RequestID string    `json:"request_id,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
}

// Anonymous is the actor recorded when no credential could be resolved
const Anonymous = "anonymous"

// NewRecord creates an audit record stamped with the current time
func NewRecord(actor, role, action, resource string, outcome int) *Record {
	if actor == "" {
		actor = Anonymous
	}
	return &Record{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Role:      role,
		Action:    action,
		Resource:  resource,
		Outcome:   outcome,
	}
}

// Succeeded reports whether the call completed with a non-error status
func (r *Record) Succeeded() bool {
	return r.Outcome < 400
}

// Filter narrows audit listings
type Filter struct {
	Actor   string
	Action  string
	Outcome *int
	Since   *time.Time
	Until   *time.Time
	Limit   int
}

// Matches reports whether the record satisfies the filter
func (f Filter) Matches(r *Record) bool {
	if f.Actor != "" && r.Actor != f.Actor {
		return false
	}
	if f.Action != "" && r.Action != f.Action {
		return false
	}
	if f.Outcome != nil && r.Outcome != *f.Outcome {
		return false
	}
	if f.Since != nil && r.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && r.Timestamp.After(*f.Until) {
		return false
	}
	return true
}

// Repository is the append-only audit log
type Repository interface {
	Append(ctx context.Context, r *Record) error
	List(ctx context.Context, filter Filter) ([]*Record, error)
}
