package property

import (
	"time"
)

// MandateStatus is the response state of a mandate
type MandateStatus string

const (
	MandatePending  MandateStatus = "pending"
	MandateAccepted MandateStatus = "accepted"
	MandateRejected MandateStatus = "rejected"
)

// Mandate authorizes one agent to market a stand
type Mandate struct {
	Agent       string        `json:"agent" validate:"required"`
	Document    string        `json:"document,omitempty"`
	Status      MandateStatus `json:"status" validate:"required,oneof=pending accepted rejected"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
	AssignedBy  string        `json:"assigned_by,omitempty"`
	AssignedAt  time.Time     `json:"assigned_at"`
	RespondedAt *time.Time    `json:"responded_at,omitempty"`
	Reason      string        `json:"reason,omitempty"`
}

// IsExpired reports whether the mandate lapsed before now
func (m *Mandate) IsExpired(now time.Time) bool {
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}

// MandateAction names an entry in the mandate history
type MandateAction string

const (
	ActionAssigned   MandateAction = "assigned"
	ActionReassigned MandateAction = "reassigned"
	ActionAccepted   MandateAction = "accepted"
	ActionRejected   MandateAction = "rejected"
)

// MandateHistoryEntry is one append-only record of a mandate change
type MandateHistoryEntry struct {
	StandID    int64         `json:"stand_id"`
	Action     MandateAction `json:"action"`
	Agent      string        `json:"agent"`
	Status     MandateStatus `json:"status"`
	Actor      string        `json:"actor"`
	Note       string        `json:"note,omitempty"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// NewMandateHistoryEntry snapshots the stand's current mandate
func NewMandateHistoryEntry(s *Stand, action MandateAction, actor string) MandateHistoryEntry {
	entry := MandateHistoryEntry{
		StandID:    s.ID,
		Action:     action,
		Actor:      actor,
		RecordedAt: time.Now().UTC(),
	}
	if s.Mandate != nil {
		entry.Agent = s.Mandate.Agent
		entry.Status = s.Mandate.Status
		entry.Note = s.Mandate.Reason
	}
	return entry
}
