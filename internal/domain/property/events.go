package property

import (
	"strconv"

	"github.com/propflow/backend/internal/domain/shared"
)

// Aggregate type names used in events
const (
	AggregateTypeStand = "Stand"
)

// Event types emitted by the property domain
const (
	EventTypeStandStatusChanged = "stand.status_changed"
	EventTypeMandateAssigned    = "mandate.assigned"
	EventTypeMandateAccepted    = "mandate.accepted"
	EventTypeMandateRejected    = "mandate.rejected"
)

// StandStatusChangedEvent is raised on every stand status change, including the sale
type StandStatusChangedEvent struct {
	shared.BaseDomainEvent
	StandID           int64       `json:"stand_id"`
	ProjectID         int64       `json:"project_id"`
	From              StandStatus `json:"from"`
	To                StandStatus `json:"to"`
	LoanAccountNumber string      `json:"loan_account_number,omitempty"`
}

// NewStandStatusChangedEvent creates the event from the stand's current state
func NewStandStatusChangedEvent(s *Stand, from StandStatus, actor string) *StandStatusChangedEvent {
	return &StandStatusChangedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeStandStatusChanged, AggregateTypeStand, strconv.FormatInt(s.ID, 10), actor),
		StandID:           s.ID,
		ProjectID:         s.ProjectID,
		From:              from,
		To:                s.Status,
		LoanAccountNumber: s.LoanAccountNumber,
	}
}

// MandateEvent is raised when a mandate is assigned, accepted or rejected
type MandateEvent struct {
	shared.BaseDomainEvent
	StandID   int64         `json:"stand_id"`
	StandName string        `json:"stand_name"`
	Agent     string        `json:"agent"`
	Status    MandateStatus `json:"status"`
}

// NewMandateEvent creates a mandate event of the given type
func NewMandateEvent(eventType string, s *Stand, actor string) *MandateEvent {
	ev := &MandateEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeStand, strconv.FormatInt(s.ID, 10), actor),
		StandID:         s.ID,
		StandName:       s.Name,
	}
	if s.Mandate != nil {
		ev.Agent = s.Mandate.Agent
		ev.Status = s.Mandate.Status
	}
	return ev
}
