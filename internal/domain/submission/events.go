package submission

import (
	"github.com/propflow/backend/internal/domain/requirement"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types emitted by submissions
const (
	EventTypeSubmissionCreated       = "submission.created"
	EventTypeSubmissionApproved      = "submission.approved"
	EventTypeSubmissionStatusChanged = "submission.status_changed"
	EventTypeAccountOpened           = "account_opening.opened"
	EventTypeDepositRecorded         = "account_opening.deposit_recorded"
	EventTypeAccountOpeningCompleted = "account_opening.completed"
	EventTypeLoanDecided             = "loan_application.decided"
)

// SubmissionEvent carries enough to locate the submission again. Consumers
// reload it for documents rather than shipping attachments through the outbox.
type SubmissionEvent struct {
	shared.BaseDomainEvent
	WorkflowType requirement.WorkflowType `json:"workflow_type"`
	SubmissionID int64                    `json:"submission_id"`
	Realtor      string                   `json:"realtor"`
	Status       Status                   `json:"status"`
	Reason       string                   `json:"reason,omitempty"`
}

// NewSubmissionEvent creates a submission event of the given type
func NewSubmissionEvent(eventType string, s Submission, actor string) *SubmissionEvent {
	h := s.Head()
	ev := &SubmissionEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, string(s.WorkflowType()), s.Key(), actor),
		WorkflowType:    s.WorkflowType(),
		SubmissionID:    h.ID,
		Realtor:         h.Realtor,
		Status:          h.Status,
	}
	if h.Reason != nil {
		ev.Reason = *h.Reason
	}
	return ev
}

// AccountOpenedEvent is raised when an account number is assigned
type AccountOpenedEvent struct {
	SubmissionEvent
	AccountNumber    string          `json:"account_number"`
	DepositThreshold decimal.Decimal `json:"deposit_threshold"`
}

// NewAccountOpenedEvent creates the event from the opened account
func NewAccountOpenedEvent(a *AccountOpening, actor string) *AccountOpenedEvent {
	ev := &AccountOpenedEvent{SubmissionEvent: *NewSubmissionEvent(EventTypeAccountOpened, a, actor)}
	if a.AccountNumber != nil {
		ev.AccountNumber = *a.AccountNumber
	}
	if a.DepositThreshold != nil {
		ev.DepositThreshold = *a.DepositThreshold
	}
	return ev
}

// DepositRecordedEvent is raised for every deposit
type DepositRecordedEvent struct {
	SubmissionEvent
	Amount decimal.Decimal `json:"amount"`
	Total  decimal.Decimal `json:"total"`
}

// NewDepositRecordedEvent creates the event after the deposit was applied
func NewDepositRecordedEvent(a *AccountOpening, amount decimal.Decimal, actor string) *DepositRecordedEvent {
	return &DepositRecordedEvent{
		SubmissionEvent: *NewSubmissionEvent(EventTypeDepositRecorded, a, actor),
		Amount:          amount,
		Total:           a.DepositTotal,
	}
}

// LoanDecidedEvent is raised once a loan application is approved or rejected
type LoanDecidedEvent struct {
	SubmissionEvent
	Decision         Decision `json:"decision"`
	AccountOpeningID int64    `json:"account_id"`
}

// NewLoanDecidedEvent creates the event from the decided application
func NewLoanDecidedEvent(l *LoanApplication, actor string) *LoanDecidedEvent {
	ev := &LoanDecidedEvent{
		SubmissionEvent:  *NewSubmissionEvent(EventTypeLoanDecided, l, actor),
		AccountOpeningID: l.AccountOpeningID,
	}
	if l.Decision != nil {
		ev.Decision = *l.Decision
	}
	return ev
}
