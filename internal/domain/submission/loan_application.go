package submission

import (
	"fmt"
	"strings"
	"time"

	"github.com/propflow/backend/internal/domain/requirement"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Decision is the outcome of a loan application
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

var (
	declineKeywords  = []string{"not approved", "disapproved", "declined", "rejected", "denied", "unsuccessful"}
	approvalKeywords = []string{"approved", "accepted", "granted"}
)

// ParseDecision maps free text, typically an email subject or body, to a
// Decision. Decline phrases win over approval phrases so that "not approved"
// is never read as an approval.
func ParseDecision(text string) (Decision, error) {
	lower := strings.ToLower(text)
	for _, kw := range declineKeywords {
		if strings.Contains(lower, kw) {
			return DecisionRejected, nil
		}
	}
	for _, kw := range approvalKeywords {
		if strings.Contains(lower, kw) {
			return DecisionApproved, nil
		}
	}
	return "", shared.NewValidationError("Could not determine a loan decision from the message")
}

// LoanApplication is a request for bond finance, tied to an opened account
type LoanApplication struct {
	Header
	AccountOpeningID  int64            `json:"account_id" validate:"required,gt=0"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	Decision          *Decision        `json:"decision"`
	DecidedBy         string           `json:"decided_by,omitempty"`
	DecidedAt         *time.Time       `json:"decided_at,omitempty"`
	AgreementID       *int64           `json:"agreement_id,omitempty"`
	LoanAccountNumber *string          `json:"loan_account_number"`
}

// WorkflowType implements Submission
func (l *LoanApplication) WorkflowType() requirement.WorkflowType {
	return requirement.WorkflowLoanApplication
}

// Sanitize implements Submission
func (l *LoanApplication) Sanitize() {
	l.sanitize()
	l.Decision = nil
	l.DecidedBy = ""
	l.DecidedAt = nil
	l.AgreementID = nil
	l.LoanAccountNumber = nil
}

// IsDecided reports whether a decision has been recorded
func (l *LoanApplication) IsDecided() bool {
	return l.Decision != nil
}

// IsApproved reports whether the application was approved
func (l *LoanApplication) IsApproved() bool {
	return l.Decision != nil && *l.Decision == DecisionApproved
}

// Decide records the loan decision. It can only happen once; a rejection
// needs a reason.
func (l *LoanApplication) Decide(decision Decision, reason, actor string) error {
	if l.IsDecided() {
		return shared.NewConflictError(fmt.Sprintf("Loan application %d has already been decided", l.ID))
	}
	if l.Status.IsTerminal() {
		return shared.NewConflictError(fmt.Sprintf("Loan application %d is %s", l.ID, l.Status))
	}
	reason = strings.TrimSpace(reason)
	switch decision {
	case DecisionApproved:
		l.Status = StatusCompleted
	case DecisionRejected:
		if reason == "" {
			return shared.NewValidationError("A reason is required to reject a loan application")
		}
		l.Status = StatusRejected
	default:
		return shared.NewValidationError("Unknown loan decision: " + string(decision))
	}
	now := time.Now().UTC()
	l.Decision = &decision
	if reason != "" {
		l.Reason = &reason
	}
	l.DecidedBy = actor
	l.DecidedAt = &now
	l.StatusChangedBy = actor
	l.UpdatedAt = now
	l.AddDomainEvent(NewLoanDecidedEvent(l, actor))
	return nil
}

// AttachAgreement links the agreement drafted for an approved application
func (l *LoanApplication) AttachAgreement(agreementID int64) error {
	if !l.IsApproved() {
		return shared.NewConflictError(fmt.Sprintf("Loan application %d has not been approved", l.ID))
	}
	if l.AgreementID != nil && *l.AgreementID != agreementID {
		return shared.NewConflictError(fmt.Sprintf("Loan application %d already has agreement %d", l.ID, *l.AgreementID))
	}
	l.AgreementID = &agreementID
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// AssignLoanAccount records the registry number issued at finalization
func (l *LoanApplication) AssignLoanAccount(number string) error {
	if l.LoanAccountNumber != nil {
		return shared.NewConflictError(fmt.Sprintf("Loan application %d already has loan account %s", l.ID, *l.LoanAccountNumber))
	}
	l.LoanAccountNumber = &number
	l.UpdatedAt = time.Now().UTC()
	return nil
}
