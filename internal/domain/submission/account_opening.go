package submission

import (
	"fmt"
	"strings"
	"time"

	"github.com/propflow/backend/internal/domain/requirement"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Deposit is a single payment recorded against an opened account
type Deposit struct {
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference,omitempty"`
	RecordedBy string          `json:"recorded_by"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// AccountOpening is a request to open a deposit account for a buyer.
// It completes once the deposits reach the threshold and never reverts.
type AccountOpening struct {
	Header
	AccountNumber    *string          `json:"account_number"`
	DepositThreshold *decimal.Decimal `json:"deposit_threshold"`
	Deposits         []Deposit        `json:"deposits"`
	DepositTotal     decimal.Decimal  `json:"deposit_total"`
	ApprovedBy       string           `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time       `json:"approved_at,omitempty"`
	OpenedAt         *time.Time       `json:"opened_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

// WorkflowType implements Submission
func (a *AccountOpening) WorkflowType() requirement.WorkflowType {
	return requirement.WorkflowAccountOpening
}

// Sanitize implements Submission
func (a *AccountOpening) Sanitize() {
	a.sanitize()
	a.AccountNumber = nil
	a.DepositThreshold = nil
	a.Deposits = []Deposit{}
	a.DepositTotal = decimal.Zero
	a.ApprovedBy = ""
	a.ApprovedAt = nil
	a.OpenedAt = nil
	a.CompletedAt = nil
}

// Approve records the manager approval of a freshly submitted request
func (a *AccountOpening) Approve(actor string) error {
	if a.Status != StatusSubmitted {
		return shared.NewConflictError(fmt.Sprintf("Account opening %d cannot be approved while %s", a.ID, a.Status))
	}
	now := time.Now().UTC()
	a.Status = StatusManagerApproved
	a.StatusChangedBy = actor
	a.ApprovedBy = actor
	a.ApprovedAt = &now
	a.UpdatedAt = now
	a.AddDomainEvent(NewSubmissionEvent(EventTypeSubmissionApproved, a, actor))
	return nil
}

// Reject closes a request that has not been opened yet
func (a *AccountOpening) Reject(reason, actor string) error {
	if a.AccountNumber != nil {
		return shared.NewConflictError(fmt.Sprintf("Account opening %d has already been opened", a.ID))
	}
	if err := a.ChangeStatus(StatusRejected, reason, actor); err != nil {
		return err
	}
	a.AddDomainEvent(NewSubmissionEvent(EventTypeSubmissionStatusChanged, a, actor))
	return nil
}

// Open assigns the account number and the deposit threshold
func (a *AccountOpening) Open(accountNumber string, threshold decimal.Decimal, actor string) error {
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return shared.NewValidationError("Account number is required")
	}
	if !threshold.IsPositive() {
		return shared.NewValidationError("Deposit threshold must be greater than zero")
	}
	if a.AccountNumber != nil {
		return shared.NewConflictError(fmt.Sprintf("Account opening %d has already been opened", a.ID))
	}
	if a.Status != StatusSubmitted && a.Status != StatusManagerApproved {
		return shared.NewConflictError(fmt.Sprintf("Account opening %d cannot be opened while %s", a.ID, a.Status))
	}
	now := time.Now().UTC()
	a.AccountNumber = &accountNumber
	a.DepositThreshold = &threshold
	a.Status = StatusInProgress
	a.StatusChangedBy = actor
	a.OpenedAt = &now
	a.UpdatedAt = now
	a.AddDomainEvent(NewAccountOpenedEvent(a, actor))
	return nil
}

// RecordDeposit appends a deposit and completes the request once the
// running total reaches the threshold.
func (a *AccountOpening) RecordDeposit(amount decimal.Decimal, reference, actor string) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("Deposit amount must be greater than zero")
	}
	if a.AccountNumber == nil || a.DepositThreshold == nil {
		return shared.NewConflictError(fmt.Sprintf("Account opening %d must be opened before deposits are recorded", a.ID))
	}
	if a.Status == StatusRejected {
		return shared.NewConflictError(fmt.Sprintf("Account opening %d has been rejected", a.ID))
	}
	now := time.Now().UTC()
	a.Deposits = append(a.Deposits, Deposit{
		Amount:     amount,
		Reference:  strings.TrimSpace(reference),
		RecordedBy: actor,
		RecordedAt: now,
	})
	a.DepositTotal = a.DepositTotal.Add(amount)
	a.UpdatedAt = now
	a.AddDomainEvent(NewDepositRecordedEvent(a, amount, actor))

	if a.Status != StatusCompleted && a.DepositTotal.GreaterThanOrEqual(*a.DepositThreshold) {
		a.Status = StatusCompleted
		a.StatusChangedBy = actor
		a.CompletedAt = &now
		a.AddDomainEvent(NewSubmissionEvent(EventTypeAccountOpeningCompleted, a, actor))
	}
	return nil
}

// IsOpened reports whether an account number has been assigned
func (a *AccountOpening) IsOpened() bool {
	return a.AccountNumber != nil
}
