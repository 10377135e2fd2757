// Package loanaccount holds the registry of loan accounts opened per realtor.
package loanaccount

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/propflow/backend/internal/domain/shared"
)

// CounterName is the counter loan-account numbers are drawn from
const CounterName = "loan_account_number"

// EventTypeLoanAccountOpened is raised when finalization allocates an account
const EventTypeLoanAccountOpened = "loan_account.opened"

// FormatNumber renders a counter value as a loan-account number
func FormatNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s%08d", prefix, n)
}

// Account is one opened loan account
type Account struct {
	Number            string    `json:"loan_account_number"`
	LoanApplicationID int64     `json:"loan_application_id"`
	AgreementID       int64     `json:"agreement_id"`
	StandID           int64     `json:"property_id"`
	AccountNumber     string    `json:"account_number,omitempty"`
	OpenedBy          string    `json:"opened_by"`
	OpenedAt          time.Time `json:"opened_at"`
}

// Ledger is the list of loan accounts belonging to one realtor
type Ledger struct {
	shared.BaseAggregateRoot
	Realtor   string    `json:"realtor" validate:"required"`
	Accounts  []Account `json:"accounts"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLedger creates an empty ledger
func NewLedger(realtor string) *Ledger {
	return &Ledger{Realtor: realtor, Accounts: []Account{}}
}

// Key returns the store key of the ledger
func (l *Ledger) Key() string {
	return l.Realtor
}

// Add appends an account. Numbers and loan applications are unique.
func (l *Ledger) Add(acc Account, actor string) error {
	for _, existing := range l.Accounts {
		if existing.Number == acc.Number {
			return shared.NewConflictError(fmt.Sprintf("Loan account %s already exists", acc.Number))
		}
		if existing.LoanApplicationID == acc.LoanApplicationID {
			return shared.NewConflictError(fmt.Sprintf("Loan application %d already has loan account %s", acc.LoanApplicationID, existing.Number))
		}
	}
	l.Accounts = append(l.Accounts, acc)
	l.UpdatedAt = acc.OpenedAt
	l.AddDomainEvent(&OpenedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeLoanAccountOpened, "LoanAccount", acc.Number, actor),
		Realtor:           l.Realtor,
		Number:            acc.Number,
		LoanApplicationID: acc.LoanApplicationID,
		AgreementID:       acc.AgreementID,
		StandID:           acc.StandID,
	})
	return nil
}

// OpenedEvent is raised for every loan account opened
type OpenedEvent struct {
	shared.BaseDomainEvent
	Realtor           string `json:"realtor"`
	Number            string `json:"loan_account_number"`
	LoanApplicationID int64  `json:"loan_application_id"`
	AgreementID       int64  `json:"agreement_id"`
	StandID           int64  `json:"property_id"`
}

// Repository persists ledgers keyed by realtor
type Repository interface {
	// Find returns the realtor's ledger or an empty one
	Find(ctx context.Context, realtor string) (*Ledger, error)
	Save(ctx context.Context, l *Ledger) error
	List(ctx context.Context) ([]*Ledger, error)
}

// ParseSequence extracts the counter value from a formatted number
func ParseSequence(prefix, number string) (int64, error) {
	if len(number) <= len(prefix) || number[:len(prefix)] != prefix {
		return 0, shared.NewValidationError("Loan account number has an unexpected format: " + number)
	}
	n, err := strconv.ParseInt(number[len(prefix):], 10, 64)
	if err != nil {
		return 0, shared.NewValidationError("Loan account number has an unexpected format: " + number)
	}
	return n, nil
}
