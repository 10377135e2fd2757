// Package customer holds the customer profile aggregated around a deposit
// account number.
package customer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/domain/shared"
)

// Profile links an account number to the submissions and agreements that
// belong to the same customer.
type Profile struct {
	shared.BaseAggregateRoot
	AccountNumber       string              `json:"account_number" validate:"required,max=64"`
	AccountOpeningID    *int64              `json:"account_opening_id"`
	Realtor             string              `json:"realtor,omitempty"`
	LoanApplicationIDs  []int64             `json:"loan_application_ids"`
	AgreementIDs        []int64             `json:"agreement_ids"`
	Documents           []document.Document `json:"documents"`
	LastInboundEmailAt  *time.Time          `json:"last_inbound_email_at"`
	DeletionRequested   bool                `json:"deletion_requested"`
	DeletionRequestedBy *string             `json:"deletion_requested_by"`
	DeletionRequestedAt *time.Time          `json:"deletion_requested_at"`
	DeletionApprovedBy  *string             `json:"deletion_approved_by"`
	DeletionApprovedAt  *time.Time          `json:"deletion_approved_at"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// NewProfile creates an empty profile for the account number
func NewProfile(accountNumber string) (*Profile, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, shared.NewValidationError("Account number is required")
	}
	now := time.Now().UTC()
	return &Profile{
		AccountNumber:      accountNumber,
		LoanApplicationIDs: []int64{},
		AgreementIDs:       []int64{},
		Documents:          []document.Document{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// Key returns the store key of the profile
func (p *Profile) Key() string {
	return p.AccountNumber
}

// Links is the set of identifiers a profile aggregates
type Links struct {
	AccountOpeningID   int64
	Realtor            string
	LoanApplicationIDs []int64
	AgreementIDs       []int64
}

// Refresh replaces the linked identifiers. Lists are stored sorted and unique.
func (p *Profile) Refresh(links Links) {
	id := links.AccountOpeningID
	p.AccountOpeningID = &id
	p.Realtor = links.Realtor
	p.LoanApplicationIDs = sortedUnique(links.LoanApplicationIDs)
	p.AgreementIDs = sortedUnique(links.AgreementIDs)
	p.UpdatedAt = time.Now().UTC()
}

// RecordInboundEmail stamps the time of the latest processed inbound message
func (p *Profile) RecordInboundEmail(receivedAt time.Time) {
	at := receivedAt.UTC()
	p.LastInboundEmailAt = &at
	p.UpdatedAt = time.Now().UTC()
}

// AttachDocuments appends documents received for this customer
func (p *Profile) AttachDocuments(docs ...document.Document) {
	for _, d := range docs {
		if !d.IsEmpty() {
			p.Documents = append(p.Documents, d)
		}
	}
	p.UpdatedAt = time.Now().UTC()
}

// RequestDeletion marks the profile for deletion. Repeated requests keep the
// original requester.
func (p *Profile) RequestDeletion(actor string) {
	if p.DeletionRequested {
		return
	}
	now := time.Now().UTC()
	p.DeletionRequested = true
	p.DeletionRequestedBy = &actor
	p.DeletionRequestedAt = &now
	p.UpdatedAt = now
}

// ApproveDeletion approves an outstanding deletion request
func (p *Profile) ApproveDeletion(actor string) error {
	if !p.DeletionRequested {
		return shared.NewConflictError(fmt.Sprintf("No deletion request is on file for profile %s", p.AccountNumber))
	}
	if p.DeletionApprovedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	p.DeletionApprovedBy = &actor
	p.DeletionApprovedAt = &now
	p.UpdatedAt = now
	return nil
}

// IsDeletionApproved reports whether the profile may be deleted
func (p *Profile) IsDeletionApproved() bool {
	return p.DeletionRequested && p.DeletionApprovedAt != nil
}

func sortedUnique(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ProfileRepository persists customer profiles
type ProfileRepository interface {
	FindByAccountNumber(ctx context.Context, accountNumber string) (*Profile, error)
	// Save inserts a new profile or updates an existing one with version check
	Save(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, accountNumber string) error
	List(ctx context.Context) ([]*Profile, error)
}
