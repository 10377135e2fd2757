// Package agreement models the dual-signed loan agreement between the bank
// and the customer represented by a realtor.
package agreement

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/domain/shared"
)

// Status of an agreement. It is always derived from the signatures present.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPartiallySigned Status = "partially_signed"
	StatusSigned          Status = "signed"
)

// Party identifies a signing side
type Party string

const (
	PartyCustomer Party = "customer"
	PartyBank     Party = "bank"
	PartySystem   Party = "system"
)

// Audit actions
const (
	ActionCreated  = "created"
	ActionSigned   = "signed"
	ActionResigned = "resigned"
	ActionUploaded = "document_uploaded"
)

// Version is one entry of the document history
type Version struct {
	Number     int               `json:"version"`
	Document   document.Document `json:"document"`
	Party      Party             `json:"party"`
	UploadedBy string            `json:"uploaded_by"`
	UploadedAt time.Time         `json:"uploaded_at"`
}

// AuditEntry records a single mutation of the agreement
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Party     Party     `json:"party,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Agreement links an approved loan application to the stand being financed
type Agreement struct {
	shared.BaseAggregateRoot
	ID                  int64             `json:"id" validate:"required,gt=0"`
	LoanApplicationID   int64             `json:"loan_application_id" validate:"required,gt=0"`
	PropertyID          int64             `json:"property_id" validate:"required,gt=0"`
	Realtor             string            `json:"realtor" validate:"required"`
	AccountNumber       string            `json:"account_number,omitempty"`
	Status              Status            `json:"status" validate:"required,oneof=draft partially_signed signed"`
	Document            document.Document `json:"document"`
	Versions            []Version         `json:"versions"`
	CustomerDocumentURL *string           `json:"customer_document_url"`
	CustomerSignedBy    string            `json:"customer_signed_by,omitempty"`
	CustomerSignedAt    *time.Time        `json:"customer_signed_at,omitempty"`
	BankDocumentURL     *string           `json:"bank_document_url"`
	BankSignedBy        string            `json:"bank_signed_by,omitempty"`
	BankSignedAt        *time.Time        `json:"bank_signed_at,omitempty"`
	AuditLog            []AuditEntry      `json:"audit_log"`
	CreatedBy           string            `json:"created_by"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// Draft holds what is needed to render a new agreement
type Draft struct {
	ID                int64
	LoanApplicationID int64
	PropertyID        int64
	StandName         string
	ProjectName       string
	Realtor           string
	AccountNumber     string
	LoanAmount        string
}

// NewDraft creates a DRAFT agreement with the rendered document as version 1
func NewDraft(d Draft, actor string) (*Agreement, error) {
	if d.ID <= 0 || d.LoanApplicationID <= 0 {
		return nil, shared.NewValidationError("Agreement and loan application identifiers are required")
	}
	if d.PropertyID <= 0 {
		return nil, shared.NewValidationError("An agreement needs a property")
	}
	now := time.Now().UTC()
	text := RenderDraft(d)
	doc := document.Document{
		Filename:    fmt.Sprintf("agreement-%d.txt", d.ID),
		ContentType: "text/plain; charset=utf-8",
		Content:     base64.StdEncoding.EncodeToString([]byte(text)),
		Size:        len(text),
	}
	a := &Agreement{
		ID:                d.ID,
		LoanApplicationID: d.LoanApplicationID,
		PropertyID:        d.PropertyID,
		Realtor:           d.Realtor,
		AccountNumber:     d.AccountNumber,
		Status:            StatusDraft,
		Document:          doc,
		Versions: []Version{{
			Number:     1,
			Document:   doc,
			Party:      PartySystem,
			UploadedBy: actor,
			UploadedAt: now,
		}},
		AuditLog: []AuditEntry{{
			Timestamp: now,
			Actor:     actor,
			Action:    ActionCreated,
			Detail:    fmt.Sprintf("Draft generated for loan application %d", d.LoanApplicationID),
		}},
		CreatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	a.AddDomainEvent(NewAgreementEvent(EventTypeAgreementCreated, a, "", actor))
	return a, nil
}

// RenderDraft produces the plain-text agreement body
func RenderDraft(d Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "LOAN AGREEMENT #%d\n\n", d.ID)
	fmt.Fprintf(&b, "Loan application: #%d\n", d.LoanApplicationID)
	if d.ProjectName != "" {
		fmt.Fprintf(&b, "Property: %s, %s (stand #%d)\n", d.StandName, d.ProjectName, d.PropertyID)
	} else {
		fmt.Fprintf(&b, "Property: %s (stand #%d)\n", d.StandName, d.PropertyID)
	}
	if d.AccountNumber != "" {
		fmt.Fprintf(&b, "Deposit account: %s\n", d.AccountNumber)
	}
	if d.LoanAmount != "" {
		fmt.Fprintf(&b, "Loan amount: %s\n", d.LoanAmount)
	}
	fmt.Fprintf(&b, "Realtor: %s\n\n", d.Realtor)
	b.WriteString("The bank agrees to advance the loan amount to the customer for the purchase of the\n")
	b.WriteString("property above, subject to the terms of the approved loan application.\n\n")
	b.WriteString("Customer signature: ____________________\n")
	b.WriteString("Bank signature:     ____________________\n")
	return b.String()
}

// Key returns the store key of the agreement
func (a *Agreement) Key() string {
	return strconv.FormatInt(a.ID, 10)
}

// IsSigned reports whether both parties have signed
func (a *Agreement) IsSigned() bool {
	return a.Status == StatusSigned
}

// Sign stores the signed-document reference of one party. Signing again
// overwrites that party's reference; the status only depends on which
// references are present.
func (a *Agreement) Sign(party Party, documentURL, actor string) error {
	documentURL = strings.TrimSpace(documentURL)
	if documentURL == "" {
		return shared.NewValidationError("A signed document reference is required")
	}
	now := time.Now().UTC()
	action := ActionSigned
	switch party {
	case PartyCustomer:
		if a.CustomerDocumentURL != nil {
			action = ActionResigned
		}
		a.CustomerDocumentURL = &documentURL
		a.CustomerSignedBy = actor
		a.CustomerSignedAt = &now
	case PartyBank:
		if a.BankDocumentURL != nil {
			action = ActionResigned
		}
		a.BankDocumentURL = &documentURL
		a.BankSignedBy = actor
		a.BankSignedAt = &now
	default:
		return shared.NewValidationError("Unknown signing party: " + string(party))
	}
	a.audit(now, actor, action, party, documentURL)

	previous := a.Status
	a.recomputeStatus()
	a.UpdatedAt = now
	a.AddDomainEvent(NewAgreementEvent(EventTypeAgreementPartySigned, a, party, actor))
	if previous != StatusSigned && a.Status == StatusSigned {
		a.AddDomainEvent(NewAgreementEvent(EventTypeAgreementSigned, a, party, actor))
	}
	return nil
}

// UploadVersion appends a document version owned by the uploading party and
// makes it the current document.
func (a *Agreement) UploadVersion(party Party, doc document.Document, actor string) error {
	if doc.IsEmpty() {
		return shared.NewValidationError("Document content or URL is required")
	}
	if party != PartyCustomer && party != PartyBank {
		return shared.NewValidationError("Unknown signing party: " + string(party))
	}
	now := time.Now().UTC()
	a.Versions = append(a.Versions, Version{
		Number:     len(a.Versions) + 1,
		Document:   doc,
		Party:      party,
		UploadedBy: actor,
		UploadedAt: now,
	})
	a.Document = doc
	a.audit(now, actor, ActionUploaded, party, fmt.Sprintf("version %d %s", len(a.Versions), doc.Filename))
	a.UpdatedAt = now
	a.AddDomainEvent(NewAgreementEvent(EventTypeAgreementDocumentUploaded, a, party, actor))
	return nil
}

// CurrentVersion returns the latest version number
func (a *Agreement) CurrentVersion() int {
	return len(a.Versions)
}

func (a *Agreement) recomputeStatus() {
	hasCustomer := a.CustomerDocumentURL != nil && *a.CustomerDocumentURL != ""
	hasBank := a.BankDocumentURL != nil && *a.BankDocumentURL != ""
	switch {
	case hasCustomer && hasBank:
		a.Status = StatusSigned
	case hasCustomer || hasBank:
		a.Status = StatusPartiallySigned
	default:
		a.Status = StatusDraft
	}
}

func (a *Agreement) audit(at time.Time, actor, action string, party Party, detail string) {
	a.AuditLog = append(a.AuditLog, AuditEntry{
		Timestamp: at,
		Actor:     actor,
		Action:    action,
		Party:     party,
		Detail:    detail,
	})
}

// ReadyMessage is the notification appended once the agreement is executed
func (a *Agreement) ReadyMessage() string {
	return fmt.Sprintf("Agreement #%d for loan application #%d is signed and ready for loan-account opening by the Loan Accounts Opening Team", a.ID, a.LoanApplicationID)
}

// Filter narrows agreement listings
type Filter struct {
	Realtor string
	Status  *Status
}

// Matches reports whether the agreement satisfies the filter
func (f Filter) Matches(a *Agreement) bool {
	if f.Realtor != "" && a.Realtor != f.Realtor {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	return true
}

// Repository persists agreements
type Repository interface {
	Create(ctx context.Context, a *Agreement) error
	Update(ctx context.Context, a *Agreement) error
	FindByID(ctx context.Context, id int64) (*Agreement, error)
	FindByLoanApplication(ctx context.Context, loanApplicationID int64) (*Agreement, error)
	List(ctx context.Context, filter Filter) ([]*Agreement, error)
}
