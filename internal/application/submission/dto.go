package submission

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/domain/submission"
)

// Fields is the payload every submission type accepts. Server-controlled
// fields are decoded so that clients sending them get a predictable result:
// they are reset on creation.
type Fields struct {
	ID                int64              `json:"id" binding:"required,gt=0"`
	Realtor           string             `json:"realtor" binding:"required,max=100"`
	PropertyID        *int64             `json:"property_id"`
	Details           string             `json:"details" binding:"max=5000"`
	Document          *document.Document `json:"document"`
	RequiredDocuments document.Set       `json:"required_documents"`
	Status            string             `json:"status"`
	Reason            *string            `json:"reason"`
}

func (f Fields) header() submission.Header {
	return submission.Header{
		ID:                f.ID,
		Realtor:           f.Realtor,
		PropertyID:        f.PropertyID,
		Details:           f.Details,
		Document:          f.Document,
		RequiredDocuments: f.RequiredDocuments,
		Status:            submission.Status(f.Status),
		Reason:            f.Reason,
	}
}

// OfferRequest represents a new offer
type OfferRequest struct {
	Fields
	Amount *decimal.Decimal `json:"amount"`
}

// PropertyApplicationRequest represents a new property application
type PropertyApplicationRequest struct {
	Fields
}

// AccountOpeningRequest represents a new account opening request
type AccountOpeningRequest struct {
	Fields
	AccountNumber    *string          `json:"account_number"`
	DepositThreshold *decimal.Decimal `json:"deposit_threshold"`
}

// LoanApplicationRequest represents a new loan application
type LoanApplicationRequest struct {
	Fields
	AccountID         int64            `json:"account_id" binding:"required,gt=0"`
	Amount            *decimal.Decimal `json:"amount"`
	Decision          *string          `json:"decision"`
	LoanAccountNumber *string          `json:"loan_account_number"`
}

func (r OfferRequest) toDomain() *submission.Offer {
	return &submission.Offer{Header: r.header(), Amount: r.Amount}
}

func (r PropertyApplicationRequest) toDomain() *submission.PropertyApplication {
	return &submission.PropertyApplication{Header: r.header()}
}

func (r AccountOpeningRequest) toDomain() *submission.AccountOpening {
	return &submission.AccountOpening{
		Header:           r.header(),
		AccountNumber:    r.AccountNumber,
		DepositThreshold: r.DepositThreshold,
	}
}

func (r LoanApplicationRequest) toDomain() *submission.LoanApplication {
	l := &submission.LoanApplication{
		Header:            r.header(),
		AccountOpeningID:  r.AccountID,
		Amount:            r.Amount,
		LoanAccountNumber: r.LoanAccountNumber,
	}
	if r.Decision != nil {
		d := submission.Decision(*r.Decision)
		l.Decision = &d
	}
	return l
}

// StatusUpdateRequest moves an offer or property application
type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"max=1000"`
}

// RejectRequest closes an account opening
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

// OpenAccountRequest assigns the account number and deposit threshold
type OpenAccountRequest struct {
	AccountNumber    string          `json:"account_number" binding:"required,max=64"`
	DepositThreshold decimal.Decimal `json:"deposit_threshold"`
}

// DepositRequest records a payment against an opened account
type DepositRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference" binding:"max=200"`
}

// DecisionRequest decides a loan application
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required"`
	Reason   string `json:"reason" binding:"max=2000"`
}

// TeamReplyRequest is a free-text reply from the loan team
type TeamReplyRequest struct {
	Subject   string              `json:"subject" binding:"max=500"`
	Body      string              `json:"body" binding:"required"`
	Documents []document.Document `json:"documents"`
}

// ListFilter narrows submission listings
type ListFilter struct {
	Status *string `form:"status"`
}

// HeaderResponse holds the fields every submission response carries
type HeaderResponse struct {
	ID                int64              `json:"id"`
	Realtor           string             `json:"realtor"`
	PropertyID        *int64             `json:"property_id"`
	Details           string             `json:"details,omitempty"`
	Document          *document.Document `json:"document,omitempty"`
	RequiredDocuments document.Set       `json:"required_documents"`
	Status            string             `json:"status"`
	Reason            *string            `json:"reason"`
	StatusChangedBy   string             `json:"status_changed_by,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	Version           int                `json:"version"`
}

// OfferResponse represents an offer in API responses
type OfferResponse struct {
	HeaderResponse
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// PropertyApplicationResponse represents a property application in API responses
type PropertyApplicationResponse struct {
	HeaderResponse
}

// AccountOpeningResponse represents an account opening in API responses
type AccountOpeningResponse struct {
	HeaderResponse
	AccountNumber    *string              `json:"account_number"`
	DepositThreshold *decimal.Decimal     `json:"deposit_threshold"`
	Deposits         []submission.Deposit `json:"deposits"`
	DepositTotal     decimal.Decimal      `json:"deposit_total"`
	ApprovedBy       string               `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time           `json:"approved_at,omitempty"`
	OpenedAt         *time.Time           `json:"opened_at,omitempty"`
	CompletedAt      *time.Time           `json:"completed_at,omitempty"`
}

// LoanApplicationResponse represents a loan application in API responses
type LoanApplicationResponse struct {
	HeaderResponse
	AccountID         int64            `json:"account_id"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	Decision          *string          `json:"decision"`
	DecidedBy         string           `json:"decided_by,omitempty"`
	DecidedAt         *time.Time       `json:"decided_at,omitempty"`
	AgreementID       *int64           `json:"agreement_id,omitempty"`
	LoanAccountNumber *string          `json:"loan_account_number"`
}

func toHeaderResponse(h *submission.Header) HeaderResponse {
	return HeaderResponse{
		ID:                h.ID,
		Realtor:           h.Realtor,
		PropertyID:        h.PropertyID,
		Details:           h.Details,
		Document:          h.Document,
		RequiredDocuments: h.RequiredDocuments,
		Status:            string(h.Status),
		Reason:            h.Reason,
		StatusChangedBy:   h.StatusChangedBy,
		CreatedAt:         h.CreatedAt,
		UpdatedAt:         h.UpdatedAt,
		Version:           h.GetVersion(),
	}
}

// ToOfferResponse converts a domain offer to a response DTO
func ToOfferResponse(o *submission.Offer) OfferResponse {
	return OfferResponse{HeaderResponse: toHeaderResponse(&o.Header), Amount: o.Amount}
}

// ToPropertyApplicationResponse converts a domain property application to a response DTO
func ToPropertyApplicationResponse(p *submission.PropertyApplication) PropertyApplicationResponse {
	return PropertyApplicationResponse{HeaderResponse: toHeaderResponse(&p.Header)}
}

// ToAccountOpeningResponse converts a domain account opening to a response DTO
func ToAccountOpeningResponse(a *submission.AccountOpening) AccountOpeningResponse {
	deposits := a.Deposits
	if deposits == nil {
		deposits = []submission.Deposit{}
	}
	return AccountOpeningResponse{
		HeaderResponse:   toHeaderResponse(&a.Header),
		AccountNumber:    a.AccountNumber,
		DepositThreshold: a.DepositThreshold,
		Deposits:         deposits,
		DepositTotal:     a.DepositTotal,
		ApprovedBy:       a.ApprovedBy,
		ApprovedAt:       a.ApprovedAt,
		OpenedAt:         a.OpenedAt,
		CompletedAt:      a.CompletedAt,
	}
}

// ToLoanApplicationResponse converts a domain loan application to a response DTO
func ToLoanApplicationResponse(l *submission.LoanApplication) LoanApplicationResponse {
	resp := LoanApplicationResponse{
		HeaderResponse:    toHeaderResponse(&l.Header),
		AccountID:         l.AccountOpeningID,
		Amount:            l.Amount,
		DecidedBy:         l.DecidedBy,
		DecidedAt:         l.DecidedAt,
		AgreementID:       l.AgreementID,
		LoanAccountNumber: l.LoanAccountNumber,
	}
	if l.Decision != nil {
		d := string(*l.Decision)
		resp.Decision = &d
	}
	return resp
}

func mapResponses[T any, R any](items []T, convert func(T) R) []R {
	result := make([]R, 0, len(items))
	for _, item := range items {
		result = append(result, convert(item))
	}
	return result
}
