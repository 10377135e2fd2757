package agreement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/agreement"
	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/notification"
	"github.com/propflow/backend/internal/domain/shared"
)

// CreateRequest asks for an agreement on an approved loan application
type CreateRequest struct {
	LoanApplicationID int64 `json:"loan_application_id" binding:"required,gt=0"`
}

// SignRequest carries one party's signed-document reference
type SignRequest struct {
	Party       string `json:"party" binding:"required"`
	DocumentURL string `json:"document_url" binding:"required,max=2048"`
}

// UploadRequest adds a document version on behalf of a party
type UploadRequest struct {
	Party    string            `json:"party" binding:"required"`
	Document document.Document `json:"document"`
}

// ListFilter narrows agreement listings
type ListFilter struct {
	Status *string `form:"status"`
}

// Response represents an agreement in API responses
type Response struct {
	ID                  int64                  `json:"id"`
	LoanApplicationID   int64                  `json:"loan_application_id"`
	PropertyID          int64                  `json:"property_id"`
	Realtor             string                 `json:"realtor"`
	AccountNumber       string                 `json:"account_number,omitempty"`
	Status              string                 `json:"status"`
	Document            document.Document      `json:"document"`
	CurrentVersion      int                    `json:"current_version"`
	Versions            []agreement.Version    `json:"versions"`
	CustomerDocumentURL *string                `json:"customer_document_url"`
	CustomerSignedAt    *time.Time             `json:"customer_signed_at,omitempty"`
	BankDocumentURL     *string                `json:"bank_document_url"`
	BankSignedAt        *time.Time             `json:"bank_signed_at,omitempty"`
	AuditLog            []agreement.AuditEntry `json:"audit_log"`
	CreatedBy           string                 `json:"created_by"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// ToResponse converts a domain agreement to a response DTO
func ToResponse(a *agreement.Agreement) Response {
	return Response{
		ID:                  a.ID,
		LoanApplicationID:   a.LoanApplicationID,
		PropertyID:          a.PropertyID,
		Realtor:             a.Realtor,
		AccountNumber:       a.AccountNumber,
		Status:              string(a.Status),
		Document:            a.Document,
		CurrentVersion:      a.CurrentVersion(),
		Versions:            a.Versions,
		CustomerDocumentURL: a.CustomerDocumentURL,
		CustomerSignedAt:    a.CustomerSignedAt,
		BankDocumentURL:     a.BankDocumentURL,
		BankSignedAt:        a.BankSignedAt,
		AuditLog:            a.AuditLog,
		CreatedBy:           a.CreatedBy,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

// Service runs the agreement signing protocol
type Service struct {
	scope     appshared.TransactionScope
	documents appshared.DocumentStore
	logger    *zap.Logger
}

// NewService creates a new agreement service
func NewService(scope appshared.TransactionScope, documents appshared.DocumentStore, logger *zap.Logger) *Service {
	return &Service{scope: scope, documents: documents, logger: logger}
}

// Create drafts the agreement of an approved loan that was approved without
// one. Management only.
func (s *Service) Create(ctx context.Context, principal identity.Principal, req CreateRequest) (*Response, error) {
	if err := principal.Require(identity.CapabilityManagement); err != nil {
		return nil, err
	}

	var created *agreement.Agreement
	err := appshared.RetryOnConflict(ctx, s.scope, appshared.DefaultRetryPolicy, func(ctx context.Context, repos appshared.Repositories) error {
		loan, err := repos.LoanApplications().FindByID(ctx, req.LoanApplicationID)
		if err != nil {
			return err
		}
		created, err = DraftForLoan(ctx, repos, loan, principal.Username)
		if err != nil {
			return err
		}
		if err := repos.LoanApplications().Update(ctx, loan); err != nil {
			return err
		}
		return refreshProfile(ctx, repos, loan)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Agreement drafted",
		zap.Int64("agreement_id", created.ID),
		zap.Int64("loan_application_id", req.LoanApplicationID))
	resp := ToResponse(created)
	return &resp, nil
}

// Sign records one party's signature. The bound realtor signs for the
// customer and only an admin signs for the bank. Reaching SIGNED appends the
// ready notification exactly once, however often signing is retried.
func (s *Service) Sign(ctx context.Context, principal identity.Principal, id int64, req SignRequest) (*Response, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	party, err := parseParty(req.Party)
	if err != nil {
		return nil, err
	}

	resp, err := s.mutate(ctx, id, func(ctx context.Context, repos appshared.Repositories, a *agreement.Agreement) error {
		if err := authorizeParty(principal, party, a); err != nil {
			return err
		}
		if err := a.Sign(party, req.DocumentURL, principal.Username); err != nil {
			return err
		}
		if !a.IsSigned() {
			return nil
		}
		_, err := appshared.NotifyOnce(ctx, repos, notification.KindAgreement, a.ReadyMessage(), agreementResource(a.ID), principal.Username)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Agreement signed",
		zap.Int64("agreement_id", id),
		zap.String("party", string(party)),
		zap.String("status", resp.Status))
	return resp, nil
}

// UploadDocument appends a document version for a party and makes it current
func (s *Service) UploadDocument(ctx context.Context, principal identity.Principal, id int64, req UploadRequest) (*Response, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	party, err := parseParty(req.Party)
	if err != nil {
		return nil, err
	}
	if req.Document.IsEmpty() {
		return nil, shared.NewValidationError("Document content or URL is required")
	}

	return s.mutate(ctx, id, func(ctx context.Context, repos appshared.Repositories, a *agreement.Agreement) error {
		if err := authorizeParty(principal, party, a); err != nil {
			return err
		}
		slot := fmt.Sprintf("v%d", a.CurrentVersion()+1)
		stored, err := appshared.StoreDocument(ctx, s.documents, agreementResource(a.ID), slot, req.Document)
		if err != nil {
			return err
		}
		return a.UploadVersion(party, stored, principal.Username)
	})
}

// Get returns an agreement visible to the caller
func (s *Service) Get(ctx context.Context, principal identity.Principal, id int64) (*Response, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	a, err := s.scope.Repositories().Agreements().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := principal.RequireViewer(a.Realtor); err != nil {
		return nil, err
	}
	resp := ToResponse(a)
	return &resp, nil
}

// List returns agreements. Agents only see their own.
func (s *Service) List(ctx context.Context, principal identity.Principal, filter ListFilter) ([]Response, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	domainFilter := agreement.Filter{}
	if !principal.IsManagement() {
		domainFilter.Realtor = principal.Username
	}
	if filter.Status != nil && *filter.Status != "" {
		status, err := parseStatus(*filter.Status)
		if err != nil {
			return nil, err
		}
		domainFilter.Status = &status
	}
	items, err := s.scope.Repositories().Agreements().List(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	result := make([]Response, 0, len(items))
	for _, a := range items {
		result = append(result, ToResponse(a))
	}
	return result, nil
}

func (s *Service) mutate(ctx context.Context, id int64, fn func(ctx context.Context, repos appshared.Repositories, a *agreement.Agreement) error) (*Response, error) {
	var ag *agreement.Agreement
	err := appshared.RetryOnConflict(ctx, s.scope, appshared.DefaultRetryPolicy, func(ctx context.Context, repos appshared.Repositories) error {
		var err error
		ag, err = repos.Agreements().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, repos, ag); err != nil {
			return err
		}
		if err := repos.Agreements().Update(ctx, ag); err != nil {
			return err
		}
		return appshared.RecordEvents(ctx, repos, ag)
	})
	if err != nil {
		return nil, err
	}
	resp := ToResponse(ag)
	return &resp, nil
}

func authorizeParty(principal identity.Principal, party agreement.Party, a *agreement.Agreement) error {
	switch party {
	case agreement.PartyCustomer:
		if principal.Username != a.Realtor {
			return shared.NewForbiddenError("Only the realtor of this agreement can act for the customer")
		}
	case agreement.PartyBank:
		if !principal.IsAdmin() {
			return shared.NewForbiddenError("Only an admin can act for the bank")
		}
	}
	return nil
}

func parseParty(s string) (agreement.Party, error) {
	party := agreement.Party(strings.ToLower(strings.TrimSpace(s)))
	switch party {
	case agreement.PartyCustomer, agreement.PartyBank:
		return party, nil
	}
	return "", shared.NewValidationError("Unknown signing party: " + s)
}

func parseStatus(s string) (agreement.Status, error) {
	status := agreement.Status(strings.ToLower(strings.TrimSpace(s)))
	switch status {
	case agreement.StatusDraft, agreement.StatusPartiallySigned, agreement.StatusSigned:
		return status, nil
	}
	return "", shared.NewValidationError("Unknown agreement status: " + s)
}
