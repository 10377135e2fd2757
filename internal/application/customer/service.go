package customer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/customer"
	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/notification"
	"github.com/propflow/backend/internal/domain/shared"
)

// ProfileResponse represents a customer profile in API responses
type ProfileResponse struct {
	AccountNumber       string              `json:"account_number"`
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

// ToProfileResponse converts a domain profile to a response DTO
func ToProfileResponse(p *customer.Profile) ProfileResponse {
	return ProfileResponse{
		AccountNumber:       p.AccountNumber,
		AccountOpeningID:    p.AccountOpeningID,
		Realtor:             p.Realtor,
		LoanApplicationIDs:  p.LoanApplicationIDs,
		AgreementIDs:        p.AgreementIDs,
		Documents:           p.Documents,
		LastInboundEmailAt:  p.LastInboundEmailAt,
		DeletionRequested:   p.DeletionRequested,
		DeletionRequestedBy: p.DeletionRequestedBy,
		DeletionRequestedAt: p.DeletionRequestedAt,
		DeletionApprovedBy:  p.DeletionApprovedBy,
		DeletionApprovedAt:  p.DeletionApprovedAt,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

// ProfileService exposes customer profiles to compliance
type ProfileService struct {
	scope  appshared.TransactionScope
	logger *zap.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(scope appshared.TransactionScope, logger *zap.Logger) *ProfileService {
	return &ProfileService{scope: scope, logger: logger}
}

// List returns every profile ordered by account number. Compliance only.
func (s *ProfileService) List(ctx context.Context, principal identity.Principal) ([]ProfileResponse, error) {
	if err := principal.Require(identity.CapabilityCompliance); err != nil {
		return nil, err
	}
	profiles, err := s.scope.Repositories().Profiles().List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		result = append(result, ToProfileResponse(p))
	}
	return result, nil
}

// Get returns one profile. Compliance only.
func (s *ProfileService) Get(ctx context.Context, principal identity.Principal, accountNumber string) (*ProfileResponse, error) {
	if err := principal.Require(identity.CapabilityCompliance); err != nil {
		return nil, err
	}
	p, err := s.scope.Repositories().Profiles().FindByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	resp := ToProfileResponse(p)
	return &resp, nil
}

// RequestDeletion flags a profile for deletion. Compliance only.
func (s *ProfileService) RequestDeletion(ctx context.Context, principal identity.Principal, accountNumber string) (*ProfileResponse, error) {
	if err := principal.Require(identity.CapabilityCompliance); err != nil {
		return nil, err
	}
	return s.mutate(ctx, accountNumber, func(ctx context.Context, repos appshared.Repositories, p *customer.Profile) error {
		p.RequestDeletion(principal.Username)
		return appshared.Notify(ctx, repos, notification.KindProfile,
			fmt.Sprintf("Deletion requested for customer profile %s", accountNumber), profileResource(accountNumber), principal.Username)
	})
}

// ApproveDeletion approves an outstanding deletion request. Admin only.
func (s *ProfileService) ApproveDeletion(ctx context.Context, principal identity.Principal, accountNumber string) (*ProfileResponse, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}
	return s.mutate(ctx, accountNumber, func(ctx context.Context, repos appshared.Repositories, p *customer.Profile) error {
		if err := p.ApproveDeletion(principal.Username); err != nil {
			return err
		}
		return appshared.Notify(ctx, repos, notification.KindProfile,
			fmt.Sprintf("Deletion approved for customer profile %s", accountNumber), profileResource(accountNumber), principal.Username)
	})
}

// Delete removes a profile whose deletion was approved. Compliance only.
func (s *ProfileService) Delete(ctx context.Context, principal identity.Principal, accountNumber string) error {
	if err := principal.Require(identity.CapabilityCompliance); err != nil {
		return err
	}
	err := s.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		p, err := repos.Profiles().FindByAccountNumber(ctx, accountNumber)
		if err != nil {
			return err
		}
		if !p.IsDeletionApproved() {
			return shared.NewConflictError(fmt.Sprintf("Deletion of profile %s has not been approved", accountNumber))
		}
		return repos.Profiles().Delete(ctx, accountNumber)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Customer profile deleted",
		zap.String("account_number", accountNumber),
		zap.String("deleted_by", principal.Username))
	return nil
}

func (s *ProfileService) mutate(ctx context.Context, accountNumber string, fn func(ctx context.Context, repos appshared.Repositories, p *customer.Profile) error) (*ProfileResponse, error) {
	var profile *customer.Profile
	err := appshared.RetryOnConflict(ctx, s.scope, appshared.DefaultRetryPolicy, func(ctx context.Context, repos appshared.Repositories) error {
		var err error
		profile, err = repos.Profiles().FindByAccountNumber(ctx, accountNumber)
		if err != nil {
			return err
		}
		if err := fn(ctx, repos, profile); err != nil {
			return err
		}
		return repos.Profiles().Save(ctx, profile)
	})
	if err != nil {
		return nil, err
	}
	resp := ToProfileResponse(profile)
	return &resp, nil
}

func profileResource(accountNumber string) string {
	return "profiles/" + accountNumber
}
