package submission

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	appcustomer "github.com/propflow/backend/internal/application/customer"
	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/notification"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/domain/submission"
)

// CreateAccountOpening stores a new account opening request
func (s *Service) CreateAccountOpening(ctx context.Context, principal identity.Principal, req AccountOpeningRequest) (*AccountOpeningResponse, error) {
	a, err := create(ctx, s, principal, accountOpenings, req.toDomain(), nil)
	if err != nil {
		return nil, err
	}
	resp := ToAccountOpeningResponse(a)
	return &resp, nil
}

// ListAccountOpenings returns account openings visible to the caller
func (s *Service) ListAccountOpenings(ctx context.Context, principal identity.Principal, filter ListFilter) ([]AccountOpeningResponse, error) {
	items, err := list(ctx, s, principal, accountOpenings, filter)
	if err != nil {
		return nil, err
	}
	return mapResponses(items, ToAccountOpeningResponse), nil
}

// GetAccountOpening returns one account opening
func (s *Service) GetAccountOpening(ctx context.Context, principal identity.Principal, id int64) (*AccountOpeningResponse, error) {
	a, err := get(ctx, s, principal, accountOpenings, id)
	if err != nil {
		return nil, err
	}
	resp := ToAccountOpeningResponse(a)
	return &resp, nil
}

// ApproveAccountOpening records the manager approval. Management only.
func (s *Service) ApproveAccountOpening(ctx context.Context, principal identity.Principal, id int64) (*AccountOpeningResponse, error) {
	if err := principal.Require(identity.CapabilityManagement); err != nil {
		return nil, err
	}
	return s.mutateAccountOpening(ctx, id, func(ctx context.Context, repos appshared.Repositories, a *submission.AccountOpening) error {
		if err := a.Approve(principal.Username); err != nil {
			return err
		}
		return appshared.Notify(ctx, repos, notification.KindApproval,
			fmt.Sprintf("Account Opening submission #%d approved by %s", a.ID, principal.Username),
			accountOpenings.resource(a.ID), principal.Username)
	})
}

// RejectAccountOpening closes a request that was never opened. Management only.
func (s *Service) RejectAccountOpening(ctx context.Context, principal identity.Principal, id int64, req RejectRequest) (*AccountOpeningResponse, error) {
	if err := principal.Require(identity.CapabilityManagement); err != nil {
		return nil, err
	}
	return s.mutateAccountOpening(ctx, id, func(ctx context.Context, repos appshared.Repositories, a *submission.AccountOpening) error {
		if err := a.Reject(req.Reason, principal.Username); err != nil {
			return err
		}
		return appshared.Notify(ctx, repos, notification.KindApproval,
			statusMessage(accountOpenings.kind, a.ID, a.Status, a.Reason),
			accountOpenings.resource(a.ID), principal.Username)
	})
}

// OpenAccount assigns the account number and deposit threshold and links the
// customer profile. Management only.
func (s *Service) OpenAccount(ctx context.Context, principal identity.Principal, id int64, req OpenAccountRequest) (*AccountOpeningResponse, error) {
	if err := principal.Require(identity.CapabilityManagement); err != nil {
		return nil, err
	}
	accountNumber := strings.TrimSpace(req.AccountNumber)
	resp, err := s.mutateAccountOpening(ctx, id, func(ctx context.Context, repos appshared.Repositories, a *submission.AccountOpening) error {
		other, err := repos.AccountOpenings().FindByAccountNumber(ctx, accountNumber)
		if err == nil && other.ID != a.ID {
			return shared.NewConflictError(fmt.Sprintf("Account number %s is already used by account opening %d", accountNumber, other.ID))
		}
		if err != nil && !shared.HasCode(err, shared.CodeNotFound) {
			return err
		}
		if err := a.Open(accountNumber, req.DepositThreshold, principal.Username); err != nil {
			return err
		}
		if _, err := appcustomer.RefreshProfile(ctx, repos, a); err != nil {
			return err
		}
		return appshared.Notify(ctx, repos, notification.KindDeposit,
			fmt.Sprintf("Account %s opened for account opening #%d with a deposit threshold of %s",
				*a.AccountNumber, a.ID, a.DepositThreshold.StringFixed(2)),
			accountOpenings.resource(a.ID), principal.Username)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Account opened", zap.Int64("id", id), zap.String("account_number", accountNumber))
	return resp, nil
}

// RecordDeposit records a payment. Crossing the threshold completes the
// account opening. Management only.
func (s *Service) RecordDeposit(ctx context.Context, principal identity.Principal, id int64, req DepositRequest) (*AccountOpeningResponse, error) {
	if err := principal.Require(identity.CapabilityManagement); err != nil {
		return nil, err
	}
	resp, err := s.mutateAccountOpening(ctx, id, func(ctx context.Context, repos appshared.Repositories, a *submission.AccountOpening) error {
		wasCompleted := a.Status == submission.StatusCompleted
		if err := a.RecordDeposit(req.Amount, req.Reference, principal.Username); err != nil {
			return err
		}
		resource := accountOpenings.resource(a.ID)
		if err := appshared.Notify(ctx, repos, notification.KindDeposit,
			fmt.Sprintf("Deposit of %s recorded on account %s (total %s of %s)",
				req.Amount.StringFixed(2), *a.AccountNumber, a.DepositTotal.StringFixed(2), a.DepositThreshold.StringFixed(2)),
			resource, principal.Username); err != nil {
			return err
		}
		if wasCompleted || a.Status != submission.StatusCompleted {
			return nil
		}
		return appshared.Notify(ctx, repos, notification.KindDeposit,
			fmt.Sprintf("Account %s reached its deposit threshold; account opening #%d is completed", *a.AccountNumber, a.ID),
			resource, principal.Username)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Deposit recorded",
		zap.Int64("id", id),
		zap.String("amount", req.Amount.String()),
		zap.String("status", resp.Status))
	return resp, nil
}

func (s *Service) mutateAccountOpening(ctx context.Context, id int64, fn func(ctx context.Context, repos appshared.Repositories, a *submission.AccountOpening) error) (*AccountOpeningResponse, error) {
	a, err := mutate(ctx, s, accountOpenings, id, fn)
	if err != nil {
		return nil, err
	}
	resp := ToAccountOpeningResponse(a)
	return &resp, nil
}
