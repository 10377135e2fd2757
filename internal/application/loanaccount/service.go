// Package loanaccount finalizes signed agreements into loan accounts.
package loanaccount

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	appcustomer "github.com/propflow/backend/internal/application/customer"
	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/loanaccount"
	"github.com/propflow/backend/internal/domain/notification"
	"github.com/propflow/backend/internal/domain/shared"
)

// DefaultPrefix is used when no loan account prefix is configured
const DefaultPrefix = "LA"

// FinalizationRecorder counts completed finalizations
type FinalizationRecorder interface {
	RecordFinalization(ctx context.Context)
}

// CreateRequest asks for the loan account of a signed agreement
type CreateRequest struct {
	AgreementID int64 `json:"agreement_id" binding:"required,gt=0"`
}

// AccountResponse represents one loan account in API responses
type AccountResponse struct {
	LoanAccountNumber string    `json:"loan_account_number"`
	Realtor           string    `json:"realtor"`
	LoanApplicationID int64     `json:"loan_application_id"`
	AgreementID       int64     `json:"agreement_id"`
	PropertyID        int64     `json:"property_id"`
	AccountNumber     string    `json:"account_number,omitempty"`
	OpenedBy          string    `json:"opened_by"`
	OpenedAt          time.Time `json:"opened_at"`
}

func toResponse(realtor string, acc loanaccount.Account) AccountResponse {
	return AccountResponse{
		LoanAccountNumber: acc.Number,
		Realtor:           realtor,
		LoanApplicationID: acc.LoanApplicationID,
		AgreementID:       acc.AgreementID,
		PropertyID:        acc.StandID,
		AccountNumber:     acc.AccountNumber,
		OpenedBy:          acc.OpenedBy,
		OpenedAt:          acc.OpenedAt,
	}
}

// Service allocates loan accounts
type Service struct {
	scope   appshared.TransactionScope
	prefix  string
	metrics FinalizationRecorder
	logger  *zap.Logger
}

// NewService creates a new loan account service. metrics may be nil.
func NewService(scope appshared.TransactionScope, prefix string, metrics FinalizationRecorder, logger *zap.Logger) *Service {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Service{scope: scope, prefix: prefix, metrics: metrics, logger: logger}
}

// Create finalizes a signed agreement: it allocates the loan account number,
// stamps it on the loan application, appends it to the realtor's ledger and
// marks the stand sold. All writes share one transaction. Admin only.
func (s *Service) Create(ctx context.Context, principal identity.Principal, req CreateRequest) (*AccountResponse, error) {
	if err := principal.Require(identity.CapabilityAdmin); err != nil {
		return nil, err
	}

	var resp AccountResponse
	err := appshared.RetryOnConflict(ctx, s.scope, appshared.DefaultRetryPolicy, func(ctx context.Context, repos appshared.Repositories) error {
		ag, err := repos.Agreements().FindByID(ctx, req.AgreementID)
		if err != nil {
			return err
		}
		if !ag.IsSigned() {
			return shared.NewConflictError(fmt.Sprintf("Agreement %d has not been signed by both parties", ag.ID))
		}
		loan, err := repos.LoanApplications().FindByID(ctx, ag.LoanApplicationID)
		if err != nil {
			return err
		}
		if loan.LoanAccountNumber != nil {
			return shared.NewConflictError(fmt.Sprintf("Loan application %d already has loan account %s", loan.ID, *loan.LoanAccountNumber))
		}
		stand, err := repos.Stands().FindByID(ctx, ag.PropertyID)
		if err != nil {
			return err
		}
		if err := stand.EnsureMutable(); err != nil {
			return err
		}

		seq, err := repos.Counters().Next(ctx, loanaccount.CounterName)
		if err != nil {
			return err
		}
		number := loanaccount.FormatNumber(s.prefix, seq)

		if err := loan.AssignLoanAccount(number); err != nil {
			return err
		}
		if err := stand.MarkSold(number, principal.Username); err != nil {
			return err
		}
		ledger, err := repos.LoanAccounts().Find(ctx, loan.Realtor)
		if err != nil {
			return err
		}
		acc := loanaccount.Account{
			Number:            number,
			LoanApplicationID: loan.ID,
			AgreementID:       ag.ID,
			StandID:           stand.ID,
			AccountNumber:     ag.AccountNumber,
			OpenedBy:          principal.Username,
			OpenedAt:          time.Now().UTC(),
		}
		if err := ledger.Add(acc, principal.Username); err != nil {
			return err
		}

		if err := repos.LoanApplications().Update(ctx, loan); err != nil {
			return err
		}
		if err := repos.Stands().Update(ctx, stand); err != nil {
			return err
		}
		if err := repos.LoanAccounts().Save(ctx, ledger); err != nil {
			return err
		}
		if err := appshared.RecordEvents(ctx, repos, ledger, stand); err != nil {
			return err
		}
		if _, err := appcustomer.RefreshProfileForLoan(ctx, repos, loan); err != nil {
			return err
		}
		resp = toResponse(ledger.Realtor, acc)
		return appshared.Notify(ctx, repos, notification.KindLoanAccount,
			fmt.Sprintf("Loan account %s opened for loan application #%d; stand %s is sold", number, loan.ID, stand.Name),
			fmt.Sprintf("loan_accounts/%s", number), principal.Username)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordFinalization(ctx)
	}
	s.logger.Info("Loan account opened",
		zap.String("loan_account_number", resp.LoanAccountNumber),
		zap.Int64("agreement_id", req.AgreementID),
		zap.String("realtor", resp.Realtor))
	return &resp, nil
}

// ListMine returns the caller's loan accounts
func (s *Service) ListMine(ctx context.Context, principal identity.Principal) ([]AccountResponse, error) {
	if err := principal.Require(identity.CapabilityAuthenticated); err != nil {
		return nil, err
	}
	return s.list(ctx, principal.Username)
}

// ListFor returns the loan accounts of realtor. Owner or admin.
func (s *Service) ListFor(ctx context.Context, principal identity.Principal, realtor string) ([]AccountResponse, error) {
	if err := principal.RequireOwnerOrAdmin(realtor); err != nil {
		return nil, err
	}
	return s.list(ctx, realtor)
}

func (s *Service) list(ctx context.Context, realtor string) ([]AccountResponse, error) {
	ledger, err := s.scope.Repositories().LoanAccounts().Find(ctx, realtor)
	if err != nil {
		return nil, err
	}
	result := make([]AccountResponse, 0, len(ledger.Accounts))
	for _, acc := range ledger.Accounts {
		result = append(result, toResponse(ledger.Realtor, acc))
	}
	return result, nil
}
