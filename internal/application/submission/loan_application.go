package submission

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	appagreement "github.com/propflow/backend/internal/application/agreement"
	appcustomer "github.com/propflow/backend/internal/application/customer"
	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/notification"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/domain/submission"
)

// CreateLoanApplication stores a loan application against a completed
// account opening of the same realtor.
func (s *Service) CreateLoanApplication(ctx context.Context, principal identity.Principal, req LoanApplicationRequest) (*LoanApplicationResponse, error) {
	l, err := create(ctx, s, principal, loanApplications, req.toDomain(), checkLoanApplication)
	if err != nil {
		return nil, err
	}
	if err := s.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		_, err := appcustomer.RefreshProfileForLoan(ctx, repos, l)
		return err
	}); err != nil {
		s.logger.Warn("Failed to refresh customer profile", zap.Int64("loan_application_id", l.ID), zap.Error(err))
	}
	resp := ToLoanApplicationResponse(l)
	return &resp, nil
}

func checkLoanApplication(ctx context.Context, repos appshared.Repositories, l *submission.LoanApplication) error {
	ao, err := repos.AccountOpenings().FindByID(ctx, l.AccountOpeningID)
	if err != nil {
		return err
	}
	if ao.Realtor != l.Realtor {
		return shared.NewForbiddenError(fmt.Sprintf("Account opening %d belongs to another realtor", ao.ID))
	}
	if ao.Status != submission.StatusCompleted {
		return shared.NewValidationError(fmt.Sprintf("Account opening %d has not reached its deposit threshold", ao.ID))
	}
	if l.PropertyID != nil {
		if _, err := repos.Stands().FindByID(ctx, *l.PropertyID); err != nil {
			return err
		}
	}
	return nil
}

// ListLoanApplications returns loan applications visible to the caller
func (s *Service) ListLoanApplications(ctx context.Context, principal identity.Principal, filter ListFilter) ([]LoanApplicationResponse, error) {
	items, err := list(ctx, s, principal, loanApplications, filter)
	if err != nil {
		return nil, err
	}
	return mapResponses(items, ToLoanApplicationResponse), nil
}

// GetLoanApplication returns one loan application
func (s *Service) GetLoanApplication(ctx context.Context, principal identity.Principal, id int64) (*LoanApplicationResponse, error) {
	l, err := get(ctx, s, principal, loanApplications, id)
	if err != nil {
		return nil, err
	}
	resp := ToLoanApplicationResponse(l)
	return &resp, nil
}

// DecideLoanApplication records the loan decision. Approving a loan that
// names a property drafts its agreement in the same transaction.
// Management only.
func (s *Service) DecideLoanApplication(ctx context.Context, principal identity.Principal, id int64, req DecisionRequest) (*LoanApplicationResponse, error) {
	if err := principal.Require(identity.CapabilityManagement); err != nil {
		return nil, err
	}
	decision, err := parseDecisionValue(req.Decision)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, principal, id, decision, req.Reason, nil)
}

// ProcessTeamReply applies a free-text reply from the loan team: the decision
// is read from the subject and body, a rejection keeps the body as its reason
// and any attachments are filed on the customer profile. Management only.
func (s *Service) ProcessTeamReply(ctx context.Context, principal identity.Principal, id int64, req TeamReplyRequest) (*LoanApplicationResponse, error) {
	if err := principal.Require(identity.CapabilityManagement); err != nil {
		return nil, err
	}
	decision, err := submission.ParseDecision(req.Subject + "\n" + req.Body)
	if err != nil {
		return nil, err
	}
	reason := ""
	if decision == submission.DecisionRejected {
		reason = strings.TrimSpace(req.Body)
	}
	return s.decide(ctx, principal, id, decision, reason, req.Documents)
}

func (s *Service) decide(ctx context.Context, principal identity.Principal, id int64, decision submission.Decision, reason string, attachments []document.Document) (*LoanApplicationResponse, error) {
	l, err := mutate(ctx, s, loanApplications, id, func(ctx context.Context, repos appshared.Repositories, l *submission.LoanApplication) error {
		if err := l.Decide(decision, reason, principal.Username); err != nil {
			return err
		}
		if l.IsApproved() && l.PropertyID != nil && l.AgreementID == nil {
			if _, err := appagreement.DraftForLoan(ctx, repos, l, principal.Username); err != nil {
				return err
			}
		}
		if err := appshared.Notify(ctx, repos, notification.KindLoanDecision,
			decisionMessage(l), loanApplications.resource(l.ID), principal.Username); err != nil {
			return err
		}
		if len(attachments) > 0 {
			stored := make([]document.Document, 0, len(attachments))
			for i, doc := range attachments {
				d, err := appshared.StoreDocument(ctx, s.documents, loanApplications.resource(l.ID), fmt.Sprintf("reply-%d", i+1), doc)
				if err != nil {
					return err
				}
				if !d.IsEmpty() {
					stored = append(stored, d)
				}
			}
			_, err := appcustomer.AttachToProfile(ctx, repos, l, stored)
			return err
		}
		_, err := appcustomer.RefreshProfileForLoan(ctx, repos, l)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loan application decided",
		zap.Int64("id", id),
		zap.String("decision", string(decision)),
		zap.String("decided_by", principal.Username))
	resp := ToLoanApplicationResponse(l)
	return &resp, nil
}

func parseDecisionValue(s string) (submission.Decision, error) {
	d := submission.Decision(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case submission.DecisionApproved, submission.DecisionRejected:
		return d, nil
	}
	return "", shared.NewValidationError("Decision must be approved or rejected")
}

func decisionMessage(l *submission.LoanApplication) string {
	msg := fmt.Sprintf("Loan Application submission #%d %s", l.ID, *l.Decision)
	if l.Reason != nil && *l.Reason != "" {
		msg += ": " + *l.Reason
	}
	return msg
}
