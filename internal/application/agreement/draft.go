// Package agreement runs the agreement signing protocol: drafting from an
// approved loan, dual signing and document versions.
package agreement

import (
	"context"
	"fmt"

	appcustomer "github.com/propflow/backend/internal/application/customer"
	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/agreement"
	"github.com/propflow/backend/internal/domain/notification"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/domain/submission"
)

// AgreementCounter allocates agreement identifiers when the loan's own
// identifier is already taken
const AgreementCounter = "next_agreement_id"

// DraftForLoan creates the DRAFT agreement of an approved loan that names a
// property and links it on the loan. The caller persists the loan.
func DraftForLoan(ctx context.Context, repos appshared.Repositories, loan *submission.LoanApplication, actor string) (*agreement.Agreement, error) {
	if !loan.IsApproved() {
		return nil, shared.NewConflictError(fmt.Sprintf("Loan application %d has not been approved", loan.ID))
	}
	if loan.PropertyID == nil {
		return nil, shared.NewValidationError(fmt.Sprintf("Loan application %d does not reference a property", loan.ID))
	}
	if _, err := repos.Agreements().FindByLoanApplication(ctx, loan.ID); err == nil {
		return nil, shared.NewConflictError(fmt.Sprintf("Loan application %d already has an agreement", loan.ID))
	} else if !shared.HasCode(err, shared.CodeNotFound) {
		return nil, err
	}

	stand, err := repos.Stands().FindByID(ctx, *loan.PropertyID)
	if err != nil {
		return nil, err
	}
	draft := agreement.Draft{
		LoanApplicationID: loan.ID,
		PropertyID:        stand.ID,
		StandName:         stand.Name,
		Realtor:           loan.Realtor,
	}
	if project, err := repos.Projects().FindByID(ctx, stand.ProjectID); err == nil {
		draft.ProjectName = project.Name
	} else if !shared.HasCode(err, shared.CodeNotFound) {
		return nil, err
	}
	if ao, err := repos.AccountOpenings().FindByID(ctx, loan.AccountOpeningID); err == nil && ao.AccountNumber != nil {
		draft.AccountNumber = *ao.AccountNumber
	} else if err != nil && !shared.HasCode(err, shared.CodeNotFound) {
		return nil, err
	}
	if loan.Amount != nil {
		draft.LoanAmount = loan.Amount.StringFixed(2)
	}

	draft.ID, err = allocateID(ctx, repos, loan.ID)
	if err != nil {
		return nil, err
	}
	ag, err := agreement.NewDraft(draft, actor)
	if err != nil {
		return nil, err
	}
	if err := repos.Agreements().Create(ctx, ag); err != nil {
		return nil, err
	}
	if err := loan.AttachAgreement(ag.ID); err != nil {
		return nil, err
	}
	if err := appshared.RecordEvents(ctx, repos, ag); err != nil {
		return nil, err
	}
	if err := appshared.Notify(ctx, repos, notification.KindAgreement,
		fmt.Sprintf("Agreement #%d drafted for loan application #%d", ag.ID, loan.ID), agreementResource(ag.ID), actor); err != nil {
		return nil, err
	}
	return ag, nil
}

// allocateID prefers the loan identifier and falls back to the counter
func allocateID(ctx context.Context, repos appshared.Repositories, preferred int64) (int64, error) {
	candidate := preferred
	for {
		_, err := repos.Agreements().FindByID(ctx, candidate)
		if shared.HasCode(err, shared.CodeNotFound) {
			return candidate, nil
		}
		if err != nil {
			return 0, err
		}
		candidate, err = repos.Counters().Next(ctx, AgreementCounter)
		if err != nil {
			return 0, err
		}
	}
}

// refreshProfile is shared by every agreement mutation that changes links
func refreshProfile(ctx context.Context, repos appshared.Repositories, loan *submission.LoanApplication) error {
	_, err := appcustomer.RefreshProfileForLoan(ctx, repos, loan)
	return err
}

func agreementResource(id int64) string {
	return fmt.Sprintf("agreements/%d", id)
}
