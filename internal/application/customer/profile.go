// Package customer maintains customer profiles: their refresh on workflow
// transitions, the compliance-driven deletion flow and the inbound email sync.
package customer

import (
	"context"
	"time"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/customer"
	"github.com/propflow/backend/internal/domain/document"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/domain/submission"
)

// LoadOrNew returns the stored profile for the account number or a new one
func LoadOrNew(ctx context.Context, repos appshared.Repositories, accountNumber string) (*customer.Profile, error) {
	profile, err := repos.Profiles().FindByAccountNumber(ctx, accountNumber)
	if err == nil {
		return profile, nil
	}
	if !shared.HasCode(err, shared.CodeNotFound) {
		return nil, err
	}
	return customer.NewProfile(accountNumber)
}

// Links collects the identifiers a profile for the account opening aggregates
func Links(ctx context.Context, repos appshared.Repositories, ao *submission.AccountOpening) (customer.Links, error) {
	links := customer.Links{AccountOpeningID: ao.ID, Realtor: ao.Realtor}
	loans, err := repos.LoanApplications().ListByAccountOpening(ctx, ao.ID)
	if err != nil {
		return links, err
	}
	for _, loan := range loans {
		links.LoanApplicationIDs = append(links.LoanApplicationIDs, loan.ID)
		if loan.AgreementID != nil {
			links.AgreementIDs = append(links.AgreementIDs, *loan.AgreementID)
			continue
		}
		ag, err := repos.Agreements().FindByLoanApplication(ctx, loan.ID)
		if err != nil {
			if shared.HasCode(err, shared.CodeNotFound) {
				continue
			}
			return links, err
		}
		links.AgreementIDs = append(links.AgreementIDs, ag.ID)
	}
	return links, nil
}

// RefreshProfile rebuilds the links of the profile belonging to an opened
// account. Accounts without a number have no profile and are ignored.
func RefreshProfile(ctx context.Context, repos appshared.Repositories, ao *submission.AccountOpening) (*customer.Profile, error) {
	if ao == nil || ao.AccountNumber == nil {
		return nil, nil
	}
	return updateProfile(ctx, repos, *ao.AccountNumber, ao, func(*customer.Profile) {})
}

// RefreshProfileForLoan refreshes the profile of the account the loan was
// applied against
func RefreshProfileForLoan(ctx context.Context, repos appshared.Repositories, loan *submission.LoanApplication) (*customer.Profile, error) {
	ao, err := repos.AccountOpenings().FindByID(ctx, loan.AccountOpeningID)
	if err != nil {
		if shared.HasCode(err, shared.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return RefreshProfile(ctx, repos, ao)
}

// AttachToProfile refreshes the loan's profile and appends documents to it
func AttachToProfile(ctx context.Context, repos appshared.Repositories, loan *submission.LoanApplication, docs []document.Document) (*customer.Profile, error) {
	ao, err := repos.AccountOpenings().FindByID(ctx, loan.AccountOpeningID)
	if err != nil {
		if shared.HasCode(err, shared.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if ao.AccountNumber == nil {
		return nil, nil
	}
	return updateProfile(ctx, repos, *ao.AccountNumber, ao, func(p *customer.Profile) {
		p.AttachDocuments(docs...)
	})
}

// SyncInbound records an inbound email for the account number, linking the
// account opening when one carries that number.
func SyncInbound(ctx context.Context, repos appshared.Repositories, accountNumber string, receivedAt time.Time) (*customer.Profile, error) {
	ao, err := repos.AccountOpenings().FindByAccountNumber(ctx, accountNumber)
	if err != nil {
		if !shared.HasCode(err, shared.CodeNotFound) {
			return nil, err
		}
		ao = nil
	}
	return updateProfile(ctx, repos, accountNumber, ao, func(p *customer.Profile) {
		p.RecordInboundEmail(receivedAt)
	})
}

func updateProfile(ctx context.Context, repos appshared.Repositories, accountNumber string, ao *submission.AccountOpening, apply func(*customer.Profile)) (*customer.Profile, error) {
	profile, err := LoadOrNew(ctx, repos, accountNumber)
	if err != nil {
		return nil, err
	}
	if ao != nil {
		links, err := Links(ctx, repos, ao)
		if err != nil {
			return nil, err
		}
		profile.Refresh(links)
	}
	apply(profile)
	if err := repos.Profiles().Save(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
