package loanaccount

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appagreement "github.com/propflow/backend/internal/application/agreement"
	appproperty "github.com/propflow/backend/internal/application/property"
	appshared "github.com/propflow/backend/internal/application/shared"
	appsubmission "github.com/propflow/backend/internal/application/submission"
	"github.com/propflow/backend/internal/domain/notification"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/infrastructure/storage"
	"github.com/propflow/backend/tests/testutil"
)

type countingRecorder struct{ n int }

func (c *countingRecorder) RecordFinalization(context.Context) { c.n++ }

type fixture struct {
	scope      appshared.TransactionScope
	agreements *appagreement.Service
	metrics    *countingRecorder
	service    *Service
	standID    int64
}

// newFixture prepares loan application 10 of agent1, approved with a drafted
// agreement for a fresh stand.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	scope, _ := testutil.NewTestScope(t)
	logger := zap.NewNop()
	docs := storage.NewInlineDocumentStore()

	project, err := appproperty.NewProjectService(scope, logger).Create(ctx, testutil.Admin(), appproperty.CreateProjectRequest{Name: "Riverside"})
	require.NoError(t, err)
	stand, err := appproperty.NewStandService(scope, logger).Create(ctx, testutil.Admin(), project.ID, appproperty.CreateStandRequest{
		Name: "Stand 3", Size: decimal.NewFromInt(300), Price: decimal.NewFromInt(70000),
	})
	require.NoError(t, err)

	submissions := appsubmission.NewService(scope, docs, logger)
	_, err = submissions.CreateAccountOpening(ctx, testutil.Agent("agent1"), appsubmission.AccountOpeningRequest{
		Fields: appsubmission.Fields{ID: 1, Realtor: "agent1"},
	})
	require.NoError(t, err)
	_, err = submissions.OpenAccount(ctx, testutil.Manager(), 1, appsubmission.OpenAccountRequest{
		AccountNumber: "ACC-1", DepositThreshold: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	_, err = submissions.RecordDeposit(ctx, testutil.Manager(), 1, appsubmission.DepositRequest{Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	propertyID := stand.ID
	_, err = submissions.CreateLoanApplication(ctx, testutil.Agent("agent1"), appsubmission.LoanApplicationRequest{
		Fields:    appsubmission.Fields{ID: 10, Realtor: "agent1", PropertyID: &propertyID},
		AccountID: 1,
	})
	require.NoError(t, err)
	_, err = submissions.DecideLoanApplication(ctx, testutil.Manager(), 10, appsubmission.DecisionRequest{Decision: "approved"})
	require.NoError(t, err)

	metrics := &countingRecorder{}
	return &fixture{
		scope:      scope,
		agreements: appagreement.NewService(scope, docs, logger),
		metrics:    metrics,
		service:    NewService(scope, "", metrics, logger),
		standID:    stand.ID,
	}
}

func (f *fixture) signBoth(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.agreements.Sign(ctx, testutil.Agent("agent1"), 10, appagreement.SignRequest{Party: "customer", DocumentURL: "https://docs/customer.pdf"})
	require.NoError(t, err)
	resp, err := f.agreements.Sign(ctx, testutil.Admin(), 10, appagreement.SignRequest{Party: "bank", DocumentURL: "https://docs/bank.pdf"})
	require.NoError(t, err)
	require.Equal(t, "signed", resp.Status)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Create(ctx, testutil.Admin(), CreateRequest{AgreementID: 10})
	assert.True(t, shared.HasCode(err, shared.CodeConflict))

	f.signBoth(t)

	_, err = f.service.Create(ctx, testutil.Manager(), CreateRequest{AgreementID: 10})
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))
	_, err = f.service.Create(ctx, testutil.Admin(), CreateRequest{AgreementID: 99})
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))

	resp, err := f.service.Create(ctx, testutil.Admin(), CreateRequest{AgreementID: 10})
	require.NoError(t, err)
	assert.Equal(t, "LA00000001", resp.LoanAccountNumber)
	assert.Equal(t, "agent1", resp.Realtor)
	assert.Equal(t, int64(10), resp.LoanApplicationID)
	assert.Equal(t, f.standID, resp.PropertyID)
	assert.Equal(t, "ACC-1", resp.AccountNumber)
	assert.Equal(t, 1, f.metrics.n)

	repos := f.scope.Repositories()
	loan, err := repos.LoanApplications().FindByID(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, loan.LoanAccountNumber)
	assert.Equal(t, "LA00000001", *loan.LoanAccountNumber)

	stand, err := repos.Stands().FindByID(ctx, f.standID)
	require.NoError(t, err)
	assert.True(t, stand.IsSold())
	assert.Equal(t, "LA00000001", stand.LoanAccountNumber)

	kind := notification.KindLoanAccount
	notes, err := repos.Notifications().List(ctx, notification.Filter{Kind: &kind})
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	// a second finalization changes nothing
	_, err = f.service.Create(ctx, testutil.Admin(), CreateRequest{AgreementID: 10})
	assert.True(t, shared.HasCode(err, shared.CodeConflict))
	assert.Equal(t, 1, f.metrics.n)

	ledger, err := repos.LoanAccounts().Find(ctx, "agent1")
	require.NoError(t, err)
	assert.Len(t, ledger.Accounts, 1)
}

func TestService_CreateRollsBackOnSoldStand(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signBoth(t)

	err := f.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		stand, err := repos.Stands().FindByID(ctx, f.standID)
		if err != nil {
			return err
		}
		if err := stand.MarkSold("MANUAL", "admin"); err != nil {
			return err
		}
		return repos.Stands().Update(ctx, stand)
	})
	require.NoError(t, err)

	_, err = f.service.Create(ctx, testutil.Admin(), CreateRequest{AgreementID: 10})
	assert.True(t, shared.HasCode(err, shared.CodeConflict))

	loan, err := f.scope.Repositories().LoanApplications().FindByID(ctx, 10)
	require.NoError(t, err)
	assert.Nil(t, loan.LoanAccountNumber)
	ledger, err := f.scope.Repositories().LoanAccounts().Find(ctx, "agent1")
	require.NoError(t, err)
	assert.Empty(t, ledger.Accounts)
	assert.Zero(t, f.metrics.n)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signBoth(t)
	_, err := f.service.Create(ctx, testutil.Admin(), CreateRequest{AgreementID: 10})
	require.NoError(t, err)

	mine, err := f.service.ListMine(ctx, testutil.Agent("agent1"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "LA00000001", mine[0].LoanAccountNumber)

	none, err := f.service.ListMine(ctx, testutil.Agent("agent2"))
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.service.ListFor(ctx, testutil.Agent("agent2"), "agent1")
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))

	all, err := f.service.ListFor(ctx, testutil.Admin(), "agent1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
