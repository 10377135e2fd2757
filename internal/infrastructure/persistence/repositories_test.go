package persistence

import (
	"context"
	"testing"

	"github.com/propflow/backend/internal/domain/customer"
	"github.com/propflow/backend/internal/domain/ingestion"
	"github.com/propflow/backend/internal/domain/notification"
	"github.com/propflow/backend/internal/domain/property"
	"github.com/propflow/backend/internal/domain/requirement"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/domain/submission"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandRepository_VersionedUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewStandRepository(NewEntityStore(newTestDB(t)))

	stand, err := property.NewStand(1, 1, "Stand 1", decimal.NewFromInt(300), decimal.NewFromInt(120000))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, stand))
	assert.Equal(t, 1, stand.GetVersion())

	first, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, first.ChangeStatus(property.StandReserved, "admin"))
	require.NoError(t, repo.Update(ctx, first))

	require.NoError(t, second.ChangeStatus(property.StandArchived, "admin"))
	assert.ErrorIs(t, repo.Update(ctx, second), shared.ErrConcurrentModification)

	stored, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, property.StandReserved, stored.Status)
	assert.True(t, stored.Price.Equal(decimal.NewFromInt(120000)))

	_, err = repo.FindByID(ctx, 99)
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))
	assert.EqualError(t, err, "Stand 99 not found")
}

func TestStandRepository_ListFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewStandRepository(NewEntityStore(newTestDB(t)))

	for i, projectID := range []int64{1, 1, 2} {
		s, err := property.NewStand(int64(i+1), projectID, "Stand", decimal.Zero, decimal.Zero)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, s))
	}

	projectID := int64(1)
	stands, err := repo.List(ctx, property.StandFilter{ProjectID: &projectID})
	require.NoError(t, err)
	require.Len(t, stands, 2)
	assert.Equal(t, int64(1), stands[0].ID)
	assert.Equal(t, int64(2), stands[1].ID)
}

func TestRequirementRepository_ListByWorkflowOrdered(t *testing.T) {
	ctx := context.Background()
	repo := NewRequirementRepository(NewEntityStore(newTestDB(t)))

	for _, r := range []struct {
		id       int64
		name     string
		wf       requirement.WorkflowType
		position int
	}{
		{1, "Bank Statement", requirement.WorkflowOffer, 2},
		{2, "ID Copy", requirement.WorkflowOffer, 1},
		{3, "Payslip", requirement.WorkflowLoanApplication, 1},
	} {
		req, err := requirement.NewRequirement(r.id, r.name, r.wf, requirement.Slugify(r.name), r.position, "")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, req))
	}

	offers, err := repo.ListByWorkflow(ctx, requirement.WorkflowOffer)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, "id_copy", offers[0].Slug)
	assert.Equal(t, "bank_statement", offers[1].Slug)
}

func TestAccountOpeningRepository_FindByAccountNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountOpeningRepository(NewEntityStore(newTestDB(t)))

	ao := &submission.AccountOpening{Header: submission.Header{ID: 7, Realtor: "alice"}}
	ao.Sanitize()
	require.NoError(t, repo.Create(ctx, ao))
	require.NoError(t, ao.Open("ACC-7", decimal.NewFromInt(100), "manager"))
	require.NoError(t, repo.Update(ctx, ao))

	found, err := repo.FindByAccountNumber(ctx, "ACC-7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), found.ID)
	assert.Equal(t, submission.StatusInProgress, found.Status)

	_, err = repo.FindByAccountNumber(ctx, "ACC-8")
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))
}

func TestNotificationRepository_AppendOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(NewEntityStore(newTestDB(t)))

	for i := 0; i < 2; i++ {
		n, err := notification.New(notification.KindAgreement, "Agreement #1 is ready", "agreement:1", "admin")
		require.NoError(t, err)
		_, err = repo.AppendOnce(ctx, n)
		require.NoError(t, err)
	}
	other, err := notification.New(notification.KindSubmission, "Offer #2 submitted", "offer:2", "alice")
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, other))

	all, err := repo.List(ctx, notification.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	kind := notification.KindAgreement
	filtered, err := repo.List(ctx, notification.Filter{Kind: &kind})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Agreement #1 is ready", filtered[0].Message)

	latest, err := repo.List(ctx, notification.Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "Offer #2 submitted", latest[0].Message)
}

func TestLoanAccountRepository_FindReturnsEmptyLedger(t *testing.T) {
	ctx := context.Background()
	repo := NewLoanAccountRepository(NewEntityStore(newTestDB(t)))

	ledger, err := repo.Find(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", ledger.Realtor)
	assert.Empty(t, ledger.Accounts)
	assert.Zero(t, ledger.GetVersion())

	require.NoError(t, repo.Save(ctx, ledger))
	reloaded, err := repo.Find(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.GetVersion())
}

func TestSnapshotSave_FirstWriteRaceIsConcurrentModification(t *testing.T) {
	ctx := context.Background()
	store := NewEntityStore(newTestDB(t))
	ledgers := NewLoanAccountRepository(store)

	first, err := ledgers.Find(ctx, "alice")
	require.NoError(t, err)
	second, err := ledgers.Find(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, ledgers.Save(ctx, first))
	err = ledgers.Save(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)
	assert.True(t, shared.HasCode(err, shared.CodeConcurrentModification))

	profiles := NewProfileRepository(store)
	a, err := customer.NewProfile("ACC-1")
	require.NoError(t, err)
	b, err := customer.NewProfile("ACC-1")
	require.NoError(t, err)
	require.NoError(t, profiles.Save(ctx, a))
	assert.ErrorIs(t, profiles.Save(ctx, b), shared.ErrConcurrentModification)
}

func TestImportedAccountRepository_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	repo := NewImportedAccountRepository(NewEntityStore(newTestDB(t)))

	record := func(balance string) *ingestion.ImportedAccount {
		a, err := ingestion.Normalize(ingestion.KindDeposit, ingestion.RawRecord{ID: "D-1", Balance: balance}, "", testNow)
		require.NoError(t, err)
		return a
	}
	require.NoError(t, repo.Save(ctx, record("10")))
	require.NoError(t, repo.Save(ctx, record("25.50")))

	deposits, err := repo.List(ctx, ingestion.KindDeposit)
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, "25.5", deposits[0].Balance.String())

	loans, err := repo.List(ctx, ingestion.KindLoan)
	require.NoError(t, err)
	assert.Empty(t, loans)
}
