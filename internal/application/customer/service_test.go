package customer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/tests/testutil"
)

func newProfileService(t *testing.T, accounts ...string) *ProfileService {
	t.Helper()
	scope, _ := testutil.NewTestScope(t)
	for _, acc := range accounts {
		err := scope.Execute(context.Background(), func(ctx context.Context, repos appshared.Repositories) error {
			_, err := SyncInbound(ctx, repos, acc, time.Now())
			return err
		})
		require.NoError(t, err)
	}
	return NewProfileService(scope, zap.NewNop())
}

func TestProfileService_ListAndGet(t *testing.T) {
	ctx := context.Background()
	svc := newProfileService(t, "ACC-200", "ACC-100")

	list, err := svc.List(ctx, testutil.Compliance())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ACC-100", list[0].AccountNumber)
	assert.Equal(t, "ACC-200", list[1].AccountNumber)

	got, err := svc.Get(ctx, testutil.Admin(), "ACC-200")
	require.NoError(t, err)
	assert.NotNil(t, got.LastInboundEmailAt)

	_, err = svc.Get(ctx, testutil.Compliance(), "ACC-404")
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))

	_, err = svc.List(ctx, testutil.Agent("alice"))
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))
	_, err = svc.Get(ctx, testutil.Manager(), "ACC-100")
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))
}

func TestProfileService_DeletionFlow(t *testing.T) {
	ctx := context.Background()
	svc := newProfileService(t, "ACC-100")

	err := svc.Delete(ctx, testutil.Compliance(), "ACC-100")
	assert.True(t, shared.HasCode(err, shared.CodeConflict))

	_, err = svc.ApproveDeletion(ctx, testutil.Admin(), "ACC-100")
	assert.True(t, shared.HasCode(err, shared.CodeConflict), "approval needs a request on file")

	_, err = svc.RequestDeletion(ctx, testutil.Agent("alice"), "ACC-100")
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))

	requested, err := svc.RequestDeletion(ctx, testutil.Compliance(), "ACC-100")
	require.NoError(t, err)
	assert.True(t, requested.DeletionRequested)
	require.NotNil(t, requested.DeletionRequestedBy)
	assert.Nil(t, requested.DeletionApprovedAt)

	err = svc.Delete(ctx, testutil.Compliance(), "ACC-100")
	assert.True(t, shared.HasCode(err, shared.CodeConflict))

	_, err = svc.ApproveDeletion(ctx, testutil.Compliance(), "ACC-100")
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))

	approved, err := svc.ApproveDeletion(ctx, testutil.Admin(), "ACC-100")
	require.NoError(t, err)
	require.NotNil(t, approved.DeletionApprovedAt)
	require.NotNil(t, approved.DeletionApprovedBy)
	assert.Equal(t, testutil.Admin().Username, *approved.DeletionApprovedBy)

	require.NoError(t, svc.Delete(ctx, testutil.Compliance(), "ACC-100"))

	_, err = svc.Get(ctx, testutil.Compliance(), "ACC-100")
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))
}

func TestProfileService_RequestDeletionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newProfileService(t, "ACC-100")

	first, err := svc.RequestDeletion(ctx, testutil.Compliance(), "ACC-100")
	require.NoError(t, err)
	second, err := svc.RequestDeletion(ctx, testutil.Admin(), "ACC-100")
	require.NoError(t, err)

	require.NotNil(t, second.DeletionRequestedBy)
	assert.Equal(t, *first.DeletionRequestedBy, *second.DeletionRequestedBy)
	assert.True(t, first.DeletionRequestedAt.Equal(*second.DeletionRequestedAt))
}
