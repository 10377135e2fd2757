package contactsetting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/tests/testutil"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	scope, _ := testutil.NewTestScope(t)
	svc := NewService(scope, []string{"ops@example.com"}, zap.NewNop())

	view, err := svc.Get(ctx, testutil.Admin(), "deposit")
	require.NoError(t, err)
	assert.False(t, view.Configured)
	assert.Equal(t, []string{"ops@example.com"}, view.Recipients)

	_, err = svc.Get(ctx, testutil.Manager(), "deposit")
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))
	_, err = svc.Get(ctx, testutil.Admin(), "sales")
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))

	view, err = svc.Update(ctx, testutil.Admin(), "deposit", UpdateRequest{
		Recipients: []string{" a@example.com ", "A@example.com", "b@example.com"},
	})
	require.NoError(t, err)
	assert.True(t, view.Configured)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, view.Recipients)

	view, err = svc.Update(ctx, testutil.Admin(), "deposit", UpdateRequest{Recipients: []string{"c@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c@example.com"}, view.Recipients)

	_, err = svc.Update(ctx, testutil.Admin(), "deposit", UpdateRequest{Recipients: []string{"not-an-address"}})
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))

	other, err := svc.Get(ctx, testutil.Admin(), "loan_accounts")
	require.NoError(t, err)
	assert.False(t, other.Configured)

	view, err = svc.Reset(ctx, testutil.Admin(), "deposit")
	require.NoError(t, err)
	assert.False(t, view.Configured)
	assert.Equal(t, []string{"ops@example.com"}, view.Recipients)

	// resetting twice is harmless
	_, err = svc.Reset(ctx, testutil.Admin(), "deposit")
	assert.NoError(t, err)
}
