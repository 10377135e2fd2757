package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/tests/testutil"
)

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.bootstrap(t)

	t.Run("admin creates agent", func(t *testing.T) {
		info, err := f.accounts.CreateAccount(ctx, testutil.Admin(), CreateAccountInput{Username: "alice", Password: "alice-password", Role: "AGENT"})
		require.NoError(t, err)
		assert.Equal(t, identity.RoleAgent, info.Role)
		assert.Equal(t, "admin", info.CreatedBy)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := f.accounts.CreateAccount(ctx, testutil.Admin(), CreateAccountInput{Username: "alice", Password: "alice-password", Role: "agent"})
		assert.True(t, shared.HasCode(err, shared.CodeConflict))
	})

	t.Run("manager is forbidden", func(t *testing.T) {
		_, err := f.accounts.CreateAccount(ctx, testutil.Manager(), CreateAccountInput{Username: "bob", Password: "bob-password", Role: "agent"})
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeForbidden))
		assert.Equal(t, "Admin privileges required", err.Error())
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := f.accounts.CreateAccount(ctx, testutil.Admin(), CreateAccountInput{Username: "bob", Password: "bob-password", Role: "owner"})
		assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
	})

	t.Run("short password", func(t *testing.T) {
		_, err := f.accounts.CreateAccount(ctx, testutil.Admin(), CreateAccountInput{Username: "bob", Password: "short", Role: "agent"})
		assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
	})
}

func TestListAccountsAndAgents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.bootstrap(t)

	for _, in := range []CreateAccountInput{
		{Username: "alice", Password: "alice-password", Role: "agent"},
		{Username: "bob", Password: "bob-password", Role: "agent"},
		{Username: "mia", Password: "mia-password", Role: "manager"},
	} {
		_, err := f.accounts.CreateAccount(ctx, testutil.Admin(), in)
		require.NoError(t, err)
	}

	all, err := f.accounts.ListAccounts(ctx, testutil.Admin())
	require.NoError(t, err)
	assert.Len(t, all, 4)

	agents, err := f.accounts.ListAgents(ctx, testutil.Admin())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "alice", agents[0].Username)
	assert.Equal(t, "bob", agents[1].Username)

	_, err = f.accounts.ListAgents(ctx, testutil.Manager())
	require.Error(t, err)
	assert.Equal(t, "Admin privileges required", err.Error())
}
