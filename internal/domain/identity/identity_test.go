package identity

import (
	"testing"

	"github.com/propflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	PasswordCost = bcrypt.MinCost
}

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role       Role
		admin      bool
		management bool
		compliance bool
	}{
		{RoleAdmin, true, true, true},
		{RoleManager, false, true, false},
		{RoleCompliance, false, false, true},
		{RoleAgent, false, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.True(t, tt.role.Has(CapabilityAuthenticated))
			assert.Equal(t, tt.admin, tt.role.Has(CapabilityAdmin))
			assert.Equal(t, tt.management, tt.role.Has(CapabilityManagement))
			assert.Equal(t, tt.compliance, tt.role.Has(CapabilityCompliance))
		})
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" ADMIN ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	_, err = ParseRole("owner")
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
}

func TestPrincipal_Require(t *testing.T) {
	agent := NewPrincipal("alice", RoleAgent)

	err := agent.Require(CapabilityAdmin)
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))
	assert.Equal(t, "Admin privileges required", err.Error())

	assert.NoError(t, agent.Require(CapabilityAuthenticated))

	var anonymous Principal
	assert.True(t, shared.HasCode(anonymous.Require(CapabilityAuthenticated), shared.CodeUnauthenticated))
}

func TestPrincipal_Ownership(t *testing.T) {
	alice := NewPrincipal("alice", RoleAgent)
	manager := NewPrincipal("mona", RoleManager)
	admin := NewPrincipal("root", RoleAdmin)

	assert.True(t, alice.IsOwnerOrAdmin("alice"))
	assert.False(t, alice.IsOwnerOrAdmin("bob"))
	assert.False(t, manager.IsOwnerOrAdmin("alice"))
	assert.True(t, admin.IsOwnerOrAdmin("alice"))

	assert.True(t, manager.CanView("alice"))
	assert.False(t, alice.CanView("bob"))
	assert.True(t, shared.HasCode(alice.RequireViewer("bob"), shared.CodeForbidden))
}

func TestNewAccount(t *testing.T) {
	t.Run("hashes password", func(t *testing.T) {
		acct, err := NewAccount("realtor", "RealtorPass123", RoleAgent, 8, "admin")
		require.NoError(t, err)
		assert.NotEqual(t, "RealtorPass123", acct.PasswordHash)
		assert.True(t, acct.CheckPassword("RealtorPass123"))
		assert.False(t, acct.CheckPassword("wrong"))
		assert.True(t, acct.Active)
	})

	t.Run("blank password", func(t *testing.T) {
		_, err := NewAccount("realtor", "   ", RoleAgent, 8, "admin")
		require.Error(t, err)
		assert.Equal(t, "Password does not meet requirements", err.Error())
	})

	t.Run("short password", func(t *testing.T) {
		_, err := NewAccount("realtor", "short", RoleAgent, 8, "admin")
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
	})

	t.Run("invalid username", func(t *testing.T) {
		_, err := NewAccount("bad name", "RealtorPass123", RoleAgent, 8, "admin")
		assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
	})
}
