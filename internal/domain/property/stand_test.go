package property

import (
	"testing"
	"time"

	"github.com/propflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStand(t *testing.T) *Stand {
	t.Helper()
	s, err := NewStand(1, 1, "Stand1", decimal.NewFromInt(100), decimal.NewFromInt(1000))
	require.NoError(t, err)
	return s
}

func TestNewStand(t *testing.T) {
	s := newTestStand(t)
	assert.Equal(t, StandAvailable, s.Status)

	_, err := NewStand(2, 1, " ", decimal.Zero, decimal.Zero)
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))

	_, err = NewStand(2, 1, "Neg", decimal.NewFromInt(-1), decimal.Zero)
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
}

func TestStand_ChangeStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    StandStatus
		to      StandStatus
		wantErr string
	}{
		{"available to reserved", StandAvailable, StandReserved, ""},
		{"available to archived", StandAvailable, StandArchived, ""},
		{"reserved to available", StandReserved, StandAvailable, ""},
		{"archived to available", StandArchived, StandAvailable, ""},
		{"archived to reserved", StandArchived, StandReserved, shared.CodeConflict},
		{"direct sale rejected", StandAvailable, StandSold, shared.CodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStand(t)
			s.Status = tt.from
			err := s.ChangeStatus(tt.to, "admin")
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.to, s.Status)
				assert.Len(t, s.GetDomainEvents(), 1)
				return
			}
			assert.True(t, shared.HasCode(err, tt.wantErr), "got %v", err)
			assert.Equal(t, tt.from, s.Status)
		})
	}
}

func TestStand_SoldIsImmutable(t *testing.T) {
	s := newTestStand(t)
	require.NoError(t, s.MarkSold("LA00000001", "admin"))
	assert.Equal(t, StandSold, s.Status)
	assert.NotNil(t, s.SoldAt)

	name := "Renamed"
	before := *s
	assertConflict := func(err error) {
		t.Helper()
		assert.True(t, shared.HasCode(err, shared.CodeConflict), "got %v", err)
	}
	assertConflict(s.Update(StandUpdate{Name: &name}))
	assertConflict(s.ChangeStatus(StandArchived, "admin"))
	assertConflict(s.MarkSold("LA00000002", "admin"))
	_, err := s.AssignMandate("bob", "", nil, "admin")
	assertConflict(err)
	assertConflict(s.EnsureMutable())

	assert.Equal(t, before.Name, s.Name)
	assert.Equal(t, before.LoanAccountNumber, s.LoanAccountNumber)
	assert.Equal(t, StandSold, s.Status)
}

func TestStand_MandateLifecycle(t *testing.T) {
	s := newTestStand(t)

	action, err := s.AssignMandate("alice", "mandate.pdf", nil, "admin")
	require.NoError(t, err)
	assert.Equal(t, ActionAssigned, action)
	assert.Equal(t, MandatePending, s.Mandate.Status)

	err = s.AcceptMandate("bob")
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))

	require.NoError(t, s.AcceptMandate("alice"))
	assert.Equal(t, MandateAccepted, s.Mandate.Status)
	assert.True(t, s.IsAvailableTo("alice", time.Now()))
	assert.False(t, s.IsAvailableTo("bob", time.Now()))

	err = s.AcceptMandate("alice")
	assert.True(t, shared.HasCode(err, shared.CodeConflict))

	action, err = s.AssignMandate("bob", "", nil, "admin")
	require.NoError(t, err)
	assert.Equal(t, ActionReassigned, action)
	assert.Equal(t, MandatePending, s.Mandate.Status)
	assert.False(t, s.IsAvailableTo("alice", time.Now()))
}

func TestStand_RejectMandate(t *testing.T) {
	s := newTestStand(t)
	_, err := s.AssignMandate("alice", "", nil, "admin")
	require.NoError(t, err)

	err = s.RejectMandate("bob", false, "")
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))

	require.NoError(t, s.RejectMandate("admin", true, "wrong agent"))
	assert.Equal(t, MandateRejected, s.Mandate.Status)
	assert.Equal(t, "wrong agent", s.Mandate.Reason)
}

func TestStand_ExpiredMandate(t *testing.T) {
	s := newTestStand(t)
	past := time.Now().Add(-time.Hour)
	_, err := s.AssignMandate("alice", "", &past, "admin")
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))

	future := time.Now().Add(time.Hour)
	_, err = s.AssignMandate("alice", "", &future, "admin")
	require.NoError(t, err)
	require.NoError(t, s.AcceptMandate("alice"))

	assert.True(t, s.IsAvailableTo("alice", time.Now()))
	assert.False(t, s.IsAvailableTo("alice", future.Add(time.Minute)))
}
