package loanaccount

import (
	"testing"
	"time"

	"github.com/propflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAndParseNumber(t *testing.T) {
	assert.Equal(t, "LA00000001", FormatNumber("LA", 1))
	assert.Equal(t, "LA12345678", FormatNumber("LA", 12345678))

	n, err := ParseSequence("LA", "LA00000042")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = ParseSequence("LA", "XX00000042")
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
}

func TestLedgerAdd(t *testing.T) {
	l := NewLedger("agent1")
	acc := Account{Number: "LA00000001", LoanApplicationID: 9, AgreementID: 9, StandID: 3, OpenedBy: "admin", OpenedAt: time.Now().UTC()}
	require.NoError(t, l.Add(acc, "admin"))
	assert.Len(t, l.Accounts, 1)
	assert.Len(t, l.GetDomainEvents(), 1)

	dup := acc
	dup.LoanApplicationID = 10
	assert.True(t, shared.HasCode(l.Add(dup, "admin"), shared.CodeConflict))

	again := acc
	again.Number = "LA00000002"
	assert.True(t, shared.HasCode(l.Add(again, "admin"), shared.CodeConflict))
}
