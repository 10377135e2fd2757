package ingestion

import (
	"testing"
	"time"

	"github.com/propflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFillsSourceDefaults(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.FixedZone("CAT", 2*3600))
	acc, err := Normalize(KindDeposit, RawRecord{ID: "D-1", Balance: "1500.50"}, "", now)
	require.NoError(t, err)

	assert.Equal(t, "D-1", acc.AccountNumber)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("1500.50")))
	assert.Equal(t, DefaultSourceSystem, acc.Audit.System)
	assert.Equal(t, "D-1", acc.Audit.Reference)
	assert.Equal(t, time.UTC, acc.Audit.IngestedAt.Location())
	assert.True(t, now.Equal(acc.Audit.IngestedAt))
	assert.NotNil(t, acc.Metadata)
	assert.NotNil(t, acc.Audit.Metadata)
	assert.Equal(t, "imported_deposit_accounts", acc.Kind.Collection())
}

func TestNormalizeKeepsExplicitSource(t *testing.T) {
	acc, err := Normalize(KindLoan, RawRecord{
		ID:              "L-9",
		AccountNumber:   "LN-9",
		SourceSystem:    "corebank",
		SourceReference: "batch-7",
		IngestedAt:      "2026-01-02T03:04:05Z",
		SourceMetadata:  map[string]string{"file": "loans.csv"},
	}, "fallback", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "corebank", acc.Audit.System)
	assert.Equal(t, "batch-7", acc.Audit.Reference)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), acc.Audit.IngestedAt)
	assert.Equal(t, "loans.csv", acc.Audit.Metadata["file"])
	assert.Equal(t, "imported_loan_accounts", acc.Kind.Collection())
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	_, err := Normalize(KindDeposit, RawRecord{}, "", time.Now())
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))

	_, err = Normalize(KindDeposit, RawRecord{ID: "x", Balance: "abc"}, "", time.Now())
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))

	_, err = Normalize(KindDeposit, RawRecord{ID: "x", IngestedAt: "yesterday"}, "", time.Now())
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
}
