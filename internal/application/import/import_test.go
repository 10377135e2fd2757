package importapp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/propflow/backend/internal/domain/ingestion"
	"github.com/propflow/backend/internal/domain/property"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/tests/testutil"
)

func TestAccountImportService_Import(t *testing.T) {
	ctx := context.Background()
	scope, _ := testutil.NewTestScope(t)
	svc := NewAccountImportService(scope, zap.NewNop())
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	csv := "id,account_number,holder_name,balance,source_system,branch,source_meta_batch\n" +
		"D-1,ACC-1,Jane Doe,1500.50,,Harare,7\n" +
		"D-2,,John Roe,abc,,,\n" +
		",ACC-3,Nobody,1,,,\n" +
		"D-4,ACC-4,Ann,0,corebank,,\n"

	result, err := svc.Import(ctx, ingestion.KindDeposit, strings.NewReader(csv), "")
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalRows)
	assert.Equal(t, 2, result.ImportedRows)
	assert.Equal(t, 2, result.ErrorRows)

	accounts, err := svc.List(ctx, testutil.Compliance(), "deposit")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	first := accounts[0]
	assert.Equal(t, "D-1", first.ID)
	assert.Equal(t, "external", first.Audit.System)
	assert.Equal(t, "D-1", first.Audit.Reference)
	assert.Equal(t, fixed, first.Audit.IngestedAt)
	assert.Equal(t, "Harare", first.Metadata["branch"])
	assert.Equal(t, "7", first.Audit.Metadata["batch"])
	assert.Equal(t, "corebank", accounts[1].Audit.System)

	loans, err := svc.List(ctx, testutil.Compliance(), "loan")
	require.NoError(t, err)
	assert.Empty(t, loans)

	_, err = svc.List(ctx, testutil.Agent("agent1"), "deposit")
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))

	// re-importing replaces the record
	_, err = svc.Import(ctx, ingestion.KindDeposit, strings.NewReader("id,balance\nD-1,10\n"), "bank")
	require.NoError(t, err)
	accounts, err = svc.List(ctx, testutil.Compliance(), "deposit")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "10", accounts[0].Balance.String())

	_, err = svc.Import(ctx, ingestion.KindLoan, strings.NewReader("account_number\nX\n"), "")
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
}

func TestStandImportService_Import(t *testing.T) {
	ctx := context.Background()
	scope, _ := testutil.NewTestScope(t)
	svc := NewStandImportService(scope, zap.NewNop())

	csv := "project,name,size,price\n" +
		"Riverside,Stand 1,500,120000\n" +
		"riverside,Stand 2,450,99000\n" +
		"Hilltop,Stand A,,\n" +
		"Hilltop,,300,1000\n" +
		"Hilltop,Stand B,big,1000\n"

	_, err := svc.Import(ctx, testutil.Manager(), strings.NewReader(csv))
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))

	result, err := svc.Import(ctx, testutil.Admin(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalRows)
	assert.Equal(t, 3, result.ImportedRows)
	assert.Equal(t, 2, result.ErrorRows)

	repos := scope.Repositories()
	projects, err := repos.Projects().List(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "Riverside", projects[0].Name)

	stands, err := repos.Stands().List(ctx, property.StandFilter{ProjectID: &projects[0].ID})
	require.NoError(t, err)
	assert.Len(t, stands, 2)

	_, err = svc.Import(ctx, testutil.Admin(), strings.NewReader("name\nStand 9\n"))
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
}

func TestImportServices_WarnOnSkippedRows(t *testing.T) {
	ctx := context.Background()
	scope, _ := testutil.NewTestScope(t)
	core, logs := observer.New(zapcore.WarnLevel)

	stands := NewStandImportService(scope, zap.New(core))
	_, err := stands.Import(ctx, testutil.Admin(), strings.NewReader("project,name\nRiverside,Stand 1\n"))
	require.NoError(t, err)
	assert.Zero(t, logs.Len())

	_, err = stands.Import(ctx, testutil.Admin(), strings.NewReader("project,name,size\nRiverside,Stand 2,big\nRiverside,,\n"))
	require.NoError(t, err)
	warned := logs.FilterMessage("Skipped invalid stand rows").All()
	require.Len(t, warned, 1)
	assert.EqualValues(t, 2, warned[0].ContextMap()["error_rows"])

	accounts := NewAccountImportService(scope, zap.New(core))
	_, err = accounts.Import(ctx, ingestion.KindDeposit, strings.NewReader("id,account_number\n,ACC-1\nD-2,ACC-2\n"), "")
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Skipped unreadable account rows").Len())
}
