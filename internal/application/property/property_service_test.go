package property

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appidentity "github.com/propflow/backend/internal/application/identity"
	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/notification"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/infrastructure/config"
	"github.com/propflow/backend/tests/testutil"
)

type fixture struct {
	scope    appshared.TransactionScope
	projects *ProjectService
	stands   *StandService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	testutil.FastPasswords(t)
	scope, _ := testutil.NewTestScope(t)
	logger := zap.NewNop()

	accounts := appidentity.NewAccountService(scope, config.AuthConfig{MinPasswordLength: 8}, logger)
	for _, name := range []string{"alice", "bob"} {
		_, err := accounts.CreateAccount(context.Background(), testutil.Admin(), appidentity.CreateAccountInput{
			Username: name, Password: name + "-password", Role: "agent",
		})
		require.NoError(t, err)
	}
	_, err := accounts.CreateAccount(context.Background(), testutil.Admin(), appidentity.CreateAccountInput{
		Username: "mia", Password: "mia-password", Role: "manager",
	})
	require.NoError(t, err)

	return &fixture{
		scope:    scope,
		projects: NewProjectService(scope, logger),
		stands:   NewStandService(scope, logger),
	}
}

func (f *fixture) newStand(t *testing.T) *StandResponse {
	t.Helper()
	ctx := context.Background()
	project, err := f.projects.Create(ctx, testutil.Admin(), CreateProjectRequest{Name: "Riverside"})
	require.NoError(t, err)
	stand, err := f.stands.Create(ctx, testutil.Admin(), project.ID, CreateStandRequest{
		Name: "Stand 1", Size: decimal.NewFromInt(500), Price: decimal.NewFromInt(120000),
	})
	require.NoError(t, err)
	return stand
}

func TestProjectService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.projects.Create(ctx, testutil.Manager(), CreateProjectRequest{Name: "Riverside"})
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))

	first, err := f.projects.Create(ctx, testutil.Admin(), CreateProjectRequest{Name: "Riverside", Location: "North"})
	require.NoError(t, err)
	second, err := f.projects.Create(ctx, testutil.Admin(), CreateProjectRequest{Name: "Hilltop"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	name := "Riverside Estate"
	updated, err := f.projects.Update(ctx, testutil.Admin(), first.ID, UpdateProjectRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Riverside Estate", updated.Name)
	assert.Equal(t, "North", updated.Location)

	list, err := f.projects.List(ctx, testutil.Agent("alice"))
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.stands.Create(ctx, testutil.Admin(), first.ID, CreateStandRequest{Name: "Stand 1"})
	require.NoError(t, err)

	err = f.projects.Delete(ctx, testutil.Admin(), first.ID)
	assert.True(t, shared.HasCode(err, shared.CodeConflict))

	require.NoError(t, f.projects.Delete(ctx, testutil.Admin(), second.ID))
	_, err = f.projects.Get(ctx, testutil.Admin(), second.ID)
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))
}

func TestStandService_CreateRequiresProject(t *testing.T) {
	f := newFixture(t)
	_, err := f.stands.Create(context.Background(), testutil.Admin(), 99, CreateStandRequest{Name: "Stand 1"})
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))
}

func TestStandService_StatusTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stand := f.newStand(t)

	resp, err := f.stands.ChangeStatus(ctx, testutil.Admin(), stand.ID, ChangeStandStatusRequest{Status: "RESERVED"})
	require.NoError(t, err)
	assert.Equal(t, "reserved", resp.Status)

	_, err = f.stands.ChangeStatus(ctx, testutil.Admin(), stand.ID, ChangeStandStatusRequest{Status: "sold"})
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))

	resp, err = f.stands.ChangeStatus(ctx, testutil.Admin(), stand.ID, ChangeStandStatusRequest{Status: "archived"})
	require.NoError(t, err)
	assert.Equal(t, "archived", resp.Status)

	_, err = f.stands.ChangeStatus(ctx, testutil.Admin(), stand.ID, ChangeStandStatusRequest{Status: "reserved"})
	assert.True(t, shared.HasCode(err, shared.CodeConflict))

	_, err = f.stands.ChangeStatus(ctx, testutil.Manager(), stand.ID, ChangeStandStatusRequest{Status: "available"})
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))
}

func TestStandService_SoldStandIsFrozen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := f.newStand(t)

	err := f.scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		stand, err := repos.Stands().FindByID(ctx, created.ID)
		if err != nil {
			return err
		}
		if err := stand.MarkSold("LA00000001", "admin"); err != nil {
			return err
		}
		return repos.Stands().Update(ctx, stand)
	})
	require.NoError(t, err)

	name := "Renamed"
	_, err = f.stands.Update(ctx, testutil.Admin(), created.ID, UpdateStandRequest{Name: &name})
	assert.True(t, shared.HasCode(err, shared.CodeConflict))
	_, err = f.stands.AssignMandate(ctx, testutil.Admin(), created.ID, AssignMandateRequest{Agent: "alice"})
	assert.True(t, shared.HasCode(err, shared.CodeConflict))
	assert.True(t, shared.HasCode(f.stands.Delete(ctx, testutil.Admin(), created.ID), shared.CodeConflict))

	got, err := f.stands.Get(ctx, testutil.Admin(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stand 1", got.Name)
	assert.Equal(t, "sold", got.Status)
}

func TestStandService_MandateScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stand := f.newStand(t)

	resp, err := f.stands.AssignMandate(ctx, testutil.Admin(), stand.ID, AssignMandateRequest{Agent: "alice"})
	require.NoError(t, err)
	require.NotNil(t, resp.Mandate)
	assert.Equal(t, "pending", resp.Mandate.Status)

	// pending mandates do not make the stand available to the agent
	visible, err := f.stands.ListAvailable(ctx, testutil.Agent("alice"))
	require.NoError(t, err)
	assert.Empty(t, visible)

	_, err = f.stands.AcceptMandate(ctx, testutil.Agent("bob"), stand.ID)
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))

	resp, err = f.stands.AcceptMandate(ctx, testutil.Agent("alice"), stand.ID)
	require.NoError(t, err)
	assert.Equal(t, "accepted", resp.Mandate.Status)

	visible, err = f.stands.ListAvailable(ctx, testutil.Agent("alice"))
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, stand.ID, visible[0].ID)

	visible, err = f.stands.ListAvailable(ctx, testutil.Agent("bob"))
	require.NoError(t, err)
	assert.Empty(t, visible)

	visible, err = f.stands.ListAvailable(ctx, testutil.Manager())
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	// reassignment resets the mandate to pending
	resp, err = f.stands.AssignMandate(ctx, testutil.Admin(), stand.ID, AssignMandateRequest{Agent: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Mandate.Status)
	assert.Equal(t, "bob", resp.Mandate.Agent)

	resp, err = f.stands.RejectMandate(ctx, testutil.Agent("bob"), stand.ID, RejectMandateRequest{Reason: "too far"})
	require.NoError(t, err)
	assert.Equal(t, "rejected", resp.Mandate.Status)

	_, err = f.stands.MandateHistory(ctx, testutil.Agent("alice"), stand.ID)
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))

	history, err := f.stands.MandateHistory(ctx, testutil.Manager(), stand.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "assigned", history[0].Action)
	assert.Equal(t, "accepted", history[1].Action)
	assert.Equal(t, "reassigned", history[2].Action)
	assert.Equal(t, "rejected", history[3].Action)
	assert.Equal(t, "too far", history[3].Note)

	kind := notification.KindMandate
	notes, err := f.scope.Repositories().Notifications().List(ctx, notification.Filter{Kind: &kind})
	require.NoError(t, err)
	assert.Len(t, notes, 4)
}

func TestStandService_AssignMandateValidatesAgent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stand := f.newStand(t)

	_, err := f.stands.AssignMandate(ctx, testutil.Admin(), stand.ID, AssignMandateRequest{Agent: "ghost"})
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))

	_, err = f.stands.AssignMandate(ctx, testutil.Admin(), stand.ID, AssignMandateRequest{Agent: "mia"})
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))

	past := time.Now().Add(-time.Hour)
	_, err = f.stands.AssignMandate(ctx, testutil.Admin(), stand.ID, AssignMandateRequest{Agent: "alice", ExpiresAt: &past})
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
}

func TestStandService_ExpiredMandateHidden(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stand := f.newStand(t)

	expires := time.Now().Add(time.Hour)
	_, err := f.stands.AssignMandate(ctx, testutil.Admin(), stand.ID, AssignMandateRequest{Agent: "alice", ExpiresAt: &expires})
	require.NoError(t, err)
	_, err = f.stands.AcceptMandate(ctx, identity.NewPrincipal("alice", identity.RoleAgent), stand.ID)
	require.NoError(t, err)

	f.stands.now = func() time.Time { return expires.Add(time.Minute) }
	visible, err := f.stands.ListAvailable(ctx, testutil.Agent("alice"))
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestStandService_ListFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stand := f.newStand(t)
	_, err := f.stands.Create(ctx, testutil.Admin(), stand.ProjectID, CreateStandRequest{Name: "Stand 2"})
	require.NoError(t, err)
	_, err = f.stands.ChangeStatus(ctx, testutil.Admin(), stand.ID, ChangeStandStatusRequest{Status: "reserved"})
	require.NoError(t, err)

	reserved := "reserved"
	list, err := f.stands.List(ctx, testutil.Agent("alice"), StandListFilter{Status: &reserved})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, stand.ID, list[0].ID)

	bogus := "demolished"
	_, err = f.stands.List(ctx, testutil.Agent("alice"), StandListFilter{Status: &bogus})
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
}
