package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appagreement "github.com/propflow/backend/internal/application/agreement"
	"github.com/propflow/backend/internal/application/customer"
	"github.com/propflow/backend/internal/application/loanaccount"
	"github.com/propflow/backend/internal/application/notification"
	"github.com/propflow/backend/internal/application/property"
	"github.com/propflow/backend/internal/application/report"
	"github.com/propflow/backend/internal/application/submission"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/infrastructure/storage"
	"github.com/propflow/backend/tests/testutil"
)

type lifecycle struct {
	standID int64
	router  func(p identity.Principal) *gin.Engine
}

func newLifecycle(t *testing.T) *lifecycle {
	t.Helper()
	scope, _ := testutil.NewTestScope(t)
	logger := zap.NewNop()
	docs := storage.NewInlineDocumentStore()

	ctx := context.Background()
	project, err := property.NewProjectService(scope, logger).Create(ctx, testutil.Admin(), property.CreateProjectRequest{Name: "Riverside"})
	require.NoError(t, err)
	stand, err := property.NewStandService(scope, logger).Create(ctx, testutil.Admin(), project.ID, property.CreateStandRequest{
		Name: "Stand 3", Size: decimal.NewFromInt(300), Price: decimal.NewFromInt(70000),
	})
	require.NoError(t, err)

	submissions := NewSubmissionHandler(submission.NewService(scope, docs, logger))
	agreements := NewAgreementHandler(appagreement.NewService(scope, docs, logger))
	loanAccounts := NewLoanAccountHandler(loanaccount.NewService(scope, "", nil, logger))
	profiles := NewProfileHandler(customer.NewProfileService(scope, logger))
	notifications := NewNotificationHandler(notification.NewService(scope))
	reports := NewReportHandler(report.NewReportService(scope))

	return &lifecycle{
		standID: stand.ID,
		router: func(p identity.Principal) *gin.Engine {
			router := gin.New()
			api := router.Group("", as(p))
			api.POST("/offers", submissions.CreateOffer)
			api.GET("/offers", submissions.ListOffers)
			api.GET("/offers/:id", submissions.GetOffer)
			api.PUT("/offers/:id/status", submissions.UpdateOfferStatus)
			api.POST("/account-openings", submissions.CreateAccountOpening)
			api.GET("/account-openings/:id", submissions.GetAccountOpening)
			api.POST("/account-openings/:id/approve", submissions.ApproveAccountOpening)
			api.PUT("/account-openings/:id/open", submissions.OpenAccount)
			api.POST("/account-openings/:id/deposits", submissions.RecordDeposit)
			api.POST("/loan-applications", submissions.CreateLoanApplication)
			api.GET("/loan-applications/:id", submissions.GetLoanApplication)
			api.POST("/loan-applications/:id/decision", submissions.DecideLoanApplication)
			api.GET("/agreements", agreements.List)
			api.GET("/agreements/:id", agreements.Get)
			api.POST("/agreements/:id/sign", agreements.Sign)
			api.POST("/loan-accounts", loanAccounts.Create)
			api.GET("/loan-accounts/me", loanAccounts.ListMine)
			api.GET("/loan-accounts/:realtor", loanAccounts.ListFor)
			api.GET("/profiles", profiles.List)
			api.GET("/profiles/:account_number", profiles.Get)
			api.POST("/profiles/:account_number/deletion-request", profiles.RequestDeletion)
			api.POST("/profiles/:account_number/deletion-approval", profiles.ApproveDeletion)
			api.DELETE("/profiles/:account_number", profiles.Delete)
			api.GET("/notifications", notifications.List)
			api.GET("/reports/properties.csv", reports.Properties)
			api.GET("/reports/loans.csv", reports.Loans)
			return router
		},
	}
}

func TestSubmissionHandler_Offer(t *testing.T) {
	l := newLifecycle(t)
	agent := l.router(testutil.Agent("agent1"))
	manager := l.router(testutil.Manager())

	offer := map[string]any{"id": 601, "realtor": "agent1", "property_id": l.standID, "status": "completed", "amount": "65000"}
	w := perform(t, l.router(testutil.Agent("agent2")), http.MethodPost, "/offers", offer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(t, agent, http.MethodPost, "/offers", offer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created submission.OfferResponse
	dataOf(t, w, &created)
	assert.Equal(t, "submitted", created.Status)

	w = perform(t, agent, http.MethodPost, "/offers", offer)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = perform(t, agent, http.MethodPut, "/offers/601/status", map[string]string{"status": "manager_approved"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(t, manager, http.MethodPut, "/offers/601/status", map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(t, manager, http.MethodPut, "/offers/601/status", map[string]string{"status": "rejected", "reason": "price too low"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dataOf(t, w, &created)
	assert.Equal(t, "rejected", created.Status)

	w = perform(t, manager, http.MethodPut, "/offers/601/status", map[string]string{"status": "in_progress"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = perform(t, agent, http.MethodGet, "/offers?status=rejected", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var offers []submission.OfferResponse
	dataOf(t, w, &offers)
	assert.Len(t, offers, 1)

	w = perform(t, l.router(testutil.Agent("agent2")), http.MethodGet, "/offers/601", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLifecycle_LoanToLoanAccount(t *testing.T) {
	l := newLifecycle(t)
	agent := l.router(testutil.Agent("agent1"))
	manager := l.router(testutil.Manager())
	admin := l.router(testutil.Admin())
	compliance := l.router(testutil.Compliance())

	w := perform(t, agent, http.MethodPost, "/account-openings", map[string]any{"id": 1, "realtor": "agent1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = perform(t, manager, http.MethodPut, "/account-openings/1/open", map[string]any{"account_number": "ACC-1", "deposit_threshold": "100"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = perform(t, manager, http.MethodPost, "/account-openings/1/deposits", map[string]any{"amount": "100", "reference": "EFT-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = perform(t, agent, http.MethodPost, "/loan-applications", map[string]any{
		"id": 10, "realtor": "agent1", "property_id": l.standID, "account_id": 1, "decision": "approved",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var loan submission.LoanApplicationResponse
	dataOf(t, w, &loan)
	assert.Nil(t, loan.Decision)

	w = perform(t, manager, http.MethodPost, "/loan-applications/10/decision", map[string]string{"decision": "approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dataOf(t, w, &loan)
	require.NotNil(t, loan.AgreementID)
	assert.Equal(t, int64(10), *loan.AgreementID)

	w = perform(t, manager, http.MethodPost, "/loan-applications/10/decision", map[string]string{"decision": "rejected"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// not signed yet
	w = perform(t, admin, http.MethodPost, "/loan-accounts", map[string]int64{"agreement_id": 10})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = perform(t, admin, http.MethodPost, "/agreements/10/sign", map[string]string{"party": "customer", "document_url": "https://docs/customer.pdf"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = perform(t, agent, http.MethodPost, "/agreements/10/sign", map[string]string{"party": "customer", "document_url": "https://docs/customer.pdf"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = perform(t, agent, http.MethodPost, "/agreements/10/sign", map[string]string{"party": "bank", "document_url": "https://docs/bank.pdf"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = perform(t, admin, http.MethodPost, "/agreements/10/sign", map[string]string{"party": "bank", "document_url": "https://docs/bank.pdf"})
	require.Equal(t, http.StatusOK, w.Code)
	var signed appagreement.Response
	dataOf(t, w, &signed)
	assert.Equal(t, "signed", signed.Status)

	w = perform(t, manager, http.MethodPost, "/loan-accounts", map[string]int64{"agreement_id": 10})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = perform(t, admin, http.MethodPost, "/loan-accounts", map[string]int64{"agreement_id": 10})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var account loanaccount.AccountResponse
	dataOf(t, w, &account)
	assert.Equal(t, "LA00000001", account.LoanAccountNumber)

	w = perform(t, agent, http.MethodGet, "/loan-accounts/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []loanaccount.AccountResponse
	dataOf(t, w, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, "ACC-1", mine[0].AccountNumber)

	assert.Equal(t, http.StatusForbidden, perform(t, l.router(testutil.Agent("agent2")), http.MethodGet, "/loan-accounts/agent1", nil).Code)
	assert.Equal(t, http.StatusOK, perform(t, admin, http.MethodGet, "/loan-accounts/agent1", nil).Code)

	w = perform(t, compliance, http.MethodGet, "/profiles/ACC-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var profile customer.ProfileResponse
	dataOf(t, w, &profile)
	assert.Equal(t, []int64{10}, profile.LoanApplicationIDs)
	assert.Equal(t, []int64{10}, profile.AgreementIDs)

	w = perform(t, manager, http.MethodGet, "/notifications?kind=agreement", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = perform(t, manager, http.MethodGet, "/reports/loans.csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "loan_application_id,"))
	assert.Contains(t, lines[1], "LA00000001")

	w = perform(t, agent, http.MethodGet, "/reports/properties.csv", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))
}

func TestProfileHandler_Deletion(t *testing.T) {
	l := newLifecycle(t)
	agent := l.router(testutil.Agent("agent1"))
	manager := l.router(testutil.Manager())
	compliance := l.router(testutil.Compliance())
	admin := l.router(testutil.Admin())

	require.Equal(t, http.StatusCreated, perform(t, agent, http.MethodPost, "/account-openings", map[string]any{"id": 5, "realtor": "agent1"}).Code)
	require.Equal(t, http.StatusOK, perform(t, manager, http.MethodPut, "/account-openings/5/open",
		map[string]any{"account_number": "ACC-5", "deposit_threshold": "50"}).Code)

	assert.Equal(t, http.StatusForbidden, perform(t, manager, http.MethodGet, "/profiles", nil).Code)
	w := perform(t, compliance, http.MethodGet, "/profiles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profiles []customer.ProfileResponse
	dataOf(t, w, &profiles)
	require.Len(t, profiles, 1)

	assert.Equal(t, http.StatusConflict, perform(t, compliance, http.MethodDelete, "/profiles/ACC-5", nil).Code)
	assert.Equal(t, http.StatusOK, perform(t, compliance, http.MethodPost, "/profiles/ACC-5/deletion-request", nil).Code)
	assert.Equal(t, http.StatusForbidden, perform(t, compliance, http.MethodPost, "/profiles/ACC-5/deletion-approval", nil).Code)
	assert.Equal(t, http.StatusOK, perform(t, admin, http.MethodPost, "/profiles/ACC-5/deletion-approval", nil).Code)
	assert.Equal(t, http.StatusNoContent, perform(t, compliance, http.MethodDelete, "/profiles/ACC-5", nil).Code)
	assert.Equal(t, http.StatusNotFound, perform(t, compliance, http.MethodGet, "/profiles/ACC-5", nil).Code)
}
