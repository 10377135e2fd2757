//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	agreementapp "github.com/propflow/backend/internal/application/agreement"
	auditapp "github.com/propflow/backend/internal/application/audit"
	contactapp "github.com/propflow/backend/internal/application/contactsetting"
	customerapp "github.com/propflow/backend/internal/application/customer"
	eventapp "github.com/propflow/backend/internal/application/event"
	identityapp "github.com/propflow/backend/internal/application/identity"
	importapp "github.com/propflow/backend/internal/application/import"
	loanaccountapp "github.com/propflow/backend/internal/application/loanaccount"
	notificationapp "github.com/propflow/backend/internal/application/notification"
	propertyapp "github.com/propflow/backend/internal/application/property"
	reportapp "github.com/propflow/backend/internal/application/report"
	requirementapp "github.com/propflow/backend/internal/application/requirement"
	submissionapp "github.com/propflow/backend/internal/application/submission"
	"github.com/propflow/backend/internal/infrastructure/auth"
	"github.com/propflow/backend/internal/infrastructure/config"
	"github.com/propflow/backend/internal/infrastructure/event"
	"github.com/propflow/backend/internal/infrastructure/storage"
	"github.com/propflow/backend/internal/interfaces/http/dto"
	"github.com/propflow/backend/internal/interfaces/http/handler"
	"github.com/propflow/backend/internal/interfaces/http/middleware"
	"github.com/propflow/backend/internal/interfaces/http/router"
	"github.com/propflow/backend/tests/testutil"
)

const bootstrapToken = "integration-bootstrap-token"

type apiServer struct {
	engine *gin.Engine
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tdb := NewTestDB(t)
	scope := tdb.Scope()
	log := zap.NewNop()
	docs := storage.NewInlineDocumentStore()

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "integration-secret-key-at-least-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "propflow-integration",
	})
	authService := identityapp.NewAuthService(scope, jwtService, auth.NewInMemoryTokenBlacklist(), log)
	accountService := identityapp.NewAccountService(scope, config.AuthConfig{BootstrapToken: bootstrapToken, MinPasswordLength: 8}, log)
	auditService := auditapp.NewService(scope, log)

	handlers := router.Handlers{
		Auth:           handler.NewAuthHandler(authService, accountService),
		Account:        handler.NewAccountHandler(accountService),
		Project:        handler.NewProjectHandler(propertyapp.NewProjectService(scope, log)),
		Stand:          handler.NewStandHandler(propertyapp.NewStandService(scope, log)),
		Requirement:    handler.NewRequirementHandler(requirementapp.NewService(scope, log)),
		Submission:     handler.NewSubmissionHandler(submissionapp.NewService(scope, docs, log)),
		Agreement:      handler.NewAgreementHandler(agreementapp.NewService(scope, docs, log)),
		LoanAccount:    handler.NewLoanAccountHandler(loanaccountapp.NewService(scope, "", nil, log)),
		Profile:        handler.NewProfileHandler(customerapp.NewProfileService(scope, log)),
		Notification:   handler.NewNotificationHandler(notificationapp.NewService(scope)),
		Audit:          handler.NewAuditHandler(auditService),
		Report:         handler.NewReportHandler(reportapp.NewReportService(scope)),
		ContactSetting: handler.NewContactSettingHandler(contactapp.NewService(scope, []string{"ops@example.com"}, log)),
		Import:         handler.NewImportHandler(importapp.NewStandImportService(scope, log), importapp.NewAccountImportService(scope, log)),
		Outbox:         handler.NewOutboxHandler(eventapp.NewOutboxService(event.NewGormOutboxRepository(tdb.DB), log)),
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.RegisterAPI(router.NewRouter(engine), handlers, router.Guards{
		Protected: []gin.HandlerFunc{
			middleware.Audit(auditService),
			middleware.Authenticate(authService, log),
		},
	}).Setup()
	return &apiServer{engine: engine}
}

func (s *apiServer) do(t *testing.T, method, path, token string, body any, headers ...string) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	req := testutil.Request{Method: method, Path: "/api/v1" + path, Body: body, Token: token, Headers: map[string]string{}}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Headers[headers[i]] = headers[i+1]
	}
	w := testutil.Do(t, s.engine, req)

	var resp dto.Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		resp = testutil.Envelope(t, w)
	}
	return w, resp
}

func (s *apiServer) login(t *testing.T, username, password string) string {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := testutil.DataAs[identityapp.LoginResult](t, w)
	require.NotEmpty(t, result.AccessToken)
	return result.AccessToken
}

func dataID(t *testing.T, w *httptest.ResponseRecorder) int64 {
	t.Helper()
	return testutil.DataAs[struct {
		ID int64 `json:"id"`
	}](t, w).ID
}

func TestAPI_BootstrapThroughOffer(t *testing.T) {
	s := newAPIServer(t)

	w, _ := s.do(t, http.MethodGet, "/stands", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	admin := map[string]string{"username": "admin", "password": "admin-password"}
	w, _ = s.do(t, http.MethodPost, "/auth/bootstrap", "", admin, handler.BootstrapTokenHeader, "wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(t, http.MethodPost, "/auth/bootstrap", "", admin, handler.BootstrapTokenHeader, bootstrapToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, _ = s.do(t, http.MethodPost, "/auth/bootstrap", "", admin, handler.BootstrapTokenHeader, bootstrapToken)
	assert.Equal(t, http.StatusConflict, w.Code)

	adminToken := s.login(t, "admin", "admin-password")
	w, _ = s.do(t, http.MethodPost, "/accounts", adminToken,
		map[string]string{"username": "agent1", "password": "agent-password", "role": "agent"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	agentToken := s.login(t, "agent1", "agent-password")

	w, _ = s.do(t, http.MethodPost, "/projects", adminToken, map[string]string{"name": "Riverside"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	projectID := dataID(t, w)

	w, _ = s.do(t, http.MethodPost, "/projects/"+itoa(projectID)+"/stands", agentToken, map[string]string{"name": "Stand 1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(t, http.MethodPost, "/projects/"+itoa(projectID)+"/stands", adminToken,
		map[string]string{"name": "Stand 1", "size": "300", "price": "70000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	standID := dataID(t, w)

	w, _ = s.do(t, http.MethodGet, "/stands", agentToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	offer := map[string]any{"id": 601, "realtor": "agent1", "property_id": standID, "details": "Cash offer"}
	w, _ = s.do(t, http.MethodPost, "/offers", agentToken, offer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, _ = s.do(t, http.MethodPost, "/offers", agentToken, offer)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPut, "/offers/601/status", agentToken, map[string]string{"status": "manager_approved"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(t, http.MethodPut, "/offers/601/status", adminToken, map[string]string{"status": "manager_approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp := s.do(t, http.MethodGet, "/audit-logs?actor=agent1", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "POST /api/v1/offers")
	assert.Contains(t, string(raw), "PUT /api/v1/offers/:id/status")
}

func TestAPI_LogoutRevokesToken(t *testing.T) {
	s := newAPIServer(t)
	w, _ := s.do(t, http.MethodPost, "/auth/bootstrap", "",
		map[string]string{"username": "admin", "password": "admin-password"},
		handler.BootstrapTokenHeader, bootstrapToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	token := s.login(t, "admin", "admin-password")
	w, _ = s.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
