package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/propflow/backend/internal/domain/audit"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/shared"
	"github.com/propflow/backend/internal/infrastructure/auth"
)

type stubValidator map[string]*auth.Claims

func (v stubValidator) ValidateAccessToken(_ context.Context, token string) (*auth.Claims, error) {
	if token == "broken-store" {
		return nil, errors.New("redis: connection refused")
	}
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, shared.NewUnauthenticatedError("Invalid token")
}

type recordingAuditor struct {
	mu      sync.Mutex
	records []*audit.Record
}

func (r *recordingAuditor) Record(_ context.Context, rec *audit.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func newGuardedRouter(auditor AuditRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator := stubValidator{
		"admin-token": {Username: "root", Role: "admin"},
		"agent-token": {Username: "agent1", Role: "agent"},
		"odd-token":   {Username: "ghost", Role: "janitor"},
	}
	router := gin.New()
	router.Use(RequestID())
	api := router.Group("/api/v1")
	api.Use(Audit(auditor), Authenticate(validator, zap.NewNop()))
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": GetPrincipal(c).Username})
	})
	api.GET("/agents", RequireCapability(identity.CapabilityAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func call(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	router := newGuardedRouter(&recordingAuditor{})

	tests := []struct {
		name   string
		token  string
		header string
		status int
		body   string
	}{
		{name: "missing header", status: http.StatusUnauthorized, body: "Missing authorization header"},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized, body: "Invalid authorization header format"},
		{name: "unknown token", token: "nope", status: http.StatusUnauthorized, body: "UNAUTHENTICATED"},
		{name: "unknown role", token: "odd-token", status: http.StatusUnauthorized, body: "Invalid token"},
		{name: "store failure", token: "broken-store", status: http.StatusInternalServerError, body: "INTERNAL"},
		{name: "valid", token: "agent-token", status: http.StatusOK, body: "agent1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			switch {
			case tt.header != "":
				req.Header.Set(AuthHeaderKey, tt.header)
			case tt.token != "":
				req.Header.Set(AuthHeaderKey, BearerPrefix+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestRequireCapability(t *testing.T) {
	router := newGuardedRouter(&recordingAuditor{})

	w := call(router, "/api/v1/agents", "agent-token")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Admin privileges required")

	w = call(router, "/api/v1/agents", "admin-token")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAudit_RecordsAuthorizedAndRejectedCalls(t *testing.T) {
	auditor := &recordingAuditor{}
	router := newGuardedRouter(auditor)

	call(router, "/api/v1/agents", "admin-token")
	call(router, "/api/v1/agents", "agent-token")
	call(router, "/api/v1/agents", "")

	require.Len(t, auditor.records, 3)

	ok := auditor.records[0]
	assert.Equal(t, "root", ok.Actor)
	assert.Equal(t, "admin", ok.Role)
	assert.Equal(t, "GET /api/v1/agents", ok.Action)
	assert.Equal(t, "/api/v1/agents", ok.Resource)
	assert.Equal(t, http.StatusOK, ok.Outcome)
	assert.NotEmpty(t, ok.RequestID)

	assert.Equal(t, "agent1", auditor.records[1].Actor)
	assert.Equal(t, http.StatusForbidden, auditor.records[1].Outcome)

	assert.Equal(t, audit.Anonymous, auditor.records[2].Actor)
	assert.Equal(t, http.StatusUnauthorized, auditor.records[2].Outcome)
	assert.False(t, auditor.records[2].Succeeded())
}
