package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/propflow/backend/internal/application/contactsetting"
	importapp "github.com/propflow/backend/internal/application/import"
	"github.com/propflow/backend/internal/application/requirement"
	domaincontact "github.com/propflow/backend/internal/domain/contactsetting"
	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/domain/ingestion"
	"github.com/propflow/backend/tests/testutil"
)

type adminFixture struct {
	accountImport *importapp.AccountImportService
	router        func(p identity.Principal) *gin.Engine
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	scope, _ := testutil.NewTestScope(t)
	logger := zap.NewNop()

	accountImport := importapp.NewAccountImportService(scope, logger)
	imports := NewImportHandler(importapp.NewStandImportService(scope, logger), accountImport)
	contacts := NewContactSettingHandler(contactsetting.NewService(scope, []string{"ops@example.com"}, logger))
	requirements := NewRequirementHandler(requirement.NewService(scope, logger))

	return &adminFixture{
		accountImport: accountImport,
		router: func(p identity.Principal) *gin.Engine {
			router := gin.New()
			api := router.Group("", as(p))
			api.POST("/imports/stands", imports.ImportStands)
			api.GET("/imported-accounts", imports.ListImportedAccounts)
			api.GET("/contact-settings/:channel", contacts.Get)
			api.PUT("/contact-settings/:channel", contacts.Update)
			api.DELETE("/contact-settings/:channel", contacts.Reset)
			api.GET("/requirements", requirements.List)
			api.POST("/requirements", requirements.Create)
			api.PUT("/requirements/order", requirements.Reorder)
			api.GET("/requirements/:id", requirements.Get)
			api.PUT("/requirements/:id", requirements.Update)
			api.DELETE("/requirements/:id", requirements.Delete)
			return router
		},
	}
}

func multipartCSV(t *testing.T, path, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "stands.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportHandler_ImportStands(t *testing.T) {
	f := newAdminFixture(t)
	admin := f.router(testutil.Admin())

	csv := "project,name,size,price\n" +
		"Riverside,Stand 1,500,120000\n" +
		"Riverside,Stand 2,450,110000\n" +
		"Hilltop,,300,abc\n"

	w := serve(f.router(testutil.Manager()), multipartCSV(t, "/imports/stands", csv))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(admin, multipartCSV(t, "/imports/stands", csv))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result importapp.ImportResult
	dataOf(t, w, &result)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 2, result.ImportedRows)
	assert.Equal(t, 1, result.ErrorRows)

	req := httptest.NewRequest(http.MethodPost, "/imports/stands", strings.NewReader("project,name\nHilltop,Stand 9\n"))
	req.Header.Set("Content-Type", "text/csv")
	w = serve(admin, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dataOf(t, w, &result)
	assert.Equal(t, 1, result.ImportedRows)

	req = httptest.NewRequest(http.MethodPost, "/imports/stands", strings.NewReader("size,price\n1,2\n"))
	req.Header.Set("Content-Type", "text/csv")
	w = serve(admin, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/imports/stands", &bytes.Buffer{})
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w = serve(admin, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", errorCode(t, w))
}

func TestImportHandler_ListImportedAccounts(t *testing.T) {
	f := newAdminFixture(t)
	_, err := f.accountImport.Import(context.Background(), ingestion.KindLoan,
		strings.NewReader("id,account_number,balance\nL-1,LN-1,900\n"), "corebank")
	require.NoError(t, err)

	compliance := f.router(testutil.Compliance())
	w := perform(t, compliance, http.MethodGet, "/imported-accounts?kind=loan", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var accounts []ingestion.ImportedAccount
	dataOf(t, w, &accounts)
	require.Len(t, accounts, 1)
	assert.Equal(t, "L-1", accounts[0].ID)

	assert.Equal(t, http.StatusBadRequest, perform(t, compliance, http.MethodGet, "/imported-accounts", nil).Code)
	assert.Equal(t, http.StatusBadRequest, perform(t, compliance, http.MethodGet, "/imported-accounts?kind=mortgage", nil).Code)
	assert.Equal(t, http.StatusForbidden, perform(t, f.router(testutil.Manager()), http.MethodGet, "/imported-accounts?kind=loan", nil).Code)
}

func TestContactSettingHandler(t *testing.T) {
	f := newAdminFixture(t)
	admin := f.router(testutil.Admin())

	w := perform(t, admin, http.MethodGet, "/contact-settings/deposit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view domaincontact.View
	dataOf(t, w, &view)
	assert.False(t, view.Configured)
	assert.Equal(t, []string{"ops@example.com"}, view.Recipients)

	w = perform(t, admin, http.MethodPut, "/contact-settings/deposit", map[string][]string{"recipients": {"deposits@example.com"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dataOf(t, w, &view)
	assert.True(t, view.Configured)
	assert.Equal(t, []string{"deposits@example.com"}, view.Recipients)

	w = perform(t, admin, http.MethodPut, "/contact-settings/deposit", map[string][]string{"recipients": {}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(t, admin, http.MethodDelete, "/contact-settings/deposit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dataOf(t, w, &view)
	assert.False(t, view.Configured)

	assert.Equal(t, http.StatusForbidden, perform(t, f.router(testutil.Manager()), http.MethodGet, "/contact-settings/deposit", nil).Code)
}

func TestRequirementHandler(t *testing.T) {
	f := newAdminFixture(t)
	admin := f.router(testutil.Admin())

	var created []requirement.Response
	for _, name := range []string{"Proof of funds", "ID copy", "Proof of Funds"} {
		w := perform(t, admin, http.MethodPost, "/requirements", map[string]string{"name": name, "applies_to": "offer"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var r requirement.Response
		dataOf(t, w, &r)
		created = append(created, r)
	}
	assert.Equal(t, "proof_of_funds", created[0].Slug)
	assert.NotEqual(t, created[0].Slug, created[2].Slug)

	w := perform(t, f.router(testutil.Agent("agent1")), http.MethodPost, "/requirements", map[string]string{"name": "X", "applies_to": "offer"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(t, admin, http.MethodPut, "/requirements/order", map[string]any{
		"applies_to": "offer",
		"order":      []int64{created[2].ID, created[0].ID, created[1].ID},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = perform(t, f.router(testutil.Agent("agent1")), http.MethodGet, "/requirements?applies_to=offer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []requirement.Response
	dataOf(t, w, &listed)
	require.Len(t, listed, 3)
	assert.Equal(t, created[2].ID, listed[0].ID)

	w = perform(t, admin, http.MethodDelete, "/requirements/"+itoa(created[2].ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = perform(t, admin, http.MethodGet, "/requirements/"+itoa(created[2].ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
