package handler

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/tests/testutil"
)

func as(p identity.Principal) gin.HandlerFunc {
	return testutil.As(p)
}

func perform(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.Do(t, router, testutil.Request{Method: method, Path: path, Body: body})
}

// dataOf decodes the data member of a success envelope into out
func dataOf[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	*out = testutil.DataAs[T](t, w)
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return testutil.ErrorCode(t, w)
}

// httptestRequest builds a request the caller can decorate before serve
func httptestRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, testutil.JSONReader(t, body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
