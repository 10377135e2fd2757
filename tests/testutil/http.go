package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/propflow/backend/internal/domain/identity"
	"github.com/propflow/backend/internal/interfaces/http/dto"
	"github.com/propflow/backend/internal/interfaces/http/middleware"
)

// Request describes one call against an API engine
type Request struct {
	Method  string
	Path    string
	Body    any
	Token   string
	Headers map[string]string
}

// As stands in for the auth middleware by storing p on every request
func As(p identity.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.PrincipalKey, p)
		c.Next()
	}
}

// Do serves req through h and returns the recorder
func Do(t *testing.T, h http.Handler, req Request) *httptest.ResponseRecorder {
	t.Helper()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq := httptest.NewRequest(method, req.Path, JSONReader(t, req.Body))
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httpReq)
	return w
}

// Envelope decodes the standard response wrapper
func Envelope(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DataAs decodes the data member of a success envelope
func DataAs[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	require.True(t, envelope.Success, w.Body.String())

	var out T
	require.NoError(t, json.Unmarshal(envelope.Data, &out), string(envelope.Data))
	return out
}

// ErrorCode returns the code of a failure envelope
func ErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	resp := Envelope(t, w)
	require.False(t, resp.Success, w.Body.String())
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}

// JSONReader marshals v. A nil v gives an empty body.
func JSONReader(t *testing.T, v any) io.Reader {
	t.Helper()

	if v == nil {
		return http.NoBody
	}
	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return bytes.NewReader(data)
}
