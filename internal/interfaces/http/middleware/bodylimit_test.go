package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propflow/backend/internal/interfaces/http/dto"
)

func bodyLimitRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), BodyLimit(limit))
	router.POST("/agreements/:id/documents", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusBadRequest, "unreadable")
			return
		}
		c.Status(http.StatusCreated)
	})
	router.GET("/agreements/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		body          string
		contentLength int64
		want          int
	}{
		{"document within limit", http.MethodPost, `{"content":"JVBERi0="}`, 22, http.StatusCreated},
		{"declared length over limit", http.MethodPost, strings.Repeat("x", 300), 300, http.StatusRequestEntityTooLarge},
		{"streamed body over limit", http.MethodPost, strings.Repeat("x", 300), -1, http.StatusBadRequest},
		{"read without body", http.MethodGet, "", 0, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/agreements/9/documents"
			if tt.method == http.MethodGet {
				path = "/agreements/9"
			}
			req := httptest.NewRequest(tt.method, path, strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			bodyLimitRouter(128).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestBodyLimit_ErrorEnvelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/agreements/9/documents", strings.NewReader(strings.Repeat("x", 300)))
	req.Header.Set(RequestIDHeader, "req-upload")
	w := httptest.NewRecorder()
	bodyLimitRouter(128).ServeHTTP(w, req)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
	assert.Equal(t, "req-upload", resp.Error.RequestID)
}
