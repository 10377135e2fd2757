package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func() error

func (f pingerFunc) Ping() error { return f() }

func TestSystemHandler_Health(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		ping     error
		status   int
		database string
	}{
		{name: "database up", status: http.StatusOK, database: "up"},
		{name: "database down", ping: errors.New("dial tcp: refused"), status: http.StatusServiceUnavailable, database: "down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler(pingerFunc(func() error { return tt.ping }), "test")
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

			h.Health(c)

			assert.Equal(t, tt.status, w.Code)
			var body struct {
				Success bool           `json:"success"`
				Data    HealthResponse `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.database, body.Data.Database)
			assert.Equal(t, "test", body.Data.Version)
			assert.NotEmpty(t, body.Data.GoVersion)
		})
	}
}
