package testutil

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appshared "github.com/propflow/backend/internal/application/shared"
	"github.com/propflow/backend/internal/domain/identity"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)
	defer mockDB.Close()

	assert.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	mockDB.ExpectationsWereMet(t)
}

func TestNewTestScope(t *testing.T) {
	ctx := context.Background()
	scope, _ := NewTestScope(t)

	err := scope.Execute(ctx, func(ctx context.Context, repos appshared.Repositories) error {
		_, err := repos.Counters().Next(ctx, "next_project_id")
		return err
	})
	require.NoError(t, err)

	current, err := scope.Repositories().Counters().Current(ctx, "next_project_id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)
}

func TestFastPasswords(t *testing.T) {
	previous := identity.PasswordCost
	t.Run("lowered", func(t *testing.T) {
		FastPasswords(t)
		assert.Less(t, identity.PasswordCost, previous)
	})
	assert.Equal(t, previous, identity.PasswordCost)
}

func TestPrincipals(t *testing.T) {
	assert.True(t, Admin().IsAdmin())
	assert.True(t, Manager().IsManagement())
	assert.False(t, Manager().IsAdmin())
	assert.True(t, Compliance().IsCompliance())
	assert.Equal(t, "alice", Agent("alice").Username)
	assert.False(t, Agent("alice").IsManagement())
}

func TestTestContext(t *testing.T) {
	tc := NewTestContext(t)
	assert.Equal(t, http.MethodGet, tc.Context.Request.Method)

	tc.SetRequestID("req-123")
	tc.SetPrincipal(Agent("alice"))
	tc.SetHeader("X-Bootstrap-Token", "token")

	assert.Equal(t, "req-123", tc.Context.GetString("request_id"))
	assert.Equal(t, "alice", tc.Context.GetString("username"))
	stored, ok := tc.Context.Get("principal")
	require.True(t, ok)
	assert.Equal(t, Agent("alice"), stored)
	assert.Equal(t, "token", tc.Context.Request.Header.Get("X-Bootstrap-Token"))

	tc.Context.Status(http.StatusNoContent)
	assert.Equal(t, http.StatusNoContent, tc.ResponseCode())
}

func TestTestContext_ResponseCodeAfterWrite(t *testing.T) {
	tc := NewTestContext(t)
	tc.Context.JSON(http.StatusConflict, gin.H{"success": false})

	assert.Equal(t, http.StatusConflict, tc.ResponseCode())
	assert.Equal(t, http.StatusConflict, tc.Recorder.Code)
	assert.Contains(t, string(tc.ResponseBody()), `"success":false`)
}

func TestAssertEventually(t *testing.T) {
	var counter atomic.Int32
	go func() {
		time.Sleep(20 * time.Millisecond)
		counter.Store(1)
	}()

	AssertEventually(t, func() bool {
		return counter.Load() == 1
	}, 500*time.Millisecond, 5*time.Millisecond)
}

func TestAssertNever(t *testing.T) {
	AssertNever(t, func() bool { return false }, 30*time.Millisecond, 10*time.Millisecond)
}

func TestDo_AsPrincipal(t *testing.T) {
	engine := gin.New()
	engine.POST("/whoami", As(Agent("alice")), func(c *gin.Context) {
		var body struct {
			Name string `json:"name"`
		}
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
			"username": c.MustGet("principal").(identity.Principal).Username,
			"name":     body.Name,
			"token":    c.GetHeader("Authorization"),
		}})
	})

	w := Do(t, engine, Request{
		Method: http.MethodPost,
		Path:   "/whoami",
		Body:   map[string]string{"name": "Stand 1"},
		Token:  "abc",
	})
	require.Equal(t, http.StatusOK, w.Code)

	got := DataAs[map[string]string](t, w)
	assert.Equal(t, "alice", got["username"])
	assert.Equal(t, "Stand 1", got["name"])
	assert.Equal(t, "Bearer abc", got["token"])
}

func TestErrorCode(t *testing.T) {
	engine := gin.New()
	engine.GET("/stands/1", func(c *gin.Context) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   gin.H{"code": "CONFLICT", "message": "Stand 1 has been sold"},
		})
	})

	w := Do(t, engine, Request{Path: "/stands/1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", ErrorCode(t, w))
	assert.Equal(t, "Stand 1 has been sold", Envelope(t, w).Error.Message)
}
