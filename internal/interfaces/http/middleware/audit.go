package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/propflow/backend/internal/domain/audit"
)

// AuditRecorder persists audit records
type AuditRecorder interface {
	Record(ctx context.Context, rec *audit.Record)
}

// Audit writes one record per request once the handler chain has finished,
// so rejected calls are recorded with their final status. Mount it ahead of
// Authenticate.
func Audit(recorder AuditRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		principal := GetPrincipal(c)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec := audit.NewRecord(
			principal.Username,
			string(principal.Role),
			c.Request.Method+" "+route,
			c.Request.URL.Path,
			c.Writer.Status(),
		)
		rec.RequestID = GetRequestID(c)
		rec.ClientIP = c.ClientIP()
		recorder.Record(context.WithoutCancel(c.Request.Context()), rec)
	}
}
