package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/krs-online-api/internal/models"
)

// AuditRecorder accepts audit entries.
type AuditRecorder interface {
	Record(meta models.RequestMeta, action, resource, resourceID string, oldValues, newValues interface{})
}

// Audit records an entry after each successful request on read-only routes
// whose handlers do not audit themselves, such as downloads.
func Audit(recorder AuditRecorder, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if recorder == nil || c.Writer.Status() >= 400 {
			return
		}

		recorder.Record(RequestMeta(c), action, resource, c.Param("id"), nil, map[string]interface{}{
			"path":       c.FullPath(),
			"method":     c.Request.Method,
			"query":      c.Request.URL.RawQuery,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		})
	}
}
