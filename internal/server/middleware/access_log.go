package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/looplj/caseflow/internal/contexts"
	"github.com/looplj/caseflow/internal/log"
)

// AccessLog returns a middleware that logs failed requests.
// It logs: status code, method, path, operation and errors.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		ctx := c.Request.Context()

		var errMsgs []string
		for _, e := range c.Errors {
			errMsgs = append(errMsgs, e.Error())
		}

		// Only log if there are errors or status >= 400
		status := c.Writer.Status()
		if status < 400 && len(errMsgs) == 0 {
			return
		}

		fields := []log.Field{
			log.Int("status", status),
			log.String("method", c.Request.Method),
			log.String("path", c.Request.URL.Path),
			log.Duration("latency", time.Since(start)),
			log.String("client_ip", c.ClientIP()),
		}

		if orgID, ok := contexts.GetOrganizationID(ctx); ok {
			fields = append(fields, log.String("organization_id", orgID))
		}

		if len(errMsgs) > 0 {
			fields = append(fields, log.Strings("errors", errMsgs))
		}

		if status >= 500 {
			log.Error(ctx, "[ACCESS]", fields...)
		} else {
			log.Warn(ctx, "[ACCESS]", fields...)
		}
	}
}
