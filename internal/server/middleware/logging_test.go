package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/looplj/caseflow/internal/contexts"
	"github.com/looplj/caseflow/internal/tracing"
)

func TestWithLoggingTracing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		config    tracing.Config
		header    string
		value     string
		wantTrace string
	}{
		{name: "generated", config: tracing.Config{}},
		{name: "existing default header", header: tracing.DefaultTraceHeader, value: "cf-existing", wantTrace: "cf-existing"},
		{
			name:      "custom header",
			config:    tracing.Config{TraceHeader: "X-Custom-Trace-Id"},
			header:    "X-Custom-Trace-Id",
			value:     "cf-custom",
			wantTrace: "cf-custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			engine.Use(WithLoggingTracing(tt.config))

			engine.GET("/v1/cases/:case_id", func(c *gin.Context) {
				ctx := c.Request.Context()

				traceID, ok := tracing.GetTraceID(ctx)
				assert.True(t, ok)

				if tt.wantTrace != "" {
					assert.Equal(t, tt.wantTrace, traceID)
				} else {
					assert.True(t, strings.HasPrefix(traceID, "cf-"))
				}

				requestID, ok := contexts.GetRequestID(ctx)
				assert.True(t, ok)
				assert.True(t, strings.HasPrefix(requestID, "req-"))

				op, ok := contexts.GetOperationName(ctx)
				assert.True(t, ok)
				assert.Equal(t, "GET /v1/cases/:case_id", op)

				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/v1/cases/case-1", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.NotEmpty(t, w.Header().Get(tt.config.RequestHeaderName()))
		})
	}
}
