package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/looplj/caseflow/internal/authz"
	"github.com/looplj/caseflow/internal/server/biz"
)

type stubAuthenticator map[string]string

func (s stubAuthenticator) AuthenticateJWTToken(_ context.Context, token string) (string, error) {
	if token == "boom" {
		return "", errors.New("keystore unavailable")
	}

	userID, ok := s[token]
	if !ok {
		return "", fmt.Errorf("%w: unknown token", biz.ErrInvalidJWT)
	}

	return userID, nil
}

func TestWithJWTAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(WithJWTAuth(stubAuthenticator{"good": "alice"}))
	engine.GET("/me", func(c *gin.Context) {
		userID, ok := authz.AuthenticatedUserID(c.Request.Context())
		require.True(t, ok)
		c.String(http.StatusOK, userID)
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "valid", header: "Bearer good", status: http.StatusOK, body: "alice"},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "invalid", header: "Bearer bad", status: http.StatusUnauthorized},
		{name: "backend failure", header: "Bearer boom", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)

			if tt.body != "" {
				require.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}
