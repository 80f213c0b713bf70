package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/looplj/caseflow/internal/authz"
	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/server/biz"
)

// TokenAuthenticator resolves a bearer token to a user id.
type TokenAuthenticator interface {
	AuthenticateJWTToken(ctx context.Context, token string) (string, error)
}

// WithJWTAuth verifies the bearer token and stores the user principal in the
// request context. Requests without a valid token never reach the handlers.
func WithJWTAuth(auth TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := ExtractBearerToken(c.Request)
		if err != nil {
			AbortWithError(c, http.StatusUnauthorized, err)
			return
		}

		userID, err := auth.AuthenticateJWTToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, biz.ErrInvalidJWT) {
				AbortWithError(c, http.StatusUnauthorized, errors.New("Invalid token"))
			} else {
				log.Error(c.Request.Context(), "failed to validate token", log.Cause(err))
				AbortWithError(c, http.StatusInternalServerError, errors.New("Failed to validate token"))
			}

			return
		}

		ctx, err := authz.WithPrincipal(c.Request.Context(), authz.Principal{
			Type:   authz.PrincipalTypeUser,
			UserID: userID,
		})
		if err != nil {
			AbortWithError(c, http.StatusUnauthorized, errors.New("Invalid token"))
			return
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
