package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/looplj/caseflow/internal/contexts"
)

// WithOrganization tags the request context with the :org_id route param so
// logs of tenant-scoped routes carry the organization.
func WithOrganization() gin.HandlerFunc {
	return func(c *gin.Context) {
		if orgID := c.Param("org_id"); orgID != "" {
			c.Request = c.Request.WithContext(contexts.WithOrganizationID(c.Request.Context(), orgID))
		}

		c.Next()
	}
}
