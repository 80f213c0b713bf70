package server

import (
	"github.com/gin-contrib/cors"
	"go.uber.org/fx"

	"github.com/looplj/caseflow/internal/server/api"
	"github.com/looplj/caseflow/internal/server/biz"
	"github.com/looplj/caseflow/internal/server/middleware"
)

type Handlers struct {
	fx.In

	System       *api.SystemHandlers
	Permission   *api.PermissionHandlers
	Case         *api.CaseHandlers
	Organization *api.OrganizationHandlers
}

func SetupRoutes(server *Server, handlers Handlers, auth *biz.AuthService) {
	server.Use(middleware.WithLoggingTracing(server.Config.Trace))
	server.Use(middleware.AccessLog())

	// Setup CORS middleware at server level if enabled
	if server.Config.CORS.Enabled {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = server.Config.CORS.AllowedOrigins
		corsConfig.AllowMethods = server.Config.CORS.AllowedMethods
		corsConfig.AllowHeaders = server.Config.CORS.AllowedHeaders
		corsConfig.ExposeHeaders = server.Config.CORS.ExposedHeaders
		corsConfig.AllowCredentials = server.Config.CORS.AllowCredentials
		corsConfig.MaxAge = server.Config.CORS.MaxAge

		corsHandler := cors.New(corsConfig)
		server.Use(corsHandler)
		server.OPTIONS("*any", corsHandler)
	}

	base := server.Group(server.Config.BasePath, middleware.WithTimeout(server.Config.RequestTimeout))

	// Health check endpoint - no authentication required
	base.GET("/health", handlers.System.Health)

	v1 := base.Group("/v1", middleware.WithJWTAuth(auth), middleware.WithOrganization())
	{
		v1.GET("/permissions", handlers.Permission.List)
		v1.GET("/permissions/check", handlers.Permission.Check)

		v1.GET("/cases/:case_id", handlers.Case.Get)
		v1.GET("/cases/:case_id/access", handlers.Case.CheckAccess)
		v1.GET("/cases/:case_id/history", handlers.Case.History)
		v1.POST("/cases/:case_id/transitions/validate", handlers.Case.ValidateTransition)
		v1.POST("/cases/:case_id/status", handlers.Case.ChangeStatus)

		v1.PUT("/updates/:update_id", handlers.Case.EditUpdate)
		v1.DELETE("/updates/:update_id", handlers.Case.DeleteUpdate)

		v1.POST("/organizations", handlers.Organization.Provision)
		v1.GET("/organizations/:org_id", handlers.Organization.Get)
		v1.GET("/organizations/:org_id/audit-logs", handlers.Organization.AuditLogs)
		v1.POST("/organizations/:org_id/members", handlers.Organization.AddMember)
		v1.PUT("/organizations/:org_id/members/:user_id/role", handlers.Organization.ReplaceRole)
		v1.GET("/organizations/:org_id/statuses", handlers.Organization.ListStatuses)
		v1.POST("/organizations/:org_id/statuses", handlers.Organization.CreateStatus)
	}
}
