package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/fx"

	"github.com/looplj/caseflow/internal/features"
	"github.com/looplj/caseflow/internal/objects"
	"github.com/looplj/caseflow/internal/roles"
	"github.com/looplj/caseflow/internal/server/biz"
)

type PermissionHandlersParams struct {
	fx.In

	PermissionService *biz.PermissionService
}

type PermissionHandlers struct {
	PermissionService *biz.PermissionService
}

func NewPermissionHandlers(params PermissionHandlersParams) *PermissionHandlers {
	return &PermissionHandlers{
		PermissionService: params.PermissionService,
	}
}

// Check answers GET /v1/permissions/check?role=&feature=.
func (h *PermissionHandlers) Check(c *gin.Context) {
	role, ok := roles.Parse(c.Query("role"))
	feature := c.Query("feature")

	if !ok || feature == "" {
		JSONError(c, http.StatusBadRequest, errors.New("role and feature are required"))
		return
	}

	allowed, err := h.PermissionService.IsAllowed(c.Request.Context(), role, features.Key(feature))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, objects.PermissionCheckResponse{
		Role:    string(role),
		Feature: feature,
		Allowed: allowed,
	})
}

// List answers GET /v1/permissions with every row of the matrix.
func (h *PermissionHandlers) List(c *gin.Context) {
	perms, err := h.PermissionService.ListPermissions(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}

	rows := lo.Map(perms, func(p biz.Permission, _ int) objects.PermissionRow {
		return objects.PermissionRow{
			Role:    string(p.Role),
			Feature: string(p.FeatureKey),
			Allowed: p.Allowed,
			Builtin: features.IsBuiltin(string(p.FeatureKey)),
		}
	})

	c.JSON(http.StatusOK, objects.PermissionListResponse{Permissions: rows})
}
