package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/looplj/caseflow/internal/objects"
	"github.com/looplj/caseflow/internal/roles"
	"github.com/looplj/caseflow/internal/server/biz"
)

type OrganizationHandlersParams struct {
	fx.In

	OrganizationService *biz.OrganizationService
	MembershipService   *biz.MembershipService
	StatusService       *biz.StatusService
}

type OrganizationHandlers struct {
	OrganizationService *biz.OrganizationService
	MembershipService   *biz.MembershipService
	StatusService       *biz.StatusService
}

func NewOrganizationHandlers(params OrganizationHandlersParams) *OrganizationHandlers {
	return &OrganizationHandlers{
		OrganizationService: params.OrganizationService,
		MembershipService:   params.MembershipService,
		StatusService:       params.StatusService,
	}
}

func (h *OrganizationHandlers) Provision(c *gin.Context) {
	var req objects.ProvisionOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, errors.New("Invalid request format"))
		return
	}

	org, err := h.OrganizationService.Provision(c.Request.Context(), biz.ProvisionInput{
		Name:      req.Name,
		Subdomain: req.Subdomain,
		Plan:      req.Plan,
		OwnerID:   req.OwnerID,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, org)
}

func (h *OrganizationHandlers) Get(c *gin.Context) {
	org, err := h.OrganizationService.GetOrganization(c.Request.Context(), c.Param("org_id"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

func (h *OrganizationHandlers) AuditLogs(c *gin.Context) {
	logs, err := h.OrganizationService.AuditLogs(c.Request.Context(), c.Param("org_id"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, objects.ListResponse[biz.AuditLog]{Data: logs})
}

func (h *OrganizationHandlers) AddMember(c *gin.Context) {
	var req objects.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, errors.New("Invalid request format"))
		return
	}

	member, err := h.MembershipService.AddMember(c.Request.Context(), c.Param("org_id"), req.UserID, roles.Role(req.Role))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, member)
}

func (h *OrganizationHandlers) ReplaceRole(c *gin.Context) {
	var req objects.ReplaceRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, errors.New("Invalid request format"))
		return
	}

	member, err := h.MembershipService.ReplaceRole(c.Request.Context(), c.Param("org_id"), c.Param("user_id"), roles.Role(req.Role))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, member)
}

func (h *OrganizationHandlers) ListStatuses(c *gin.Context) {
	statuses, err := h.StatusService.ListStatuses(c.Request.Context(), c.Param("org_id"), c.Query("workflow"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, objects.ListResponse[*biz.CaseStatus]{Data: statuses})
}

func (h *OrganizationHandlers) CreateStatus(c *gin.Context) {
	var req objects.CreateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, errors.New("Invalid request format"))
		return
	}

	status, err := h.StatusService.CreateStatus(c.Request.Context(), c.Param("org_id"), biz.CreateStatusInput{
		Name:       req.Name,
		IsReadOnly: req.IsReadOnly,
		SortOrder:  req.SortOrder,
		Workflows:  req.Workflows,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, status)
}
