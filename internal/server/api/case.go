package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/looplj/caseflow/internal/authz"
	"github.com/looplj/caseflow/internal/objects"
	"github.com/looplj/caseflow/internal/server/biz"
)

type CaseHandlersParams struct {
	fx.In

	CaseService    *biz.CaseService
	AccessResolver *biz.AccessResolver
}

type CaseHandlers struct {
	CaseService    *biz.CaseService
	AccessResolver *biz.AccessResolver
}

func NewCaseHandlers(params CaseHandlersParams) *CaseHandlers {
	return &CaseHandlers{
		CaseService:    params.CaseService,
		AccessResolver: params.AccessResolver,
	}
}

func (h *CaseHandlers) Get(c *gin.Context) {
	found, err := h.CaseService.GetCase(c.Request.Context(), c.Param("case_id"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, found)
}

func (h *CaseHandlers) History(c *gin.Context) {
	entries, err := h.CaseService.StatusHistory(c.Request.Context(), c.Param("case_id"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, objects.ListResponse[biz.StatusHistoryEntry]{Data: entries})
}

// ValidateTransition answers whether the caller may move the case. The
// decision is returned with 200 whether it admits or rejects.
func (h *CaseHandlers) ValidateTransition(c *gin.Context) {
	var req objects.ValidateTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, errors.New("Invalid request format"))
		return
	}

	decision, err := h.CaseService.ValidateTransition(c.Request.Context(), c.Param("case_id"), req.FromStatusID, req.ToStatusID)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, objects.TransitionDecision{Admit: decision.Admit, Reason: decision.Reason})
}

// CheckAccess answers GET /v1/cases/:case_id/access. principal_id defaults
// to the caller; any other principal resolves to false.
func (h *CaseHandlers) CheckAccess(c *gin.Context) {
	ctx := c.Request.Context()

	principalID := c.Query("principal_id")
	if principalID == "" {
		principalID, _ = authz.AuthenticatedUserID(ctx)
	}

	allowed, err := h.AccessResolver.CanAccess(ctx, principalID, c.Param("case_id"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, objects.CaseAccessResponse{
		PrincipalID: principalID,
		CaseID:      c.Param("case_id"),
		Allowed:     allowed,
	})
}

func (h *CaseHandlers) ChangeStatus(c *gin.Context) {
	var req objects.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, errors.New("Invalid request format"))
		return
	}

	updated, err := h.CaseService.ChangeStatus(c.Request.Context(), c.Param("case_id"), req.ToStatusID)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *CaseHandlers) EditUpdate(c *gin.Context) {
	var req objects.EditUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, errors.New("Invalid request format"))
		return
	}

	updated, err := h.CaseService.EditUpdate(c.Request.Context(), c.Param("update_id"), req.Body)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *CaseHandlers) DeleteUpdate(c *gin.Context) {
	if err := h.CaseService.DeleteUpdate(c.Request.Context(), c.Param("update_id")); err != nil {
		renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
