// Package objects holds the request and response bodies of the HTTP API.
// Field names use snake_case json tags.
package objects

type PermissionCheckResponse struct {
	Role    string `json:"role"`
	Feature string `json:"feature"`
	Allowed bool   `json:"allowed"`
}

type PermissionRow struct {
	Role    string `json:"role"`
	Feature string `json:"feature"`
	Allowed bool   `json:"allowed"`
	Builtin bool   `json:"builtin"`
}

type PermissionListResponse struct {
	Permissions []PermissionRow `json:"permissions"`
}

type ValidateTransitionRequest struct {
	FromStatusID *string `json:"from_status_id"`
	ToStatusID   string  `json:"to_status_id" binding:"required"`
}

type TransitionDecision struct {
	Admit  bool   `json:"admit"`
	Reason string `json:"reason,omitempty"`
}

type CaseAccessResponse struct {
	PrincipalID string `json:"principal_id"`
	CaseID      string `json:"case_id"`
	Allowed     bool   `json:"allowed"`
}

type ChangeStatusRequest struct {
	ToStatusID string `json:"to_status_id" binding:"required"`
}

type EditUpdateRequest struct {
	Body string `json:"body" binding:"required"`
}

type ProvisionOrganizationRequest struct {
	Name      string `json:"name" binding:"required"`
	Subdomain string `json:"subdomain" binding:"required"`
	Plan      string `json:"plan"`
	OwnerID   string `json:"owner_id" binding:"required"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

type ReplaceRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type CreateStatusRequest struct {
	Name       string   `json:"name" binding:"required"`
	IsReadOnly bool     `json:"is_read_only"`
	SortOrder  int      `json:"sort_order"`
	Workflows  []string `json:"workflows"`
}
