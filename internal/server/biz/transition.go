package biz

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/fx"

	"github.com/looplj/caseflow/internal/features"
	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/metrics"
	"github.com/looplj/caseflow/internal/server/db"
)

// Rejection reasons, in evaluation order.
const (
	ReasonCaseNotFound      = "case not found"
	ReasonSourceReadOnly    = "current status is read-only"
	ReasonTargetNotFound    = "target status not found"
	ReasonWorkflowMismatch  = "target status not in case workflow"
	ReasonPermissionMissing = "user lacks permission to modify case status"
)

// Decision is the outcome of a transition check. Reason is empty on admit.
type Decision struct {
	Admit  bool   `json:"admit"`
	Reason string `json:"reason,omitempty"`
}

func Admit() Decision {
	return Decision{Admit: true}
}

func Reject(reason string) Decision {
	return Decision{Reason: reason}
}

// TransitionRequest asks whether ActorID may move CaseID to ToStatusID.
// A nil FromStatusID means the case has no current status.
type TransitionRequest struct {
	CaseID       string  `json:"case_id"`
	FromStatusID *string `json:"from_status_id,omitempty"`
	ToStatusID   string  `json:"to_status_id"`
	ActorID      string  `json:"actor_id"`
}

type TransitionValidatorParams struct {
	fx.In

	DB                *db.Client
	StatusService     *StatusService
	MembershipService *MembershipService
	PermissionService *PermissionService
	Metrics           *metrics.Recorder
}

func NewTransitionValidator(params TransitionValidatorParams) *TransitionValidator {
	return &TransitionValidator{
		AbstractService: &AbstractService{
			db: params.DB,
		},
		statuses:    params.StatusService,
		members:     params.MembershipService,
		permissions: params.PermissionService,
		metrics:     params.Metrics,
	}
}

// TransitionValidator decides whether a case status change is legal.
// It never writes.
type TransitionValidator struct {
	*AbstractService

	statuses    *StatusService
	members     *MembershipService
	permissions *PermissionService
	metrics     *metrics.Recorder
}

// Validate evaluates the rules in order and returns the first rejection.
// A FromStatusID that does not resolve is a data fault reported as
// ErrStatusIntegrity, not a rejection.
func (v *TransitionValidator) Validate(ctx context.Context, req TransitionRequest) (Decision, error) {
	decision, err := v.validate(ctx, req)
	if err != nil {
		log.Error(ctx, "transition validation failed",
			log.String("case_id", req.CaseID),
			log.String("to_status_id", req.ToStatusID),
			log.Cause(err),
		)

		return Decision{}, err
	}

	v.metrics.TransitionDecision(ctx, decision.Admit, decision.Reason)

	log.Debug(ctx, "transition decision",
		log.String("case_id", req.CaseID),
		log.String("to_status_id", req.ToStatusID),
		log.String("actor_id", req.ActorID),
		log.String("decision", lo.Ternary(decision.Admit, "admit", "reject")),
		log.String("reason", decision.Reason),
	)

	return decision, nil
}

func (v *TransitionValidator) validate(ctx context.Context, req TransitionRequest) (Decision, error) {
	c, found, err := v.findCase(ctx, req.CaseID)
	if err != nil {
		return Decision{}, fmt.Errorf("load case: %w", err)
	}

	if !found {
		return Reject(ReasonCaseNotFound), nil
	}

	if req.FromStatusID != nil {
		from, err := v.statuses.GetStatus(ctx, c.OrganizationID, *req.FromStatusID)
		if errors.Is(err, ErrNotFound) {
			return Decision{}, fmt.Errorf("%w: case %s references status %q", ErrStatusIntegrity, c.ID, *req.FromStatusID)
		}

		if err != nil {
			return Decision{}, err
		}

		if from.IsReadOnly {
			return Reject(ReasonSourceReadOnly), nil
		}
	}

	to, err := v.statuses.GetStatus(ctx, c.OrganizationID, req.ToStatusID)
	if errors.Is(err, ErrNotFound) {
		return Reject(ReasonTargetNotFound), nil
	}

	if err != nil {
		return Decision{}, err
	}

	if !to.InWorkflow(c.Workflow) {
		return Reject(ReasonWorkflowMismatch), nil
	}

	role, ok, err := v.members.RoleOf(ctx, req.ActorID, c.OrganizationID)
	if err != nil {
		return Decision{}, err
	}

	if !ok {
		return Reject(ReasonPermissionMissing), nil
	}

	allowed, err := v.permissions.IsAllowed(ctx, role, features.ModifyCaseStatus)
	if err != nil {
		return Decision{}, err
	}

	if !allowed {
		return Reject(ReasonPermissionMissing), nil
	}

	return Admit(), nil
}
