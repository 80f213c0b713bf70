package biz

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/looplj/caseflow/internal/authz"
	"github.com/looplj/caseflow/internal/features"
	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/roles"
)

type Entity string

const (
	EntityCase       Entity = "case"
	EntityCaseUpdate Entity = "case_update"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resource is the row a policy decision is about. Case is always set;
// AuthorID is set for authored rows such as updates.
type Resource struct {
	Case     *Case
	AuthorID string
}

// subject is the evaluated user and its role in the case organization.
type subject struct {
	UserID string
	Role   roles.Role
}

type rule func(ctx context.Context, p *CasePolicy, sub subject, res Resource) error

// caseRules lists what each action needs. Pairs without an entry deny.
var caseRules = map[Entity]map[Action][]rule{
	EntityCase: {
		ActionRead:   {visible},
		ActionUpdate: {visible},
	},
	EntityCaseUpdate: {
		ActionRead:   {visible},
		ActionUpdate: {visible, globalOrOwn(features.EditUpdates)},
		ActionDelete: {visible, globalOrOwn(features.DeleteUpdates)},
	},
}

type CasePolicyParams struct {
	fx.In

	MembershipService *MembershipService
	PermissionService *PermissionService
	AccessResolver    *AccessResolver
}

func NewCasePolicy(params CasePolicyParams) *CasePolicy {
	return &CasePolicy{
		members:     params.MembershipService,
		permissions: params.PermissionService,
		access:      params.AccessResolver,
	}
}

// CasePolicy is the per-row guard every case data path calls before
// returning or writing rows.
type CasePolicy struct {
	members     *MembershipService
	permissions *PermissionService
	access      *AccessResolver
}

// Authorize returns nil when the principal in ctx may perform action on res.
// Invisible rows yield ErrNotFound, visible rows without the feature yield
// ErrForbidden. An active bypass or elevation skips evaluation.
func (p *CasePolicy) Authorize(ctx context.Context, entity Entity, action Action, res Resource) error {
	if res.Case == nil {
		return fmt.Errorf("%w: %s without case", ErrNotFound, entity)
	}

	if info, ok := authz.GetBypassInfo(ctx); ok {
		log.Debug(ctx, "case policy skipped",
			log.String("entity", string(entity)),
			log.String("action", string(action)),
			log.String("reason", info.Reason),
		)

		return nil
	}

	principal, ok := authz.GetPrincipal(ctx)
	if !ok {
		return fmt.Errorf("%w: no principal", ErrNotFound)
	}

	if principal.IsSystem() || principal.IsTest() {
		return nil
	}

	rules, ok := caseRules[entity][action]
	if !ok {
		return fmt.Errorf("%w: no rule for %s %s", ErrForbidden, action, entity)
	}

	role, err := p.members.RequireMember(ctx, res.Case.OrganizationID)
	if err != nil {
		return err
	}

	sub := subject{UserID: principal.UserID, Role: role}

	for _, r := range rules {
		if err := r(ctx, p, sub, res); err != nil {
			log.Debug(ctx, "case policy denied",
				log.String("entity", string(entity)),
				log.String("action", string(action)),
				log.String("case_id", res.Case.ID),
				log.String("role", string(role)),
				log.Cause(err),
			)

			return err
		}
	}

	return nil
}

// visible lets standard members see every case of their organization and
// asks the access resolver for relationship-scoped roles.
func visible(ctx context.Context, p *CasePolicy, sub subject, res Resource) error {
	if !p.access.Scoped(sub.Role) {
		return nil
	}

	ok, err := p.access.CanAccess(ctx, sub.UserID, res.Case.ID)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: case %s", ErrNotFound, res.Case.ID)
	}

	return nil
}

// globalOrOwn composes a global feature with its ownership-qualified variant:
// global OR (author AND own). Keys without a variant check global only.
func globalOrOwn(global features.Key) rule {
	own, hasOwn := features.OwnVariant(global)

	return func(ctx context.Context, p *CasePolicy, sub subject, res Resource) error {
		if authz.HasFeature(ctx, p.permissions, sub.Role, global) {
			return nil
		}

		if hasOwn && res.AuthorID == sub.UserID && authz.HasFeature(ctx, p.permissions, sub.Role, own) {
			return nil
		}

		return fmt.Errorf("%w: role %s lacks %s", ErrForbidden, sub.Role, global)
	}
}
