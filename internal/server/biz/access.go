package biz

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/looplj/caseflow/internal/authz"
	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/metrics"
	"github.com/looplj/caseflow/internal/roles"
	"github.com/looplj/caseflow/internal/server/db"
)

type AccessConfig struct {
	// RelationshipRoles are the roles whose case visibility depends on
	// relationship rows. Defaults to vendor.
	RelationshipRoles []string `conf:"relationship_roles" yaml:"relationship_roles" json:"relationship_roles"`
}

// Scoped returns the configured relationship-scoped roles.
func (c AccessConfig) Scoped() roles.Set {
	if len(c.RelationshipRoles) == 0 {
		return roles.DefaultRelationshipScoped()
	}

	return roles.NewSet(c.RelationshipRoles...)
}

// Access decision reasons, used as metric and log attributes.
const (
	accessMissingIdentifier = "missing_identifier"
	accessNotCaller         = "not_authenticated_caller"
	accessCaseNotFound      = "case_not_found"
	accessRoleNotScoped     = "role_not_relationship_scoped"
	accessCreator           = "creator"
	accessUpdateAuthor      = "update_author"
	accessActivityAssignee  = "activity_assignee"
	accessVendorLink        = "vendor_link"
	accessNoRelationship    = "no_relationship"
)

// errElevationRequired guards the relationship queries below.
var errElevationRequired = errors.New("relationship lookup requires elevated trust")

type AccessResolverParams struct {
	fx.In

	DB                *db.Client
	Config            AccessConfig
	MembershipService *MembershipService
	Metrics           *metrics.Recorder
}

func NewAccessResolver(params AccessResolverParams) *AccessResolver {
	return &AccessResolver{
		AbstractService: &AbstractService{
			db: params.DB,
		},
		members: params.MembershipService,
		scoped:  params.Config.Scoped(),
		metrics: params.Metrics,
	}
}

// AccessResolver decides whether a relationship-scoped principal may see a
// case. It reads live rows on every call.
type AccessResolver struct {
	*AbstractService

	members *MembershipService
	scoped  roles.Set
	metrics *metrics.Recorder
}

// Scoped reports whether role is adjudicated by the resolver.
func (r *AccessResolver) Scoped(role roles.Role) bool {
	return r.scoped.Contains(role)
}

// CanAccess reports whether principalID may access caseID.
//
// The three preconditions run before any elevation and are never skipped:
// both identifiers are present, principalID is the authenticated caller, and
// the caller holds a relationship-scoped role in the case organization.
// Only then are the relationship paths evaluated with elevated trust pinned
// to the caller.
func (r *AccessResolver) CanAccess(ctx context.Context, principalID, caseID string) (bool, error) {
	allowed, reason, err := r.canAccess(ctx, principalID, caseID)
	if err != nil {
		log.Error(ctx, "case access resolution failed", log.String("case_id", caseID), log.Cause(err))
		return false, err
	}

	r.metrics.AccessDecision(ctx, allowed, reason)

	log.Debug(ctx, "case access decision",
		log.String("principal_id", principalID),
		log.String("case_id", caseID),
		log.Bool("allowed", allowed),
		log.String("reason", reason),
	)

	return allowed, nil
}

func (r *AccessResolver) canAccess(ctx context.Context, principalID, caseID string) (bool, string, error) {
	if principalID == "" || caseID == "" {
		return false, accessMissingIdentifier, nil
	}

	callerID, ok := authz.AuthenticatedUserID(ctx)
	if !ok || callerID != principalID {
		return false, accessNotCaller, nil
	}

	c, found, err := r.findCase(ctx, caseID)
	if err != nil {
		return false, "", err
	}

	if !found {
		return false, accessCaseNotFound, nil
	}

	role, ok, err := r.members.RoleOf(ctx, principalID, c.OrganizationID)
	if err != nil {
		return false, "", err
	}

	if !ok || !r.scoped.Contains(role) {
		return false, accessRoleNotScoped, nil
	}

	reason, err := authz.RunWithElevatedTrust(ctx, "case-access-resolver", principalID, func(ctx context.Context) (string, error) {
		return r.matchRelationship(ctx, principalID, c)
	})
	if err != nil {
		return false, "", err
	}

	return reason != accessNoRelationship, reason, nil
}

// matchRelationship returns the first access path that holds for principalID.
func (r *AccessResolver) matchRelationship(ctx context.Context, principalID string, c *Case) (string, error) {
	if c.CreatedBy == principalID {
		return accessCreator, nil
	}

	paths := []struct {
		reason string
		check  func(context.Context, string, *Case) (bool, error)
	}{
		{accessUpdateAuthor, r.authoredUpdate},
		{accessActivityAssignee, r.assignedActivity},
		{accessVendorLink, r.linkedVendor},
	}

	for _, path := range paths {
		ok, err := path.check(ctx, principalID, c)
		if err != nil {
			return "", fmt.Errorf("%s: %w", path.reason, err)
		}

		if ok {
			return path.reason, nil
		}
	}

	return accessNoRelationship, nil
}

func requireElevated(ctx context.Context) error {
	info, ok := authz.GetBypassInfo(ctx)
	if !ok || !info.Elevated() {
		return errElevationRequired
	}

	return nil
}

func (r *AccessResolver) authoredUpdate(ctx context.Context, principalID string, c *Case) (bool, error) {
	if err := requireElevated(ctx); err != nil {
		return false, err
	}

	return r.exists(ctx, r.countFrom("case_updates").Where(entsql.And(
		entsql.EQ("case_id", c.ID),
		entsql.EQ("author_id", principalID),
	)))
}

func (r *AccessResolver) assignedActivity(ctx context.Context, principalID string, c *Case) (bool, error) {
	if err := requireElevated(ctx); err != nil {
		return false, err
	}

	return r.exists(ctx, r.countFrom("case_activities").Where(entsql.And(
		entsql.EQ("case_id", c.ID),
		entsql.EQ("assigned_to", principalID),
	)))
}

// linkedVendor follows vendor_contacts -> vendors -> case_vendors. The vendor
// must belong to the case organization.
func (r *AccessResolver) linkedVendor(ctx context.Context, principalID string, c *Case) (bool, error) {
	if err := requireElevated(ctx); err != nil {
		return false, err
	}

	contacts := r.table("vendor_contacts").As("vc")
	vendors := r.table("vendors").As("v")
	links := r.table("case_vendors").As("cv")

	sel := r.db.Builder().Select(entsql.Count("*")).
		From(contacts).
		Join(vendors).On(contacts.C("vendor_id"), vendors.C("id")).
		Join(links).On(links.C("vendor_id"), vendors.C("id")).
		Where(entsql.And(
			entsql.EQ(contacts.C("user_id"), principalID),
			entsql.EQ(links.C("case_id"), c.ID),
			entsql.EQ(vendors.C("organization_id"), c.OrganizationID),
		))

	return r.exists(ctx, sel)
}
