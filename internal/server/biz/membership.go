package biz

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/looplj/caseflow/internal/authz"
	"github.com/looplj/caseflow/internal/features"
	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/pkg/xtime"
	"github.com/looplj/caseflow/internal/roles"
	"github.com/looplj/caseflow/internal/server/db"
)

type Member struct {
	OrganizationID string     `json:"organization_id"`
	UserID         string     `json:"user_id"`
	Role           roles.Role `json:"role"`
	CreatedAt      time.Time  `json:"created_at"`
}

type MembershipServiceParams struct {
	fx.In

	DB                *db.Client
	PermissionService *PermissionService
}

func NewMembershipService(params MembershipServiceParams) *MembershipService {
	return &MembershipService{
		AbstractService: &AbstractService{
			db: params.DB,
		},
		permissions: params.PermissionService,
	}
}

// MembershipService is the tenant-scoped directory of principal roles.
type MembershipService struct {
	*AbstractService

	permissions *PermissionService
}

// RoleOf returns the role of userID in orgID. A missing row means no role.
func (s *MembershipService) RoleOf(ctx context.Context, userID, orgID string) (roles.Role, bool, error) {
	if userID == "" || orgID == "" {
		return "", false, nil
	}

	var raw string

	found, err := s.queryOne(ctx,
		s.selectFrom("members", "role").Where(entsql.And(
			entsql.EQ("organization_id", orgID),
			entsql.EQ("user_id", userID),
		)),
		&raw,
	)
	if err != nil {
		return "", false, fmt.Errorf("query role: %w", err)
	}

	if !found {
		return "", false, nil
	}

	role, ok := roles.Parse(raw)

	return role, ok, nil
}

// Authorize checks that the principal in ctx may use key in orgID.
// Non-members get ErrNotFound, members without the feature get ErrForbidden.
// System and test principals are always allowed.
func (s *MembershipService) Authorize(ctx context.Context, orgID string, key features.Key) (roles.Role, error) {
	p, ok := authz.GetPrincipal(ctx)
	if !ok {
		return "", fmt.Errorf("%w: no principal", ErrNotFound)
	}

	if p.IsSystem() || p.IsTest() {
		return "", nil
	}

	role, err := s.RequireMember(ctx, orgID)
	if err != nil {
		return "", err
	}

	if err := authz.RequireFeature(ctx, s.permissions, role, key); err != nil {
		return role, fmt.Errorf("%w: %w", ErrForbidden, err)
	}

	return role, nil
}

// RequireMember returns the role of the authenticated user in orgID, or
// ErrNotFound when the user is not a member.
func (s *MembershipService) RequireMember(ctx context.Context, orgID string) (roles.Role, error) {
	userID, ok := authz.AuthenticatedUserID(ctx)
	if !ok {
		return "", fmt.Errorf("%w: not authenticated", ErrNotFound)
	}

	role, ok, err := s.RoleOf(ctx, userID, orgID)
	if err != nil {
		return "", err
	}

	if !ok {
		return "", fmt.Errorf("%w: organization %s", ErrNotFound, orgID)
	}

	return role, nil
}

// RequireReader lets system and test principals through and requires
// membership of orgID from users.
func (s *MembershipService) RequireReader(ctx context.Context, orgID string) error {
	if p, ok := authz.GetPrincipal(ctx); ok && (p.IsSystem() || p.IsTest()) {
		return nil
	}

	_, err := s.RequireMember(ctx, orgID)

	return err
}

// AddMember creates the membership of userID, e.g. on invite acceptance.
func (s *MembershipService) AddMember(ctx context.Context, orgID, userID string, role roles.Role) (*Member, error) {
	r, ok := roles.Parse(string(role))
	if !ok || orgID == "" || userID == "" {
		return nil, fmt.Errorf("%w: organization, user and role are required", ErrInvalidInput)
	}

	if _, err := s.Authorize(ctx, orgID, features.ManageMembers); err != nil {
		return nil, err
	}

	if r == roles.Owner && !s.actsAsOwner(ctx, orgID) {
		return nil, fmt.Errorf("%w: only owners may add owners", ErrForbidden)
	}

	member := &Member{OrganizationID: orgID, UserID: userID, Role: r, CreatedAt: xtime.Now()}

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.insertMember(ctx, member); err != nil {
			return err
		}

		return s.writeAudit(ctx, orgID, "member.added", "member", userID, map[string]string{"role": string(r)})
	})
	if err != nil {
		return nil, err
	}

	return member, nil
}

func (s *MembershipService) insertMember(ctx context.Context, m *Member) error {
	_, err := s.exec(ctx, s.db.Builder().Insert("members").
		Columns("organization_id", "user_id", "role", "created_at").
		Values(m.OrganizationID, m.UserID, string(m.Role), xtime.ToMillis(m.CreatedAt)))
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s in %s", ErrMemberExists, m.UserID, m.OrganizationID)
	}

	return err
}

// ReplaceRole swaps the role of an existing member. The old row is deleted and
// the new one inserted in a single transaction, so the member never ends up
// with no role or two roles.
func (s *MembershipService) ReplaceRole(ctx context.Context, orgID, userID string, role roles.Role) (*Member, error) {
	r, ok := roles.Parse(string(role))
	if !ok || orgID == "" || userID == "" {
		return nil, fmt.Errorf("%w: organization, user and role are required", ErrInvalidInput)
	}

	if _, err := s.Authorize(ctx, orgID, features.ManageMembers); err != nil {
		return nil, err
	}

	var member *Member

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		current, found, err := s.RoleOf(ctx, userID, orgID)
		if err != nil {
			return err
		}

		if !found {
			return fmt.Errorf("%w: member %s", ErrNotFound, userID)
		}

		if (current == roles.Owner || r == roles.Owner) && !s.actsAsOwner(ctx, orgID) {
			return fmt.Errorf("%w: only owners may grant or revoke owner", ErrForbidden)
		}

		if current == roles.Owner && r != roles.Owner {
			owners, err := s.countRole(ctx, orgID, roles.Owner)
			if err != nil {
				return err
			}

			if owners <= 1 {
				return ErrLastOwner
			}
		}

		if _, err := s.exec(ctx, s.db.Builder().Delete("members").Where(entsql.And(
			entsql.EQ("organization_id", orgID),
			entsql.EQ("user_id", userID),
		))); err != nil {
			return fmt.Errorf("delete member: %w", err)
		}

		member = &Member{OrganizationID: orgID, UserID: userID, Role: r, CreatedAt: xtime.Now()}
		if err := s.insertMember(ctx, member); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}

		return s.writeAudit(ctx, orgID, "member.role_replaced", "member", userID, map[string]string{
			"from": string(current),
			"to":   string(r),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "member role replaced",
		log.String("organization_id", orgID),
		log.String("user_id", userID),
		log.String("role", string(r)),
	)

	return member, nil
}

// actsAsOwner reports whether ctx holds a system principal or an owner of orgID.
func (s *MembershipService) actsAsOwner(ctx context.Context, orgID string) bool {
	p, ok := authz.GetPrincipal(ctx)
	if !ok {
		return false
	}

	if p.IsSystem() || p.IsTest() {
		return true
	}

	role, found, err := s.RoleOf(ctx, p.UserID, orgID)

	return err == nil && found && role == roles.Owner
}

func (s *MembershipService) countRole(ctx context.Context, orgID string, role roles.Role) (int, error) {
	q, args := s.countFrom("members").Where(entsql.And(
		entsql.EQ("organization_id", orgID),
		entsql.EQ("role", string(role)),
	)).Query()

	return s.db.Count(ctx, q, args)
}
