package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/looplj/caseflow/internal/authz"
	"github.com/looplj/caseflow/internal/features"
	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/pkg/xregexp"
	"github.com/looplj/caseflow/internal/pkg/xtime"
	"github.com/looplj/caseflow/internal/roles"
	"github.com/looplj/caseflow/internal/server/db"
)

const (
	DefaultPlan = "free"

	subdomainPattern = `[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?`
)

type OrganizationConfig struct {
	// ReservedSubdomains are patterns that may not be provisioned.
	ReservedSubdomains []string `conf:"reserved_subdomains" yaml:"reserved_subdomains" json:"reserved_subdomains"`
}

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}

type ProvisionInput struct {
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
	Plan      string `json:"plan"`
	OwnerID   string `json:"owner_id"`
}

type OrganizationServiceParams struct {
	fx.In

	DB                *db.Client
	Config            OrganizationConfig
	MembershipService *MembershipService
}

func NewOrganizationService(params OrganizationServiceParams) *OrganizationService {
	return &OrganizationService{
		AbstractService: &AbstractService{
			db: params.DB,
		},
		members:  params.MembershipService,
		reserved: params.Config.ReservedSubdomains,
	}
}

type OrganizationService struct {
	*AbstractService

	members  *MembershipService
	reserved []string
}

// Provision creates an organization together with its owner membership and
// an audit record. Either all three rows are written or none.
func (s *OrganizationService) Provision(ctx context.Context, input ProvisionInput) (*Organization, error) {
	org, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	p, ok := authz.GetPrincipal(ctx)
	if !ok || !(p.IsSystem() || p.IsTest() || (p.IsUser() && p.UserID == input.OwnerID)) {
		return nil, fmt.Errorf("%w: only the future owner or the system may provision", ErrForbidden)
	}

	err = s.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := s.exec(ctx, s.db.Builder().Insert("organizations").
			Columns("id", "name", "subdomain", "plan", "created_at").
			Values(org.ID, org.Name, org.Subdomain, org.Plan, xtime.ToMillis(org.CreatedAt)))
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrSubdomainTaken, org.Subdomain)
		}

		if err != nil {
			return fmt.Errorf("insert organization: %w", err)
		}

		if err := s.members.insertMember(ctx, &Member{
			OrganizationID: org.ID,
			UserID:         input.OwnerID,
			Role:           roles.Owner,
			CreatedAt:      org.CreatedAt,
		}); err != nil {
			return fmt.Errorf("insert owner: %w", err)
		}

		return s.writeAudit(ctx, org.ID, "organization.provisioned", "organization", org.ID, map[string]string{
			"owner_id":  input.OwnerID,
			"subdomain": org.Subdomain,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "organization provisioned",
		log.String("organization_id", org.ID),
		log.String("subdomain", org.Subdomain),
	)

	return org, nil
}

func (s *OrganizationService) normalize(input ProvisionInput) (*Organization, error) {
	name := strings.TrimSpace(input.Name)
	subdomain := strings.ToLower(strings.TrimSpace(input.Subdomain))

	if name == "" || input.OwnerID == "" {
		return nil, fmt.Errorf("%w: name and owner are required", ErrInvalidInput)
	}

	if !xregexp.MatchString(subdomainPattern, subdomain) {
		return nil, fmt.Errorf("%w: invalid subdomain %q", ErrInvalidInput, input.Subdomain)
	}

	if xregexp.MatchAny(s.reserved, subdomain) {
		return nil, fmt.Errorf("%w: %s is reserved", ErrSubdomainTaken, subdomain)
	}

	plan := strings.TrimSpace(input.Plan)
	if plan == "" {
		plan = DefaultPlan
	}

	return &Organization{
		ID:        uuid.NewString(),
		Name:      name,
		Subdomain: subdomain,
		Plan:      plan,
		CreatedAt: xtime.Now(),
	}, nil
}

// GetOrganization returns an organization the caller is a member of.
func (s *OrganizationService) GetOrganization(ctx context.Context, orgID string) (*Organization, error) {
	if err := s.members.RequireReader(ctx, orgID); err != nil {
		return nil, err
	}

	var (
		org       Organization
		createdAt int64
	)

	found, err := s.queryOne(ctx,
		s.selectFrom("organizations", "id", "name", "subdomain", "plan", "created_at").Where(entsql.EQ("id", orgID)),
		&org.ID, &org.Name, &org.Subdomain, &org.Plan, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query organization: %w", err)
	}

	if !found {
		return nil, fmt.Errorf("%w: organization %s", ErrNotFound, orgID)
	}

	org.CreatedAt = xtime.FromMillis(createdAt)

	return &org, nil
}

// AuditLogs returns the audit trail of orgID to members who manage the roster.
func (s *OrganizationService) AuditLogs(ctx context.Context, orgID string) ([]AuditLog, error) {
	if _, err := s.members.Authorize(ctx, orgID, features.ManageMembers); err != nil {
		return nil, err
	}

	logs, err := s.auditLogs(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}

	return logs, nil
}
