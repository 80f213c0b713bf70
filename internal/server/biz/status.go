package biz

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/fx"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/looplj/caseflow/internal/features"
	"github.com/looplj/caseflow/internal/server/db"
)

// CaseStatus is a status of the catalog. A nil OrganizationID marks a
// global default shared by every organization.
type CaseStatus struct {
	ID             string   `json:"id"`
	OrganizationID *string  `json:"organization_id,omitempty"`
	Name           string   `json:"name"`
	IsReadOnly     bool     `json:"is_read_only"`
	SortOrder      int      `json:"sort_order"`
	Workflows      []string `json:"workflows"`
}

// InWorkflow reports whether the status may be entered by cases of workflow.
func (s *CaseStatus) InWorkflow(workflow string) bool {
	if workflow == "" {
		workflow = DefaultWorkflow
	}

	return slices.Contains(s.Workflows, workflow)
}

type CreateStatusInput struct {
	Name       string   `json:"name"`
	IsReadOnly bool     `json:"is_read_only"`
	SortOrder  int      `json:"sort_order"`
	Workflows  []string `json:"workflows"`
}

type StatusServiceParams struct {
	fx.In

	DB                *db.Client
	MembershipService *MembershipService
}

func NewStatusService(params StatusServiceParams) *StatusService {
	return &StatusService{
		AbstractService: &AbstractService{
			db: params.DB,
		},
		members: params.MembershipService,
	}
}

// StatusService is the per-organization status and workflow registry.
type StatusService struct {
	*AbstractService

	members *MembershipService
}

var statusColumns = []string{"id", "organization_id", "name", "is_read_only", "sort_order"}

// visibleTo restricts statuses to those owned by orgID or global.
func visibleTo(orgID string) *entsql.Predicate {
	return entsql.Or(
		entsql.EQ("organization_id", orgID),
		entsql.IsNull("organization_id"),
	)
}

// GetStatus resolves statusID for orgID. Statuses of other organizations
// resolve as ErrNotFound.
func (s *StatusService) GetStatus(ctx context.Context, orgID, statusID string) (*CaseStatus, error) {
	if statusID == "" {
		return nil, fmt.Errorf("%w: status id is empty", ErrNotFound)
	}

	statuses, err := s.queryStatuses(ctx, s.selectFrom("case_statuses", statusColumns...).
		Where(entsql.And(entsql.EQ("id", statusID), visibleTo(orgID))))
	if err != nil {
		return nil, err
	}

	if len(statuses) == 0 {
		return nil, fmt.Errorf("%w: status %s", ErrNotFound, statusID)
	}

	return statuses[0], nil
}

// ListStatuses returns the catalog visible to orgID, filtered by workflow
// when it is not empty. The caller must be a member of orgID.
func (s *StatusService) ListStatuses(ctx context.Context, orgID, workflow string) ([]*CaseStatus, error) {
	if err := s.members.RequireReader(ctx, orgID); err != nil {
		return nil, err
	}

	pred := visibleTo(orgID)
	if workflow != "" {
		pred = entsql.And(pred, entsql.In("id",
			s.db.Builder().Select("status_id").From(s.table("case_status_workflows")).Where(entsql.EQ("workflow", workflow)),
		))
	}

	return s.queryStatuses(ctx, s.selectFrom("case_statuses", statusColumns...).Where(pred).OrderBy("sort_order", "name"))
}

// CreateStatus adds a status to the catalog of orgID. An empty orgID creates
// a global status and needs the system principal.
func (s *StatusService) CreateStatus(ctx context.Context, orgID string, input CreateStatusInput) (*CaseStatus, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: status name is required", ErrInvalidInput)
	}

	if orgID == "" {
		if err := requireAdministrator(ctx); err != nil {
			return nil, err
		}
	} else if _, err := s.members.Authorize(ctx, orgID, features.ManageStatuses); err != nil {
		return nil, err
	}

	workflows := lo.Uniq(lo.FilterMap(input.Workflows, func(w string, _ int) (string, bool) {
		w = strings.TrimSpace(w)
		return w, w != ""
	}))
	if len(workflows) == 0 {
		workflows = []string{DefaultWorkflow}
	}

	status := &CaseStatus{
		ID:         uuid.NewString(),
		Name:       name,
		IsReadOnly: input.IsReadOnly,
		SortOrder:  input.SortOrder,
		Workflows:  workflows,
	}
	if orgID != "" {
		status.OrganizationID = lo.ToPtr(orgID)
	}

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.exec(ctx, s.db.Builder().Insert("case_statuses").
			Columns(statusColumns...).
			Values(status.ID, status.OrganizationID, status.Name, status.IsReadOnly, status.SortOrder)); err != nil {
			return fmt.Errorf("insert status: %w", err)
		}

		stmt := s.db.Builder().Insert("case_status_workflows").Columns("status_id", "workflow")
		for _, w := range workflows {
			stmt.Values(status.ID, w)
		}

		if _, err := s.exec(ctx, stmt); err != nil {
			return fmt.Errorf("insert status workflows: %w", err)
		}

		if orgID == "" {
			return nil
		}

		return s.writeAudit(ctx, orgID, "status.created", "case_status", status.ID, status)
	})
	if err != nil {
		return nil, err
	}

	return status, nil
}

func (s *StatusService) queryStatuses(ctx context.Context, sel *entsql.Selector) ([]*CaseStatus, error) {
	q, args := sel.Query()

	var statuses []*CaseStatus

	err := s.db.Query(ctx, q, args, func(rows *entsql.Rows) error {
		for rows.Next() {
			var (
				st    CaseStatus
				orgID sql.NullString
			)

			if err := rows.Scan(&st.ID, &orgID, &st.Name, &st.IsReadOnly, &st.SortOrder); err != nil {
				return err
			}

			if orgID.Valid {
				st.OrganizationID = lo.ToPtr(orgID.String)
			}

			statuses = append(statuses, &st)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query statuses: %w", err)
	}

	if len(statuses) == 0 {
		return statuses, nil
	}

	return statuses, s.loadWorkflows(ctx, statuses)
}

func (s *StatusService) loadWorkflows(ctx context.Context, statuses []*CaseStatus) error {
	byID := lo.KeyBy(statuses, func(st *CaseStatus) string { return st.ID })
	ids := lo.Map(statuses, func(st *CaseStatus, _ int) any { return st.ID })

	q, args := s.selectFrom("case_status_workflows", "status_id", "workflow").
		Where(entsql.In("status_id", ids...)).
		OrderBy("workflow").
		Query()

	return s.db.Query(ctx, q, args, func(rows *entsql.Rows) error {
		for rows.Next() {
			var statusID, workflow string
			if err := rows.Scan(&statusID, &workflow); err != nil {
				return err
			}

			if st, ok := byID[statusID]; ok {
				st.Workflows = append(st.Workflows, workflow)
			}
		}

		return nil
	})
}
