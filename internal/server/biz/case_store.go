package biz

import (
	"context"
	"database/sql"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/looplj/caseflow/internal/pkg/xtime"
)

// DefaultWorkflow applies to cases stored without a workflow.
const DefaultWorkflow = "standard"

type Case struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Title          string    `json:"title"`
	Workflow       string    `json:"workflow"`
	StatusID       *string   `json:"status_id,omitempty"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

type CaseUpdate struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// findCase loads a case without any policy evaluation. Callers apply the
// case policy before returning the row to a principal.
func (a *AbstractService) findCase(ctx context.Context, caseID string) (*Case, bool, error) {
	if caseID == "" {
		return nil, false, nil
	}

	var (
		c         Case
		statusID  sql.NullString
		createdAt int64
	)

	found, err := a.queryOne(ctx,
		a.selectFrom("cases", "id", "organization_id", "title", "workflow", "status_id", "created_by", "created_at").
			Where(entsql.EQ("id", caseID)),
		&c.ID, &c.OrganizationID, &c.Title, &c.Workflow, &statusID, &c.CreatedBy, &createdAt,
	)
	if err != nil || !found {
		return nil, found, err
	}

	if c.Workflow == "" {
		c.Workflow = DefaultWorkflow
	}

	if statusID.Valid {
		c.StatusID = &statusID.String
	}

	c.CreatedAt = xtime.FromMillis(createdAt)

	return &c, true, nil
}

func (a *AbstractService) findCaseUpdate(ctx context.Context, updateID string) (*CaseUpdate, bool, error) {
	if updateID == "" {
		return nil, false, nil
	}

	var (
		u         CaseUpdate
		createdAt int64
	)

	found, err := a.queryOne(ctx,
		a.selectFrom("case_updates", "id", "case_id", "author_id", "body", "created_at").
			Where(entsql.EQ("id", updateID)),
		&u.ID, &u.CaseID, &u.AuthorID, &u.Body, &createdAt,
	)
	if err != nil || !found {
		return nil, found, err
	}

	u.CreatedAt = xtime.FromMillis(createdAt)

	return &u, true, nil
}
