package biz

import (
	"context"
	"time"

	"github.com/google/uuid"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/looplj/caseflow/internal/authz"
	"github.com/looplj/caseflow/internal/pkg/xjson"
	"github.com/looplj/caseflow/internal/pkg/xtime"
)

// AuditLog is a row of audit_logs.
type AuditLog struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	ActorID        string    `json:"actor_id"`
	Action         string    `json:"action"`
	Entity         string    `json:"entity"`
	EntityID       string    `json:"entity_id"`
	Detail         string    `json:"detail"`
	CreatedAt      time.Time `json:"created_at"`
}

// actorOf names the principal in ctx for audit rows.
func actorOf(ctx context.Context) string {
	if userID, ok := authz.AuthenticatedUserID(ctx); ok {
		return userID
	}

	if p, ok := authz.GetPrincipal(ctx); ok {
		return p.String()
	}

	return "unknown"
}

func (a *AbstractService) writeAudit(ctx context.Context, orgID, action, entity, entityID string, detail any) error {
	stmt := a.db.Builder().Insert("audit_logs").
		Columns("id", "organization_id", "actor_id", "action", "entity", "entity_id", "detail", "created_at").
		Values(uuid.NewString(), orgID, actorOf(ctx), action, entity, entityID, xjson.MustMarshalString(detail), xtime.ToMillis(xtime.Now()))

	_, err := a.exec(ctx, stmt)

	return err
}

// auditLogs returns the audit trail of an organization, oldest first.
func (a *AbstractService) auditLogs(ctx context.Context, orgID string) ([]AuditLog, error) {
	q, args := a.selectFrom("audit_logs", "id", "organization_id", "actor_id", "action", "entity", "entity_id", "detail", "created_at").
		Where(entsql.EQ("organization_id", orgID)).
		OrderBy("created_at", "id").
		Query()

	var logs []AuditLog

	err := a.db.Query(ctx, q, args, func(rows *entsql.Rows) error {
		for rows.Next() {
			var (
				l         AuditLog
				createdAt int64
			)

			if err := rows.Scan(&l.ID, &l.OrganizationID, &l.ActorID, &l.Action, &l.Entity, &l.EntityID, &l.Detail, &createdAt); err != nil {
				return err
			}

			l.CreatedAt = xtime.FromMillis(createdAt)
			logs = append(logs, l)
		}

		return nil
	})

	return logs, err
}
