package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/fx"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/looplj/caseflow/internal/authz"
	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/pkg/xtime"
	"github.com/looplj/caseflow/internal/server/db"
)

type CaseServiceParams struct {
	fx.In

	DB                  *db.Client
	Policy              *CasePolicy
	TransitionValidator *TransitionValidator
}

func NewCaseService(params CaseServiceParams) *CaseService {
	return &CaseService{
		AbstractService: &AbstractService{
			db: params.DB,
		},
		policy:     params.Policy,
		transition: params.TransitionValidator,
	}
}

// CaseService holds the policy-guarded case data paths.
type CaseService struct {
	*AbstractService

	policy     *CasePolicy
	transition *TransitionValidator
}

func (s *CaseService) GetCase(ctx context.Context, caseID string) (*Case, error) {
	c, found, err := s.findCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("load case: %w", err)
	}

	if !found {
		return nil, fmt.Errorf("%w: case %s", ErrNotFound, caseID)
	}

	if err := s.policy.Authorize(ctx, EntityCase, ActionRead, Resource{Case: c}); err != nil {
		return nil, err
	}

	return c, nil
}

// ValidateTransition runs the transition validator for a case the caller can
// see. The caller is always the actor.
func (s *CaseService) ValidateTransition(ctx context.Context, caseID string, fromStatusID *string, toStatusID string) (Decision, error) {
	actorID, ok := authz.AuthenticatedUserID(ctx)
	if !ok {
		return Decision{}, fmt.Errorf("%w: not authenticated", ErrNotFound)
	}

	if _, err := s.GetCase(ctx, caseID); err != nil {
		return Decision{}, err
	}

	return s.transition.Validate(ctx, TransitionRequest{
		CaseID:       caseID,
		FromStatusID: fromStatusID,
		ToStatusID:   toStatusID,
		ActorID:      actorID,
	})
}

// ChangeStatus moves a case to toStatusID. The current status of the case is
// the transition source and the authenticated caller is the actor. The
// status update and its history row are written in one transaction.
func (s *CaseService) ChangeStatus(ctx context.Context, caseID, toStatusID string) (*Case, error) {
	actorID, ok := authz.AuthenticatedUserID(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: not authenticated", ErrNotFound)
	}

	var updated *Case

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.GetCase(ctx, caseID)
		if err != nil {
			return err
		}

		if err := s.policy.Authorize(ctx, EntityCase, ActionUpdate, Resource{Case: c}); err != nil {
			return err
		}

		decision, err := s.transition.Validate(ctx, TransitionRequest{
			CaseID:       c.ID,
			FromStatusID: c.StatusID,
			ToStatusID:   toStatusID,
			ActorID:      actorID,
		})
		if err != nil {
			return err
		}

		if !decision.Admit {
			return &TransitionRejectedError{Reason: decision.Reason}
		}

		// The current status is part of the predicate so a concurrent change
		// between validation and update is detected.
		current := entsql.IsNull("status_id")
		if c.StatusID != nil {
			current = entsql.EQ("status_id", *c.StatusID)
		}

		n, err := s.exec(ctx, s.db.Builder().Update("cases").
			Set("status_id", toStatusID).
			Where(entsql.And(entsql.EQ("id", c.ID), current)))
		if err != nil {
			return fmt.Errorf("update case status: %w", err)
		}

		if n == 0 {
			return ErrStatusConflict
		}

		seq, err := s.nextHistorySeq(ctx, c.ID)
		if err != nil {
			return err
		}

		if _, err := s.exec(ctx, s.db.Builder().Insert("case_status_history").
			Columns("id", "case_id", "from_status_id", "to_status_id", "actor_id", "seq", "created_at").
			Values(uuid.NewString(), c.ID, c.StatusID, toStatusID, actorID, seq, xtime.ToMillis(xtime.Now()))); err != nil {
			return fmt.Errorf("insert status history: %w", err)
		}

		if err := s.writeAudit(ctx, c.OrganizationID, "case.status_changed", "case", c.ID, map[string]any{
			"from": c.StatusID,
			"to":   toStatusID,
		}); err != nil {
			return err
		}

		c.StatusID = lo.ToPtr(toStatusID)
		updated = c

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "case status changed", log.String("case_id", caseID), log.String("status_id", toStatusID))

	return updated, nil
}

// nextHistorySeq numbers the status changes of a case from 1. The conditional
// status update serializes writers of one case, and (case_id, seq) is unique.
func (s *CaseService) nextHistorySeq(ctx context.Context, caseID string) (int64, error) {
	q, args := s.countFrom("case_status_history").Where(entsql.EQ("case_id", caseID)).Query()

	n, err := s.db.Count(ctx, q, args)
	if err != nil {
		return 0, fmt.Errorf("count status history: %w", err)
	}

	return int64(n) + 1, nil
}

// StatusHistoryEntry is a row of case_status_history.
type StatusHistoryEntry struct {
	FromStatusID *string `json:"from_status_id,omitempty"`
	ToStatusID   string  `json:"to_status_id"`
	ActorID      string  `json:"actor_id"`
}

// StatusHistory returns the status changes of a case, oldest first.
func (s *CaseService) StatusHistory(ctx context.Context, caseID string) ([]StatusHistoryEntry, error) {
	if _, err := s.GetCase(ctx, caseID); err != nil {
		return nil, err
	}

	q, args := s.selectFrom("case_status_history", "from_status_id", "to_status_id", "actor_id").
		Where(entsql.EQ("case_id", caseID)).
		OrderBy("seq").
		Query()

	var entries []StatusHistoryEntry

	err := s.db.Query(ctx, q, args, func(rows *entsql.Rows) error {
		for rows.Next() {
			var (
				e    StatusHistoryEntry
				from *string
			)

			if err := rows.Scan(&from, &e.ToStatusID, &e.ActorID); err != nil {
				return err
			}

			e.FromStatusID = from
			entries = append(entries, e)
		}

		return nil
	})

	return entries, err
}

// loadUpdate returns an update and its case after the policy allowed action.
func (s *CaseService) loadUpdate(ctx context.Context, updateID string, action Action) (*CaseUpdate, *Case, error) {
	u, found, err := s.findCaseUpdate(ctx, updateID)
	if err != nil {
		return nil, nil, fmt.Errorf("load update: %w", err)
	}

	if !found {
		return nil, nil, fmt.Errorf("%w: update %s", ErrNotFound, updateID)
	}

	c, found, err := s.findCase(ctx, u.CaseID)
	if err != nil {
		return nil, nil, fmt.Errorf("load case: %w", err)
	}

	if !found {
		return nil, nil, fmt.Errorf("%w: update %s", ErrNotFound, updateID)
	}

	if err := s.policy.Authorize(ctx, EntityCaseUpdate, action, Resource{Case: c, AuthorID: u.AuthorID}); err != nil {
		return nil, nil, err
	}

	return u, c, nil
}

// EditUpdate replaces the body of an update. Needs edit_updates, or
// edit_own_updates on an update the caller authored.
func (s *CaseService) EditUpdate(ctx context.Context, updateID, body string) (*CaseUpdate, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidInput)
	}

	var updated *CaseUpdate

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		u, c, err := s.loadUpdate(ctx, updateID, ActionUpdate)
		if err != nil {
			return err
		}

		if _, err := s.exec(ctx, s.db.Builder().Update("case_updates").
			Set("body", body).
			Where(entsql.EQ("id", u.ID))); err != nil {
			return fmt.Errorf("update case update: %w", err)
		}

		u.Body = body
		updated = u

		return s.writeAudit(ctx, c.OrganizationID, "case_update.edited", "case_update", u.ID, map[string]string{"case_id": c.ID})
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteUpdate removes an update. Needs delete_updates, or
// delete_own_updates on an update the caller authored.
func (s *CaseService) DeleteUpdate(ctx context.Context, updateID string) error {
	return s.RunInTransaction(ctx, func(ctx context.Context) error {
		u, c, err := s.loadUpdate(ctx, updateID, ActionDelete)
		if err != nil {
			return err
		}

		if _, err := s.exec(ctx, s.db.Builder().Delete("case_updates").Where(entsql.EQ("id", u.ID))); err != nil {
			return fmt.Errorf("delete case update: %w", err)
		}

		return s.writeAudit(ctx, c.OrganizationID, "case_update.deleted", "case_update", u.ID, map[string]string{"case_id": c.ID})
	})
}
