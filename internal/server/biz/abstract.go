package biz

import (
	"context"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/looplj/caseflow/internal/server/db"
)

type AbstractService struct {
	db *db.Client
}

func (a *AbstractService) RunInTransaction(ctx context.Context, fn func(context.Context) error) error {
	return a.db.RunInTransaction(ctx, fn)
}

func (a *AbstractService) table(name string) *entsql.SelectTable {
	return a.db.Builder().Table(name)
}

func (a *AbstractService) selectFrom(table string, columns ...string) *entsql.Selector {
	return a.db.Builder().Select(columns...).From(a.table(table))
}

func (a *AbstractService) countFrom(table string) *entsql.Selector {
	return a.db.Builder().Select(entsql.Count("*")).From(a.table(table))
}

// queryOne scans the first row of sel into dest and reports whether a row was found.
func (a *AbstractService) queryOne(ctx context.Context, sel *entsql.Selector, dest ...any) (bool, error) {
	q, args := sel.Limit(1).Query()

	found := false
	err := a.db.Query(ctx, q, args, func(rows *entsql.Rows) error {
		if !rows.Next() {
			return nil
		}

		found = true

		return rows.Scan(dest...)
	})

	return found, err
}

// exists runs a COUNT selector.
func (a *AbstractService) exists(ctx context.Context, sel *entsql.Selector) (bool, error) {
	q, args := sel.Query()

	n, err := a.db.Count(ctx, q, args)
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// exec runs a write statement and returns the affected row count.
func (a *AbstractService) exec(ctx context.Context, stmt entsql.Querier) (int64, error) {
	q, args := stmt.Query()

	res, err := a.db.Exec(ctx, q, args)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
