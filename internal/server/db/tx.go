package db

import (
	"context"

	"entgo.io/ent/dialect"
)

type txKey struct{}

// NewTxContext binds tx to ctx so Conn picks it up.
func NewTxContext(ctx context.Context, tx dialect.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func TxFromContext(ctx context.Context) dialect.Tx {
	tx, _ := ctx.Value(txKey{}).(dialect.Tx)
	return tx
}

// RunInTransaction runs fn inside a transaction. A transaction already bound
// to ctx is reused, so nested calls commit or roll back with the outermost one.
func (c *Client) RunInTransaction(ctx context.Context, fn func(context.Context) error) (err error) {
	if tx := TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := c.driver.Tx(ctx)
	if err != nil {
		return err
	}

	committed := false

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()

			panic(r)
		}

		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(NewTxContext(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	committed = true

	return nil
}
