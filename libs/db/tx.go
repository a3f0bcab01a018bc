package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// WithTx runs fn inside a transaction. The transaction commits only when fn
// returns nil; any error (or panic) rolls it back.
func (p *Pool) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := p.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
