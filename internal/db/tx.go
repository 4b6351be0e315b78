package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/vigilia-platform/iotcore/internal/errors"
)

// WithTx runs fn inside a single transaction, committing on nil error and
// rolling back otherwise. Used by the provisioning service so a device row
// and its credential are created all-or-nothing.
func (p *Pool) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.KindUnavailable, "beginning transaction")
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.KindUnavailable, "committing transaction")
	}
	return nil
}
