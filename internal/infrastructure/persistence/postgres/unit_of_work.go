// Package postgres - UnitOfWork implementation over pgx transactions.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinvault/coinvault/internal/application/ports"
	domainErrors "github.com/coinvault/coinvault/internal/domain/errors"
)

// Compile-time check
var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork implements ports.UnitOfWork with PostgreSQL transactions.
//
// Transfers require repeatable-read isolation: the balance check and the
// balance update must observe the locked row's committed value. That is the
// default here; read-committed would be insufficient.
type UnitOfWork struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

// NewUnitOfWork creates a UnitOfWork running at repeatable read.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{
		pool: pool,
		opts: pgx.TxOptions{IsoLevel: pgx.RepeatableRead},
	}
}

// NewUnitOfWorkWithIsolation creates a UnitOfWork at a specific level.
func NewUnitOfWorkWithIsolation(pool *pgxpool.Pool, isolation pgx.TxIsoLevel) *UnitOfWork {
	return &UnitOfWork{
		pool: pool,
		opts: pgx.TxOptions{IsoLevel: isolation},
	}
}

// Execute runs fn inside a transaction.
//
// Behaviour:
// - a context already carrying a transaction joins it (no nesting)
// - fn returning nil commits; an error rolls back
// - a panic rolls back and re-panics
func (u *UnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	if hasTx(ctx) {
		return fn(ctx)
	}

	tx, err := u.pool.BeginTx(ctx, u.opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	txCtx := injectTx(ctx, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		if isSerializationFailure(err) {
			// Repeatable read aborts a locking read whose row moved after
			// our snapshot. The whole unit of work re-runs cleanly.
			return fmt.Errorf("%w: %s", domainErrors.ErrRetryConflict, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: %s", domainErrors.ErrRetryConflict, err)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
