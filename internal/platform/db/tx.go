package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-hr/lumina-backoffice/internal/shared"
)

// DefaultTxTimeout bounds every transaction so a stuck store surfaces
// shared.ErrStoreUnavailable instead of hanging the caller.
const DefaultTxTimeout = 5 * time.Second

// WithSerializableTx executes fn inside a serializable transaction with a
// bounded deadline. Grant replacement and dashboard subtree deletes run here:
// two concurrent writers for the same admin or subtree must never interleave.
func WithSerializableTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTxTimeout)
	defer cancel()

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", translateErr(err))
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return translateErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", translateErr(err))
	}

	return nil
}

// Postgres error codes that matter to the permission stores.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeQueryCanceled        = "57014"
)

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", shared.ErrNotFound, pgErr.ConstraintName)
		case codeSerializationFailure, codeQueryCanceled:
			return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
		}
	}
	return err
}

// TranslateErr exposes the sentinel mapping for repositories running outside
// an explicit transaction.
func TranslateErr(err error) error {
	return translateErr(err)
}
