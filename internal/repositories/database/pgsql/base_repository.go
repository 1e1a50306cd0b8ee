package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx, so read helpers can run
// inside or outside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return apperrors.NewAppError(409, "concurrent update, retry", errors.Join(apperrors.ErrConflict, err))
		}
		return apperrors.NewAppError(500, "failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}

// sendBatch runs every queued statement and fails on the first error.
func sendBatch(ctx context.Context, db dbtx, batch *pgx.Batch, what string) error {
	if batch.Len() == 0 {
		return nil
	}
	br := db.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to execute batch: "+what, err)
	}
	return nil
}

// sendVersionedBatch runs statements guarded by a version predicate, one
// label per queued statement. A statement matching no row is a conflict.
func sendVersionedBatch(ctx context.Context, db dbtx, batch *pgx.Batch, labels []string) error {
	if batch.Len() == 0 {
		return nil
	}
	br := db.SendBatch(ctx, batch)
	var firstErr error
	for _, label := range labels {
		tag, err := br.Exec()
		if err != nil {
			firstErr = apperrors.NewAppError(500, "failed to update "+label, err)
			break
		}
		if err := requireRowsAffected(tag, label); err != nil {
			firstErr = err
			break
		}
	}
	if err := br.Close(); err != nil && firstErr == nil {
		firstErr = apperrors.NewAppError(500, "failed to execute batch", err)
	}
	return firstErr
}

func requireRowsAffected(tag pgconn.CommandTag, what string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s changed concurrently", apperrors.ErrConflict, what)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}
