package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	portsrepo "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/repositories"
	"github.com/SscSPs/food_erp_fulfillment/internal/models"
	"github.com/SscSPs/food_erp_fulfillment/internal/utils/mapping"
	"github.com/SscSPs/food_erp_fulfillment/internal/utils/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const balanceColumns = `item_id, warehouse_id, stock_qty, alloc_qty, version, flagged, flag_reason, updated_at`

const ledgerColumns = `entry_id, item_id, warehouse_id, type, qty_delta, alloc_delta, resulting_balance,
	resulting_alloc, version, entry_ts, counterparty_ref, reference_code, line_seq_no, remark, created_by`

type PgxStockRepository struct {
	BaseRepository
}

// newPgxStockRepository creates a new repository for the stock ledger and balance projection.
func newPgxStockRepository(pool *pgxpool.Pool) *PgxStockRepository {
	return &PgxStockRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.StockRepositoryFacade = (*PgxStockRepository)(nil)

func (r *PgxStockRepository) FindBalance(ctx context.Context, key domain.StockKey) (*domain.StockBalance, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+balanceColumns+` FROM stock_balances WHERE item_id = $1 AND warehouse_id = $2;`,
		key.ItemID, key.WarehouseID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query stock balance "+key.String(), err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.StockBalance])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("stock balance " + key.String())
		}
		return nil, apperrors.NewAppError(500, "failed to scan stock balance "+key.String(), err)
	}
	b := mapping.ToDomainStockBalance(m)
	return &b, nil
}

func (r *PgxStockRepository) FindBalancesByItem(ctx context.Context, itemID string) ([]domain.StockBalance, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+balanceColumns+` FROM stock_balances WHERE item_id = $1 ORDER BY warehouse_id;`, itemID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query stock balances of item "+itemID, err)
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.StockBalance])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan stock balances of item "+itemID, err)
	}
	balances := make([]domain.StockBalance, len(ms))
	for i, m := range ms {
		balances[i] = mapping.ToDomainStockBalance(m)
	}
	return balances, nil
}

func (r *PgxStockRepository) ListBalanceKeys(ctx context.Context) ([]domain.StockKey, error) {
	rows, err := r.Pool.Query(ctx, `SELECT item_id, warehouse_id FROM stock_balances ORDER BY item_id, warehouse_id;`)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list stock balance keys", err)
	}
	keys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StockKey, error) {
		var k domain.StockKey
		err := row.Scan(&k.ItemID, &k.WarehouseID)
		return k, err
	})
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan stock balance keys", err)
	}
	return keys, nil
}

// ListLedgerEntries returns entries of key by version descending.
func (r *PgxStockRepository) ListLedgerEntries(ctx context.Context, key domain.StockKey, limit int, nextToken *string) ([]domain.StockLedgerEntry, *string, error) {
	limit = pagination.NormalizeLimit(limit)
	args := pgx.NamedArgs{"item": key.ItemID, "warehouse": key.WarehouseID, "limit": limit + 1}
	query := `SELECT ` + ledgerColumns + ` FROM stock_ledger WHERE item_id = @item AND warehouse_id = @warehouse`
	if nextToken != nil && *nextToken != "" {
		before, err := pagination.DecodeVersionToken(*nextToken)
		if err != nil {
			return nil, nil, err
		}
		query += ` AND version < @before`
		args["before"] = before
	}
	query += ` ORDER BY version DESC LIMIT @limit;`

	entries, err := r.queryLedger(ctx, r.Pool, query, args)
	if err != nil {
		return nil, nil, err
	}
	var next *string
	if len(entries) > limit {
		entries = entries[:limit]
		token := pagination.EncodeVersionToken(entries[len(entries)-1].Version)
		next = &token
	}
	return entries, next, nil
}

func (r *PgxStockRepository) FindLedgerEntriesByReference(ctx context.Context, referenceCode string) ([]domain.StockLedgerEntry, error) {
	return r.queryLedger(ctx, r.Pool,
		`SELECT `+ledgerColumns+` FROM stock_ledger WHERE reference_code = $1 ORDER BY entry_ts, item_id, warehouse_id, version;`,
		referenceCode)
}

func (r *PgxStockRepository) queryLedger(ctx context.Context, db dbtx, query string, args ...any) ([]domain.StockLedgerEntry, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query stock ledger", err)
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.StockLedgerEntry])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan stock ledger", err)
	}
	return mapping.ToDomainStockLedgerEntrySlice(ms), nil
}

// PostMovements applies the batch in one transaction. Balance rows are created
// if missing and locked with SELECT ... FOR UPDATE in key order, so concurrent
// postings on overlapping rows queue instead of deadlocking.
func (r *PgxStockRepository) PostMovements(ctx context.Context, batch domain.PostingBatch) ([]domain.StockLedgerEntry, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx) // Will be ignored if transaction is committed successfully

	keys := batch.Keys()
	working := make(map[domain.StockKey]domain.StockBalance, len(keys))
	for _, key := range keys {
		b, err := lockBalance(ctx, tx, key, batch.PostedAt)
		if err != nil {
			return nil, err
		}
		working[key] = b
	}
	locked := make(map[domain.StockKey]int64, len(working))
	for key, b := range working {
		locked[key] = b.Version
	}

	entries := make([]domain.StockLedgerEntry, 0, len(batch.Movements))
	for _, m := range batch.Movements {
		next, entry, err := working[m.Key].Apply(m, uuid.NewString(), batch.PostedAt, batch.PostedBy)
		if err != nil {
			return nil, err
		}
		working[m.Key] = next
		entries = append(entries, entry)
	}

	ledgerBatch := &pgx.Batch{}
	for _, e := range entries {
		m := mapping.ToModelStockLedgerEntry(e)
		ledgerBatch.Queue(`
			INSERT INTO stock_ledger (`+ledgerColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);`,
			m.EntryID, m.ItemID, m.WarehouseID, m.Type, m.QtyDelta, m.AllocDelta, m.ResultingBalance,
			m.ResultingAlloc, m.Version, m.Timestamp, m.CounterpartyRef, m.ReferenceCode, m.LineSeqNo, m.Remark, m.CreatedBy,
		)
	}
	if err := sendBatch(ctx, tx, ledgerBatch, "stock postings"); err != nil {
		return nil, err
	}

	balanceBatch := &pgx.Batch{}
	labels := make([]string, 0, len(keys))
	for _, key := range keys {
		if working[key].Version == locked[key] {
			continue
		}
		m := mapping.ToModelStockBalance(working[key])
		balanceBatch.Queue(`
			UPDATE stock_balances
			SET stock_qty = $3, alloc_qty = $4, version = $5, updated_at = $6
			WHERE item_id = $1 AND warehouse_id = $2 AND version = $7;`,
			m.ItemID, m.WarehouseID, m.StockQty, m.AllocQty, m.Version, m.UpdatedAt, locked[key],
		)
		labels = append(labels, "stock balance "+key.String())
	}
	if err := sendVersionedBatch(ctx, tx, balanceBatch, labels); err != nil {
		return nil, err
	}

	if batch.Order != nil {
		if err := saveOrder(ctx, tx, batch.Order); err != nil {
			return nil, err
		}
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return entries, nil
}

// lockBalance makes sure the row of key exists and holds its row lock until tx ends.
func lockBalance(ctx context.Context, tx pgx.Tx, key domain.StockKey, at time.Time) (domain.StockBalance, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_balances (item_id, warehouse_id, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (item_id, warehouse_id) DO NOTHING;`,
		key.ItemID, key.WarehouseID, at)
	if err != nil {
		return domain.StockBalance{}, apperrors.NewAppError(500, "failed to create stock balance "+key.String(), err)
	}

	rows, err := tx.Query(ctx, `SELECT `+balanceColumns+` FROM stock_balances WHERE item_id = $1 AND warehouse_id = $2 FOR UPDATE;`,
		key.ItemID, key.WarehouseID)
	if err != nil {
		return domain.StockBalance{}, apperrors.NewAppError(500, "failed to lock stock balance "+key.String(), err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.StockBalance])
	if err != nil {
		return domain.StockBalance{}, apperrors.NewAppError(500, "failed to scan stock balance "+key.String(), err)
	}
	return mapping.ToDomainStockBalance(m), nil
}

func (r *PgxStockRepository) FlagBalance(ctx context.Context, key domain.StockKey, reason string, at time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if _, err := lockBalance(ctx, tx, key, at); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE stock_balances
		SET flagged = TRUE, flag_reason = $3, updated_at = GREATEST(updated_at, $4)
		WHERE item_id = $1 AND warehouse_id = $2;`,
		key.ItemID, key.WarehouseID, reason, at)
	if err != nil {
		return apperrors.NewAppError(500, "failed to flag stock balance "+key.String(), err)
	}
	return r.Commit(ctx, tx)
}

func (r *PgxStockRepository) ReplayBalance(ctx context.Context, key domain.StockKey, repair bool, at time.Time) (domain.ReplayResult, *domain.StockBalance, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return domain.ReplayResult{}, nil, err
	}
	defer r.Rollback(ctx, tx)

	rows, err := tx.Query(ctx, `SELECT `+balanceColumns+` FROM stock_balances WHERE item_id = $1 AND warehouse_id = $2 FOR UPDATE;`,
		key.ItemID, key.WarehouseID)
	if err != nil {
		return domain.ReplayResult{}, nil, apperrors.NewAppError(500, "failed to lock stock balance "+key.String(), err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.StockBalance])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// ledger rows reference their balance row, so there is nothing to replay
			stored := domain.NewStockBalance(key)
			return domain.ReplayLedger(key, nil), &stored, nil
		}
		return domain.ReplayResult{}, nil, apperrors.NewAppError(500, "failed to scan stock balance "+key.String(), err)
	}
	stored := mapping.ToDomainStockBalance(m)

	entries, err := r.queryLedger(ctx, tx,
		`SELECT `+ledgerColumns+` FROM stock_ledger WHERE item_id = $1 AND warehouse_id = $2 ORDER BY version, entry_ts;`,
		key.ItemID, key.WarehouseID)
	if err != nil {
		return domain.ReplayResult{}, nil, err
	}
	result := domain.ReplayLedger(key, entries)

	if repair && result.IsConsistent() {
		repaired := mapping.ToModelStockBalance(result.Balance())
		if repaired.UpdatedAt.Before(at) {
			repaired.UpdatedAt = at
		}
		_, err := tx.Exec(ctx, `
			UPDATE stock_balances
			SET stock_qty = $3, alloc_qty = $4, version = $5, flagged = FALSE, flag_reason = '', updated_at = $6
			WHERE item_id = $1 AND warehouse_id = $2;`,
			repaired.ItemID, repaired.WarehouseID, repaired.StockQty, repaired.AllocQty, repaired.Version, repaired.UpdatedAt)
		if err != nil {
			return domain.ReplayResult{}, nil, apperrors.NewAppError(500, "failed to repair stock balance "+key.String(), err)
		}
	}

	if err := r.Commit(ctx, tx); err != nil {
		return domain.ReplayResult{}, nil, err
	}
	return result, &stored, nil
}
