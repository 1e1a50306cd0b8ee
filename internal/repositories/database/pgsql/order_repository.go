package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	portsrepo "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/repositories"
	"github.com/SscSPs/food_erp_fulfillment/internal/models"
	"github.com/SscSPs/food_erp_fulfillment/internal/utils/mapping"
	"github.com/SscSPs/food_erp_fulfillment/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `kind, code, order_date, counterparty_id, counterparty_contact, remark,
	last_seq_no, version, created_at, created_by, last_updated_at, last_updated_by`

const orderLineColumns = `kind, code, seq_no, item_id, quantity, unit_cost, warehouse_id, remark, status,
	pending_commit, reserved_qty, reserved_warehouse_id, cancel_reason, updated_at`

// orderSequences maps each order kind to the sequence its codes are numbered from.
var orderSequences = map[domain.OrderKind]string{
	domain.PurchaseOrder: "purchase_order_seq",
	domain.SalesOrder:    "sales_order_seq",
}

type PgxOrderRepository struct {
	BaseRepository
}

// newPgxOrderRepository creates a new repository for orders and their lines.
func newPgxOrderRepository(pool *pgxpool.Pool) *PgxOrderRepository {
	return &PgxOrderRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.OrderRepositoryFacade = (*PgxOrderRepository)(nil)

// FindOrderByCode retrieves an order with all of its lines.
func (r *PgxOrderRepository) FindOrderByCode(ctx context.Context, kind domain.OrderKind, code string) (*domain.Order, error) {
	return findOrder(ctx, r.Pool, kind, code)
}

func findOrder(ctx context.Context, db dbtx, kind domain.OrderKind, code string) (*domain.Order, error) {
	rows, err := db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE kind = $1 AND code = $2;`, string(kind), code)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query order "+code, err)
	}
	header, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Order])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("%s order %s", kind, code))
		}
		return nil, apperrors.NewAppError(500, "failed to scan order "+code, err)
	}

	rows, err = db.Query(ctx, `SELECT `+orderLineColumns+` FROM order_lines WHERE kind = $1 AND code = $2 ORDER BY seq_no;`, string(kind), code)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query lines of order "+code, err)
	}
	lines, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.OrderLine])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan lines of order "+code, err)
	}
	return mapping.ToDomainOrder(header, lines), nil
}

// ListOrders retrieves a page of orders of one kind ordered by (created_at, code) descending.
func (r *PgxOrderRepository) ListOrders(ctx context.Context, kind domain.OrderKind, limit int, nextToken *string) ([]domain.Order, *string, error) {
	limit = pagination.NormalizeLimit(limit)
	// We fetch one extra item to determine if there's a next page.
	args := pgx.NamedArgs{"kind": string(kind), "limit": limit + 1}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE kind = @kind`
	if nextToken != nil && *nextToken != "" {
		createdAt, code, err := pagination.DecodeOrderToken(*nextToken)
		if err != nil {
			return nil, nil, err
		}
		// Tuple comparison keeps the cursor stable across equal timestamps
		query += ` AND (created_at, code) < (@created_at, @code)`
		args["created_at"] = createdAt
		args["code"] = code
	}
	query += ` ORDER BY created_at DESC, code DESC LIMIT @limit;`

	rows, err := r.Pool.Query(ctx, query, args)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to list orders", err)
	}
	headers, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Order])
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to scan orders", err)
	}

	var next *string
	if len(headers) > limit {
		headers = headers[:limit]
		last := headers[len(headers)-1]
		token := pagination.EncodeOrderToken(last.CreatedAt, last.Code)
		next = &token
	}
	if len(headers) == 0 {
		return []domain.Order{}, nil, nil
	}

	codes := make([]string, len(headers))
	for i, h := range headers {
		codes[i] = h.Code
	}
	rows, err = r.Pool.Query(ctx,
		`SELECT `+orderLineColumns+` FROM order_lines WHERE kind = $1 AND code = ANY($2) ORDER BY code, seq_no;`,
		string(kind), codes)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query order lines", err)
	}
	lineRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.OrderLine])
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to scan order lines", err)
	}
	linesByCode := make(map[string][]models.OrderLine, len(headers))
	for _, l := range lineRows {
		linesByCode[l.Code] = append(linesByCode[l.Code], l)
	}

	orders := make([]domain.Order, len(headers))
	for i, h := range headers {
		orders[i] = *mapping.ToDomainOrder(h, linesByCode[h.Code])
	}
	return orders, next, nil
}

// CreateOrder numbers the order from its kind's sequence and inserts it with its lines at version 1.
func (r *PgxOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	seqName, ok := orderSequences[order.Kind]
	if !ok {
		return fmt.Errorf("%w: unknown order kind %q", apperrors.ErrValidation, order.Kind)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx) // Will be ignored if transaction is committed successfully

	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval($1::regclass);`, seqName).Scan(&seq); err != nil {
		return apperrors.NewAppError(500, "failed to allocate order number", err)
	}
	if err := order.AssignCode(order.Kind.FormatOrderCode(order.CreatedAt, seq)); err != nil {
		return err
	}
	order.Version = 1

	m := mapping.ToModelOrder(order)
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`,
		m.Kind, m.Code, m.OrderDate, m.CounterpartyID, m.CounterpartyContact, m.Remark,
		m.LastSeqNo, m.Version, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert order "+m.Code, err)
	}
	if err := insertOrderLines(ctx, tx, order); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// UpdateOrder persists the order under its version check.
func (r *PgxOrderRepository) UpdateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := saveOrder(ctx, tx, order); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// saveOrder rewrites the header and lines of order inside tx when the stored
// version still equals order.Version, then bumps order.Version.
func saveOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	m := mapping.ToModelOrder(order)
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET order_date = $3, counterparty_id = $4, counterparty_contact = $5, remark = $6,
		    last_seq_no = $7, last_updated_at = $8, last_updated_by = $9, version = version + 1
		WHERE kind = $1 AND code = $2 AND version = $10;`,
		m.Kind, m.Code, m.OrderDate, m.CounterpartyID, m.CounterpartyContact, m.Remark,
		m.LastSeqNo, m.LastUpdatedAt, m.LastUpdatedBy, m.Version,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update order "+m.Code, err)
	}
	if tag.RowsAffected() == 0 {
		var stored int64
		err := tx.QueryRow(ctx, `SELECT version FROM orders WHERE kind = $1 AND code = $2;`, m.Kind, m.Code).Scan(&stored)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFoundError(fmt.Sprintf("%s order %s", order.Kind, order.Code))
		}
		if err != nil {
			return apperrors.NewAppError(500, "failed to read version of order "+m.Code, err)
		}
		return fmt.Errorf("%w: order %s was modified concurrently (version %d, stored %d)",
			apperrors.ErrConflict, order.Code, order.Version, stored)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE kind = $1 AND code = $2;`, m.Kind, m.Code); err != nil {
		return apperrors.NewAppError(500, "failed to replace lines of order "+m.Code, err)
	}
	if err := insertOrderLines(ctx, tx, order); err != nil {
		return err
	}
	order.Version++
	return nil
}

func insertOrderLines(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	batch := &pgx.Batch{}
	for _, l := range mapping.ToModelOrderLines(order) {
		batch.Queue(`
			INSERT INTO order_lines (`+orderLineColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);`,
			l.Kind, l.Code, l.SeqNo, l.ItemID, l.Quantity, l.UnitCost, l.WarehouseID, l.Remark, l.Status,
			l.PendingCommit, l.ReservedQty, l.ReservedWarehouseID, l.CancelReason, l.UpdatedAt,
		)
	}
	return sendBatch(ctx, tx, batch, "order lines of "+order.Code)
}
