package pgsql

import (
	"context"
	"errors"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	portsrepo "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/repositories"
	"github.com/SscSPs/food_erp_fulfillment/internal/models"
	"github.com/SscSPs/food_erp_fulfillment/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxMasterDataRepository reads the replicated item and warehouse registry.
type PgxMasterDataRepository struct {
	BaseRepository
}

func newPgxMasterDataRepository(pool *pgxpool.Pool) *PgxMasterDataRepository {
	return &PgxMasterDataRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.MasterDataReader = (*PgxMasterDataRepository)(nil)

func (r *PgxMasterDataRepository) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	rows, err := r.Pool.Query(ctx, `SELECT item_id, name, flag, unit, min_qty, max_qty FROM items WHERE item_id = $1;`, itemID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query item "+itemID, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Item])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("item " + itemID)
		}
		return nil, apperrors.NewAppError(500, "failed to scan item "+itemID, err)
	}
	item := mapping.ToDomainItem(m)
	return &item, nil
}

func (r *PgxMasterDataRepository) GetWarehouse(ctx context.Context, warehouseID string) (*domain.Warehouse, error) {
	rows, err := r.Pool.Query(ctx, `SELECT warehouse_id, name, type, active FROM warehouses WHERE warehouse_id = $1;`, warehouseID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query warehouse "+warehouseID, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Warehouse])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("warehouse " + warehouseID)
		}
		return nil, apperrors.NewAppError(500, "failed to scan warehouse "+warehouseID, err)
	}
	wh := mapping.ToDomainWarehouse(m)
	return &wh, nil
}

func (r *PgxMasterDataRepository) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	rows, err := r.Pool.Query(ctx, `SELECT warehouse_id, name, type, active FROM warehouses ORDER BY warehouse_id;`)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list warehouses", err)
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Warehouse])
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan warehouses", err)
	}
	warehouses := make([]domain.Warehouse, len(ms))
	for i, m := range ms {
		warehouses[i] = mapping.ToDomainWarehouse(m)
	}
	return warehouses, nil
}
