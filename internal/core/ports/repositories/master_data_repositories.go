package repositories

import (
	"context"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
)

// MasterDataReader is the read-only view of the external item/warehouse registry.
type MasterDataReader interface {
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)
	GetWarehouse(ctx context.Context, warehouseID string) (*domain.Warehouse, error)
	ListWarehouses(ctx context.Context) ([]domain.Warehouse, error)
}
