package mapping

import (
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/SscSPs/food_erp_fulfillment/internal/models"
)

// ToDomainItem converts an items row to a domain Item
func ToDomainItem(m models.Item) domain.Item {
	return domain.Item{
		ItemID: m.ItemID,
		Name:   m.Name,
		Flag:   domain.ItemFlag(m.Flag),
		Unit:   m.Unit,
		MinQty: m.MinQty,
		MaxQty: m.MaxQty,
	}
}

// ToDomainWarehouse converts a warehouses row to a domain Warehouse
func ToDomainWarehouse(m models.Warehouse) domain.Warehouse {
	return domain.Warehouse{
		WarehouseID: m.WarehouseID,
		Name:        m.Name,
		Type:        domain.WarehouseType(m.Type),
		Active:      m.Active,
	}
}
