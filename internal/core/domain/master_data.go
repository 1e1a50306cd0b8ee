package domain

import "github.com/shopspring/decimal"

// ItemFlag classifies an item in the master data registry.
type ItemFlag string

const (
	ItemMaterial ItemFlag = "MATERIAL"
	ItemProduct  ItemFlag = "PRODUCT"
)

// WarehouseType classifies a warehouse in the master data registry.
type WarehouseType string

const (
	WarehouseMaterial WarehouseType = "MATERIAL"
	WarehouseProduct  WarehouseType = "PRODUCT"
	WarehouseMixed    WarehouseType = "MIXED"
	WarehouseReturn   WarehouseType = "RETURN"
)

// Item is read from the external registry. MaxQty of zero means no upper threshold.
type Item struct {
	ItemID string          `json:"itemId"`
	Name   string          `json:"name"`
	Flag   ItemFlag        `json:"flag"`
	Unit   string          `json:"unit"`
	MinQty decimal.Decimal `json:"minQty"`
	MaxQty decimal.Decimal `json:"maxQty"`
}

// Warehouse is read from the external registry.
type Warehouse struct {
	WarehouseID string        `json:"warehouseId"`
	Name        string        `json:"name"`
	Type        WarehouseType `json:"type"`
	Active      bool          `json:"active"`
}

// Accepts reports whether items with the given flag may be stored here.
func (w Warehouse) Accepts(flag ItemFlag) bool {
	switch w.Type {
	case WarehouseMixed, WarehouseReturn:
		return true
	case WarehouseMaterial:
		return flag == ItemMaterial
	case WarehouseProduct:
		return flag == ItemProduct
	default:
		return false
	}
}

// IsShortage reports whether available stock is below the item's minimum.
func (i Item) IsShortage(available decimal.Decimal) bool {
	return i.MinQty.IsPositive() && available.LessThan(i.MinQty)
}

// IsExcess reports whether on-hand stock exceeds the item's maximum.
func (i Item) IsExcess(stockQty decimal.Decimal) bool {
	return i.MaxQty.IsPositive() && stockQty.GreaterThan(i.MaxQty)
}
