package models

import "github.com/shopspring/decimal"

// Item is a row of the items table.
type Item struct {
	ItemID string          `db:"item_id"`
	Name   string          `db:"name"`
	Flag   string          `db:"flag"`
	Unit   string          `db:"unit"`
	MinQty decimal.Decimal `db:"min_qty"`
	MaxQty decimal.Decimal `db:"max_qty"`
}

// Warehouse is a row of the warehouses table.
type Warehouse struct {
	WarehouseID string `db:"warehouse_id"`
	Name        string `db:"name"`
	Type        string `db:"type"`
	Active      bool   `db:"active"`
}
