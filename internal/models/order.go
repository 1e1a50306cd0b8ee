package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a row of the orders table.
type Order struct {
	Kind                string    `db:"kind"`
	Code                string    `db:"code"`
	OrderDate           time.Time `db:"order_date"`
	CounterpartyID      string    `db:"counterparty_id"`
	CounterpartyContact string    `db:"counterparty_contact"`
	Remark              string    `db:"remark"`
	LastSeqNo           int       `db:"last_seq_no"`
	Version             int64     `db:"version"`
	AuditFields
}

// OrderLine is a row of the order_lines table.
type OrderLine struct {
	Kind                string          `db:"kind"`
	Code                string          `db:"code"`
	SeqNo               int             `db:"seq_no"`
	ItemID              string          `db:"item_id"`
	Quantity            decimal.Decimal `db:"quantity"`
	UnitCost            decimal.Decimal `db:"unit_cost"`
	WarehouseID         *string         `db:"warehouse_id"` // Nullable
	Remark              string          `db:"remark"`
	Status              string          `db:"status"`
	PendingCommit       bool            `db:"pending_commit"`
	ReservedQty         decimal.Decimal `db:"reserved_qty"`
	ReservedWarehouseID *string         `db:"reserved_warehouse_id"` // Nullable
	CancelReason        string          `db:"cancel_reason"`
	UpdatedAt           time.Time       `db:"updated_at"`
}
