package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockBalance is a row of the stock_balances table.
type StockBalance struct {
	ItemID      string          `db:"item_id"`
	WarehouseID string          `db:"warehouse_id"`
	StockQty    decimal.Decimal `db:"stock_qty"`
	AllocQty    decimal.Decimal `db:"alloc_qty"`
	Version     int64           `db:"version"`
	Flagged     bool            `db:"flagged"`
	FlagReason  string          `db:"flag_reason"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// StockLedgerEntry is a row of the append-only stock_ledger table.
type StockLedgerEntry struct {
	EntryID          string          `db:"entry_id"`
	ItemID           string          `db:"item_id"`
	WarehouseID      string          `db:"warehouse_id"`
	Type             string          `db:"type"`
	QtyDelta         decimal.Decimal `db:"qty_delta"`
	AllocDelta       decimal.Decimal `db:"alloc_delta"`
	ResultingBalance decimal.Decimal `db:"resulting_balance"`
	ResultingAlloc   decimal.Decimal `db:"resulting_alloc"`
	Version          int64           `db:"version"`
	Timestamp        time.Time       `db:"entry_ts"`
	CounterpartyRef  *string         `db:"counterparty_ref"` // Nullable
	ReferenceCode    *string         `db:"reference_code"`   // Nullable
	LineSeqNo        int             `db:"line_seq_no"`
	Remark           string          `db:"remark"`
	CreatedBy        string          `db:"created_by"`
}
