package dto

import (
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/shopspring/decimal"
)

// StockBalanceParams identifies one balance row.
type StockBalanceParams struct {
	ItemID      string `form:"itemId" binding:"required"`
	WarehouseID string `form:"warehouseId" binding:"required"`
}

// Key returns the balance key addressed by the params.
func (p StockBalanceParams) Key() domain.StockKey {
	return domain.StockKey{ItemID: p.ItemID, WarehouseID: p.WarehouseID}
}

// CandidateBalancesParams selects the item whose candidate warehouses are listed.
type CandidateBalancesParams struct {
	ItemID string `form:"itemId" binding:"required"`
}

// StockBalanceResponse defines the data returned for a balance row.
type StockBalanceResponse struct {
	ItemID        string          `json:"itemId"`
	WarehouseID   string          `json:"warehouseId"`
	WarehouseName string          `json:"warehouseName,omitempty"`
	StockQty      decimal.Decimal `json:"stockQty"`
	AllocQty      decimal.Decimal `json:"allocQty"`
	Available     decimal.Decimal `json:"available"`
	Shortage      bool            `json:"shortage"`
	Excess        bool            `json:"excess"`
	Flagged       bool            `json:"flagged"`
	FlagReason    string          `json:"flagReason,omitempty"`
	Version       int64           `json:"version"`
	UpdatedAt     *time.Time      `json:"updatedAt,omitempty"`
}

// ListStockLedgerParams defines the query parameters for listing ledger entries.
type ListStockLedgerParams struct {
	ItemID      string `form:"itemId" binding:"required"`
	WarehouseID string `form:"warehouseId" binding:"required"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=200"`
	NextToken   string `form:"nextToken"`
}

// StockLedgerEntryResponse defines the data returned for a ledger entry.
type StockLedgerEntryResponse struct {
	EntryID          string          `json:"entryId"`
	ItemID           string          `json:"itemId"`
	WarehouseID      string          `json:"warehouseId"`
	Type             string          `json:"type"`
	QtyDelta         decimal.Decimal `json:"qtyDelta"`
	AllocDelta       decimal.Decimal `json:"allocDelta"`
	ResultingBalance decimal.Decimal `json:"resultingBalance"`
	ResultingAlloc   decimal.Decimal `json:"resultingAlloc"`
	Version          int64           `json:"version"`
	Timestamp        time.Time       `json:"timestamp"`
	CounterpartyRef  *string         `json:"counterpartyRef,omitempty"`
	ReferenceCode    *string         `json:"referenceCode,omitempty"`
	LineSeqNo        int             `json:"lineSeqNo,omitempty"`
	Remark           string          `json:"remark,omitempty"`
	CreatedBy        string          `json:"createdBy"`
}

// ListStockLedgerResponse wraps a page of ledger entries, newest first.
type ListStockLedgerResponse struct {
	Entries   []StockLedgerEntryResponse `json:"entries"`
	NextToken *string                    `json:"nextToken,omitempty"`
}

// RecordMovementRequest posts a manual movement (production, consumption, wait markers).
type RecordMovementRequest struct {
	TypeCode      string          `json:"typeCode" binding:"required,ledgertype"`
	ItemID        string          `json:"itemId" binding:"required"`
	WarehouseID   string          `json:"warehouseId" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	ReferenceCode *string         `json:"referenceCode"`
	Remark        string          `json:"remark" binding:"max=500"`
}

// ReconcileRequest reconciles one row when ItemID and WarehouseID are set, otherwise every row.
type ReconcileRequest struct {
	ItemID      string `json:"itemId" binding:"required_with=WarehouseID"`
	WarehouseID string `json:"warehouseId" binding:"required_with=ItemID"`
	Repair      bool   `json:"repair"`
}

// ReconciliationReport describes the outcome for one balance row.
type ReconciliationReport struct {
	ItemID         string          `json:"itemId"`
	WarehouseID    string          `json:"warehouseId"`
	EntryCount     int             `json:"entryCount"`
	LedgerStockQty decimal.Decimal `json:"ledgerStockQty"`
	LedgerAllocQty decimal.Decimal `json:"ledgerAllocQty"`
	StoredStockQty decimal.Decimal `json:"storedStockQty"`
	StoredAllocQty decimal.Decimal `json:"storedAllocQty"`
	Consistent     bool            `json:"consistent"`
	Repaired       bool            `json:"repaired"`
	Flagged        bool            `json:"flagged"`
	Mismatches     []string        `json:"mismatches,omitempty"`
}

// ReconciliationSummary aggregates a full reconciliation run.
type ReconciliationSummary struct {
	Checked      int                    `json:"checked"`
	Inconsistent int                    `json:"inconsistent"`
	Repaired     int                    `json:"repaired"`
	Reports      []ReconciliationReport `json:"reports,omitempty"` // only rows that needed attention
}

// ToStockBalanceResponse converts a balance row to StockBalanceResponse DTO.
// item may be nil when master data is not at hand.
func ToStockBalanceResponse(b domain.StockBalance, item *domain.Item) StockBalanceResponse {
	resp := StockBalanceResponse{
		ItemID:      b.Key.ItemID,
		WarehouseID: b.Key.WarehouseID,
		StockQty:    b.StockQty,
		AllocQty:    b.AllocQty,
		Available:   b.Available(),
		Flagged:     b.Flagged,
		FlagReason:  b.FlagReason,
		Version:     b.Version,
	}
	if !b.UpdatedAt.IsZero() {
		updatedAt := b.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	if item != nil {
		resp.Shortage = item.IsShortage(b.Available())
		resp.Excess = item.IsExcess(b.StockQty)
	}
	return resp
}

// ToStockLedgerEntryResponse converts a ledger entry to StockLedgerEntryResponse DTO.
func ToStockLedgerEntryResponse(e domain.StockLedgerEntry) StockLedgerEntryResponse {
	return StockLedgerEntryResponse{
		EntryID:          e.EntryID,
		ItemID:           e.Key.ItemID,
		WarehouseID:      e.Key.WarehouseID,
		Type:             string(e.Type),
		QtyDelta:         e.QtyDelta,
		AllocDelta:       e.AllocDelta,
		ResultingBalance: e.ResultingBalance,
		ResultingAlloc:   e.ResultingAlloc,
		Version:          e.Version,
		Timestamp:        e.Timestamp,
		CounterpartyRef:  e.CounterpartyRef,
		ReferenceCode:    e.ReferenceCode,
		LineSeqNo:        e.LineSeqNo,
		Remark:           e.Remark,
		CreatedBy:        e.CreatedBy,
	}
}

// ToStockLedgerEntryResponses converts a slice of ledger entries.
func ToStockLedgerEntryResponses(entries []domain.StockLedgerEntry) []StockLedgerEntryResponse {
	responses := make([]StockLedgerEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = ToStockLedgerEntryResponse(e)
	}
	return responses
}
