package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/shopspring/decimal"
)

// ErrInsufficientStock is returned when a demand movement exceeds what is available.
var ErrInsufficientStock = fmt.Errorf("%w: insufficient available stock", apperrors.ErrInvalidState)

// StockKey identifies one stock balance row.
type StockKey struct {
	ItemID      string `json:"itemId"`
	WarehouseID string `json:"warehouseId"`
}

func (k StockKey) String() string {
	return k.ItemID + "@" + k.WarehouseID
}

// Less orders keys by item, then warehouse. Rows are always locked in this order.
func (k StockKey) Less(o StockKey) bool {
	if k.ItemID != o.ItemID {
		return k.ItemID < o.ItemID
	}
	return k.WarehouseID < o.WarehouseID
}

// SortStockKeys sorts keys in lock order.
func SortStockKeys(keys []StockKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}

// StockBalance is the projection of the ledger for one (item, warehouse).
type StockBalance struct {
	Key        StockKey        `json:"key"`
	StockQty   decimal.Decimal `json:"stockQty"`
	AllocQty   decimal.Decimal `json:"allocQty"`
	Version    int64           `json:"version"` // incremented once per applied ledger entry
	Flagged    bool            `json:"flagged"`
	FlagReason string          `json:"flagReason,omitempty"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// NewStockBalance returns the zero balance a row starts from.
func NewStockBalance(key StockKey) StockBalance {
	return StockBalance{Key: key, StockQty: decimal.Zero, AllocQty: decimal.Zero}
}

// Available is the safe-to-promise quantity.
func (b StockBalance) Available() decimal.Decimal {
	return b.StockQty.Sub(b.AllocQty)
}

// StockMovement is a requested ledger posting before it is applied.
type StockMovement struct {
	Type            LedgerType
	Key             StockKey
	Quantity        decimal.Decimal // always positive; the sign comes from Type
	CounterpartyRef *string
	ReferenceCode   *string
	LineSeqNo       int
	Remark          string
}

// StockLedgerEntry is one immutable row of the stock ledger.
type StockLedgerEntry struct {
	EntryID          string          `json:"entryId"`
	Key              StockKey        `json:"key"`
	Type             LedgerType      `json:"type"`
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

// Apply applies m to the balance and returns the new balance with the ledger
// entry that records it. The receiver is left unchanged on error.
func (b StockBalance) Apply(m StockMovement, entryID string, at time.Time, userID string) (StockBalance, StockLedgerEntry, error) {
	if m.Key != b.Key {
		return b, StockLedgerEntry{}, fmt.Errorf("%w: movement for %s applied to balance %s", apperrors.ErrInternal, m.Key, b.Key)
	}
	if !m.Quantity.IsPositive() {
		return b, StockLedgerEntry{}, fmt.Errorf("%w: movement quantity must be positive", apperrors.ErrValidation)
	}
	if b.Flagged {
		return b, StockLedgerEntry{}, apperrors.NewConsistencyError(b.Key.ItemID, b.Key.WarehouseID, "row is flagged for reconciliation: "+b.FlagReason)
	}

	// Entries of one row never go back in time, even if the caller's clock
	// was read before it waited for the row lock.
	if at.Before(b.UpdatedAt) {
		at = b.UpdatedAt
	}

	stockDelta, allocDelta := m.Type.Effect(m.Quantity)
	next := b
	next.StockQty = b.StockQty.Add(stockDelta)
	next.AllocQty = b.AllocQty.Add(allocDelta)
	next.Version = b.Version + 1
	next.UpdatedAt = at

	if next.StockQty.IsNegative() || next.AllocQty.IsNegative() || next.Available().IsNegative() {
		if m.Type.IsDemand() {
			return b, StockLedgerEntry{}, fmt.Errorf("%w: %s of %s at %s needs %s, available %s",
				ErrInsufficientStock, m.Type, b.Key.ItemID, b.Key.WarehouseID, m.Quantity, b.Available())
		}
		return b, StockLedgerEntry{}, apperrors.NewConsistencyError(b.Key.ItemID, b.Key.WarehouseID,
			fmt.Sprintf("%s of %s would leave stock %s alloc %s", m.Type, m.Quantity, next.StockQty, next.AllocQty))
	}

	entry := StockLedgerEntry{
		EntryID:          entryID,
		Key:              b.Key,
		Type:             m.Type,
		QtyDelta:         stockDelta,
		AllocDelta:       allocDelta,
		ResultingBalance: next.StockQty,
		ResultingAlloc:   next.AllocQty,
		Version:          next.Version,
		Timestamp:        at,
		CounterpartyRef:  m.CounterpartyRef,
		ReferenceCode:    m.ReferenceCode,
		LineSeqNo:        m.LineSeqNo,
		Remark:           m.Remark,
		CreatedBy:        userID,
	}
	return next, entry, nil
}

// PostingBatch is one all-or-nothing unit of work for the stock store: the
// movements are applied in order and the order, when set, is saved alongside.
type PostingBatch struct {
	Order     *Order
	Movements []StockMovement
	PostedAt  time.Time
	PostedBy  string
}

// Keys returns the distinct balance keys touched by the batch, in lock order.
func (p PostingBatch) Keys() []StockKey {
	seen := make(map[StockKey]struct{}, len(p.Movements))
	keys := make([]StockKey, 0, len(p.Movements))
	for _, m := range p.Movements {
		if _, ok := seen[m.Key]; ok {
			continue
		}
		seen[m.Key] = struct{}{}
		keys = append(keys, m.Key)
	}
	SortStockKeys(keys)
	return keys
}

// PostingResult is what an engine operation leaves behind: the saved order and
// the ledger entries it produced (none for pure state changes).
type PostingResult struct {
	Order   *Order
	Entries []StockLedgerEntry
}
