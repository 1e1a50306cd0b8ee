package mapping

import (
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/SscSPs/food_erp_fulfillment/internal/models"
)

// ToModelStockBalance converts a domain StockBalance to a row
func ToModelStockBalance(d domain.StockBalance) models.StockBalance {
	return models.StockBalance{
		ItemID:      d.Key.ItemID,
		WarehouseID: d.Key.WarehouseID,
		StockQty:    d.StockQty,
		AllocQty:    d.AllocQty,
		Version:     d.Version,
		Flagged:     d.Flagged,
		FlagReason:  d.FlagReason,
		UpdatedAt:   d.UpdatedAt,
	}
}

// ToDomainStockBalance converts a row to a domain StockBalance
func ToDomainStockBalance(m models.StockBalance) domain.StockBalance {
	return domain.StockBalance{
		Key:        domain.StockKey{ItemID: m.ItemID, WarehouseID: m.WarehouseID},
		StockQty:   m.StockQty,
		AllocQty:   m.AllocQty,
		Version:    m.Version,
		Flagged:    m.Flagged,
		FlagReason: m.FlagReason,
		UpdatedAt:  m.UpdatedAt,
	}
}

// ToModelStockLedgerEntry converts a domain StockLedgerEntry to a row
func ToModelStockLedgerEntry(d domain.StockLedgerEntry) models.StockLedgerEntry {
	return models.StockLedgerEntry{
		EntryID:          d.EntryID,
		ItemID:           d.Key.ItemID,
		WarehouseID:      d.Key.WarehouseID,
		Type:             string(d.Type),
		QtyDelta:         d.QtyDelta,
		AllocDelta:       d.AllocDelta,
		ResultingBalance: d.ResultingBalance,
		ResultingAlloc:   d.ResultingAlloc,
		Version:          d.Version,
		Timestamp:        d.Timestamp,
		CounterpartyRef:  d.CounterpartyRef,
		ReferenceCode:    d.ReferenceCode,
		LineSeqNo:        d.LineSeqNo,
		Remark:           d.Remark,
		CreatedBy:        d.CreatedBy,
	}
}

// ToDomainStockLedgerEntry converts a row to a domain StockLedgerEntry
func ToDomainStockLedgerEntry(m models.StockLedgerEntry) domain.StockLedgerEntry {
	return domain.StockLedgerEntry{
		EntryID:          m.EntryID,
		Key:              domain.StockKey{ItemID: m.ItemID, WarehouseID: m.WarehouseID},
		Type:             domain.LedgerType(m.Type),
		QtyDelta:         m.QtyDelta,
		AllocDelta:       m.AllocDelta,
		ResultingBalance: m.ResultingBalance,
		ResultingAlloc:   m.ResultingAlloc,
		Version:          m.Version,
		Timestamp:        m.Timestamp,
		CounterpartyRef:  m.CounterpartyRef,
		ReferenceCode:    m.ReferenceCode,
		LineSeqNo:        m.LineSeqNo,
		Remark:           m.Remark,
		CreatedBy:        m.CreatedBy,
	}
}

// ToDomainStockLedgerEntrySlice converts a slice of rows
func ToDomainStockLedgerEntrySlice(ms []models.StockLedgerEntry) []domain.StockLedgerEntry {
	entries := make([]domain.StockLedgerEntry, len(ms))
	for i, m := range ms {
		entries[i] = ToDomainStockLedgerEntry(m)
	}
	return entries
}
