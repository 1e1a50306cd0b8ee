package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ReplayResult is the outcome of rebuilding one balance row from its ledger.
type ReplayResult struct {
	Key        StockKey        `json:"key"`
	StockQty   decimal.Decimal `json:"stockQty"`
	AllocQty   decimal.Decimal `json:"allocQty"`
	Version    int64           `json:"version"`
	LastEntry  time.Time       `json:"lastEntry"`
	EntryCount int             `json:"entryCount"`
	Mismatches []string        `json:"mismatches,omitempty"`
}

// IsConsistent reports whether the ledger itself replayed without mismatches.
func (r ReplayResult) IsConsistent() bool {
	return len(r.Mismatches) == 0
}

// Matches reports whether the stored balance equals the replayed totals.
func (r ReplayResult) Matches(b StockBalance) bool {
	return r.StockQty.Equal(b.StockQty) && r.AllocQty.Equal(b.AllocQty) && r.Version == b.Version
}

// Balance returns the balance row the ledger describes.
func (r ReplayResult) Balance() StockBalance {
	return StockBalance{
		Key:       r.Key,
		StockQty:  r.StockQty,
		AllocQty:  r.AllocQty,
		Version:   r.Version,
		UpdatedAt: r.LastEntry,
	}
}

// ReplayLedger sums the entries of one row in (version, timestamp) order and
// checks every running snapshot along the way.
func ReplayLedger(key StockKey, entries []StockLedgerEntry) ReplayResult {
	sorted := make([]StockLedgerEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Version != sorted[j].Version {
			return sorted[i].Version < sorted[j].Version
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	res := ReplayResult{Key: key, StockQty: decimal.Zero, AllocQty: decimal.Zero}
	var prev time.Time
	for _, e := range sorted {
		res.EntryCount++
		if e.Key != key {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("entry %s belongs to %s", e.EntryID, e.Key))
			continue
		}
		if e.Version != res.Version+1 {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("entry %s has version %d, expected %d", e.EntryID, e.Version, res.Version+1))
		}
		if e.Timestamp.Before(prev) {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("entry %s is older than its predecessor", e.EntryID))
		}
		if !deltaMatchesType(e) {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("entry %s deltas do not match type %s", e.EntryID, e.Type))
		}

		res.StockQty = res.StockQty.Add(e.QtyDelta)
		res.AllocQty = res.AllocQty.Add(e.AllocDelta)
		res.Version = e.Version
		res.LastEntry = e.Timestamp
		prev = e.Timestamp

		if !res.StockQty.Equal(e.ResultingBalance) {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("entry %s resultingBalance %s, replay gives %s", e.EntryID, e.ResultingBalance, res.StockQty))
		}
		if !res.AllocQty.Equal(e.ResultingAlloc) {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("entry %s resultingAlloc %s, replay gives %s", e.EntryID, e.ResultingAlloc, res.AllocQty))
		}
	}
	return res
}

func deltaMatchesType(e StockLedgerEntry) bool {
	qty := e.QtyDelta.Abs()
	if e.AllocDelta.Abs().GreaterThan(qty) {
		qty = e.AllocDelta.Abs()
	}
	stock, alloc := e.Type.Effect(qty)
	return stock.Equal(e.QtyDelta) && alloc.Equal(e.AllocDelta)
}
