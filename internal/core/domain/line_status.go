package domain

import (
	"fmt"
	"time"
)

// LineStatus is the lifecycle state of one order line.
type LineStatus string

const (
	LineRegistered LineStatus = "REGISTERED"
	LineConfirmed  LineStatus = "CONFIRMED"
	LineReceived   LineStatus = "RECEIVED"  // purchase lines only
	LineFulfilled  LineStatus = "FULFILLED" // sales lines only
	LineCancelled  LineStatus = "CANCELLED"
)

// IsDone reports whether goods have physically moved for the line.
func (s LineStatus) IsDone() bool {
	return s == LineReceived || s == LineFulfilled
}

// IsOpen reports whether the line can still be confirmed, committed or cancelled.
func (s LineStatus) IsOpen() bool {
	return s == LineRegistered || s == LineConfirmed
}

// IsTerminal reports whether the line is frozen.
func (s LineStatus) IsTerminal() bool {
	return s.IsDone() || s == LineCancelled
}

// OrderKind selects the purchase or sales instance of the order aggregate.
type OrderKind string

const (
	PurchaseOrder OrderKind = "PURCHASE"
	SalesOrder    OrderKind = "SALES"
)

// IsValid reports whether k is a known order kind.
func (k OrderKind) IsValid() bool {
	return k == PurchaseOrder || k == SalesOrder
}

// DoneStatus is the status a committed line of this kind ends in.
func (k OrderKind) DoneStatus() LineStatus {
	if k == SalesOrder {
		return LineFulfilled
	}
	return LineReceived
}

// CommitLedgerType is the ledger movement written when a line of this kind is committed.
func (k OrderKind) CommitLedgerType() LedgerType {
	if k == SalesOrder {
		return LedgerSalesOut
	}
	return LedgerPurchaseIn
}

// CodePrefix is the prefix of system-assigned order codes.
func (k OrderKind) CodePrefix() string {
	if k == SalesOrder {
		return "SO"
	}
	return "PO"
}

// FormatOrderCode renders a system-assigned code such as PO-20240304-00017.
func (k OrderKind) FormatOrderCode(at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%05d", k.CodePrefix(), at.UTC().Format("20060102"), seq)
}

// allowedLineTransitions lists the bare transitions a line may take. The
// CONFIRMED -> done edge is absent on purpose: it is only reachable through
// Order.CompleteLine, which the engine pairs with a ledger posting.
var allowedLineTransitions = map[LineStatus][]LineStatus{
	LineRegistered: {LineConfirmed, LineCancelled},
	LineConfirmed:  {LineCancelled},
}

func canTransition(from, to LineStatus) bool {
	for _, s := range allowedLineTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
