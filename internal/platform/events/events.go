// Package events publishes domain events about orders and the stock ledger.
package events

import (
	"context"
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Routing keys. Consumers bind with patterns such as "stock.#".
const (
	RoutingLedgerPosted    = "stock.ledger.posted"
	RoutingBalanceFlagged  = "stock.balance.flagged"
	RoutingOrderTransition = "order.transitioned"
)

// Publisher sends events to interested consumers. Publishing happens after
// the unit of work has committed; a failed publish never undoes a posting.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// LedgerPosted is emitted once per appended ledger entry.
type LedgerPosted struct {
	EntryID          string          `json:"entryId"`
	ItemID           string          `json:"itemId"`
	WarehouseID      string          `json:"warehouseId"`
	Type             string          `json:"type"`
	QtyDelta         decimal.Decimal `json:"qtyDelta"`
	AllocDelta       decimal.Decimal `json:"allocDelta"`
	ResultingBalance decimal.Decimal `json:"resultingBalance"`
	ResultingAlloc   decimal.Decimal `json:"resultingAlloc"`
	Version          int64           `json:"version"`
	ReferenceCode    *string         `json:"referenceCode,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

// NewLedgerPosted builds the event for one entry.
func NewLedgerPosted(e domain.StockLedgerEntry) LedgerPosted {
	return LedgerPosted{
		EntryID:          e.EntryID,
		ItemID:           e.Key.ItemID,
		WarehouseID:      e.Key.WarehouseID,
		Type:             string(e.Type),
		QtyDelta:         e.QtyDelta,
		AllocDelta:       e.AllocDelta,
		ResultingBalance: e.ResultingBalance,
		ResultingAlloc:   e.ResultingAlloc,
		Version:          e.Version,
		ReferenceCode:    e.ReferenceCode,
		Timestamp:        e.Timestamp,
	}
}

// OrderTransitioned is emitted after an engine operation changed an order.
type OrderTransitioned struct {
	Kind      string    `json:"kind"`
	Code      string    `json:"code"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"`
	Version   int64     `json:"version"`
	Actor     string    `json:"actor"`
	At        time.Time `json:"at"`
}

// BalanceFlagged is emitted when a balance row is flagged for reconciliation.
type BalanceFlagged struct {
	ItemID      string    `json:"itemId"`
	WarehouseID string    `json:"warehouseId"`
	Reason      string    `json:"reason"`
	At          time.Time `json:"at"`
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (NoopPublisher) Close() error { return nil }

var _ Publisher = NoopPublisher{}
