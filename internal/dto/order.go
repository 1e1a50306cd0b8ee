package dto

import (
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/shopspring/decimal"
)

// OrderLineRequest is one line of a create-or-update request. SeqNo 0 adds a new line.
type OrderLineRequest struct {
	SeqNo    int             `json:"seqNo" binding:"gte=0"`
	ItemID   string          `json:"itemId" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost decimal.Decimal `json:"unitCost"`
	Remark   string          `json:"remark" binding:"max=500"`
}

// SaveOrderRequest creates an order when Code is empty and updates it otherwise.
type SaveOrderRequest struct {
	Code                string             `json:"code"`
	Version             *int64             `json:"version"` // optional optimistic check on update
	Date                time.Time          `json:"date" binding:"required"`
	CounterpartyID      string             `json:"counterpartyId" binding:"required"`
	CounterpartyContact string             `json:"counterpartyContact"`
	Remark              string             `json:"remark" binding:"max=500"`
	Lines               []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ConfirmOrderRequest confirms the listed lines, or every REGISTERED line when empty.
type ConfirmOrderRequest struct {
	SeqNos []int `json:"seqNos" binding:"omitempty,dive,gt=0"`
}

// AssignWarehouseRequest stages a warehouse on a line.
type AssignWarehouseRequest struct {
	WarehouseID string `json:"warehouseId" binding:"required"`
}

// CancelOrderRequest carries the optional cancellation reason.
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ListOrdersParams defines the query parameters for listing orders.
type ListOrdersParams struct {
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=200"`
	NextToken string `form:"nextToken"`
}

// OrderLineResponse defines the data returned for an order line.
type OrderLineResponse struct {
	SeqNo               int             `json:"seqNo"`
	ItemID              string          `json:"itemId"`
	Quantity            decimal.Decimal `json:"quantity"`
	UnitCost            decimal.Decimal `json:"unitCost"`
	WarehouseID         *string         `json:"warehouseId,omitempty"`
	Remark              string          `json:"remark"`
	Status              string          `json:"status"`
	PendingCommit       bool            `json:"pendingCommit"`
	ReservedQty         decimal.Decimal `json:"reservedQty"`
	ReservedWarehouseID *string         `json:"reservedWarehouseId,omitempty"`
	CancelReason        string          `json:"cancelReason,omitempty"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// OrderResponse defines the data returned for an order, including its derived status.
type OrderResponse struct {
	Code                string              `json:"code"`
	Kind                string              `json:"kind"`
	Status              string              `json:"status"`
	Date                time.Time           `json:"date"`
	CounterpartyID      string              `json:"counterpartyId"`
	CounterpartyContact string              `json:"counterpartyContact"`
	Remark              string              `json:"remark"`
	Lines               []OrderLineResponse `json:"lines"`
	Version             int64               `json:"version"`
	CreatedAt           time.Time           `json:"createdAt"`
	CreatedBy           string              `json:"createdBy"`
	LastUpdatedAt       time.Time           `json:"lastUpdatedAt"`
	LastUpdatedBy       string              `json:"lastUpdatedBy"`
}

// ListOrdersResponse wraps a page of orders.
type ListOrdersResponse struct {
	Orders    []OrderResponse `json:"orders"`
	NextToken *string         `json:"nextToken,omitempty"`
}

// FulfillmentResponse is returned by engine operations.
type FulfillmentResponse struct {
	Order         OrderResponse              `json:"order"`
	LedgerEntries []StockLedgerEntryResponse `json:"ledgerEntries"`
}

// ToOrderLineResponse converts a domain.OrderLine to OrderLineResponse DTO.
func ToOrderLineResponse(l domain.OrderLine) OrderLineResponse {
	return OrderLineResponse{
		SeqNo:               l.SeqNo,
		ItemID:              l.ItemID,
		Quantity:            l.Quantity,
		UnitCost:            l.UnitCost,
		WarehouseID:         l.WarehouseID,
		Remark:              l.Remark,
		Status:              string(l.Status),
		PendingCommit:       l.PendingCommit,
		ReservedQty:         l.ReservedQty,
		ReservedWarehouseID: l.ReservedWarehouseID,
		CancelReason:        l.CancelReason,
		UpdatedAt:           l.UpdatedAt,
	}
}

// ToOrderResponse converts a domain.Order to OrderResponse DTO.
func ToOrderResponse(o *domain.Order) OrderResponse {
	lines := make([]OrderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = ToOrderLineResponse(l)
	}
	return OrderResponse{
		Code:                o.Code,
		Kind:                string(o.Kind),
		Status:              string(o.Status()),
		Date:                o.Date,
		CounterpartyID:      o.CounterpartyID,
		CounterpartyContact: o.CounterpartyContact,
		Remark:              o.Remark,
		Lines:               lines,
		Version:             o.Version,
		CreatedAt:           o.CreatedAt,
		CreatedBy:           o.CreatedBy,
		LastUpdatedAt:       o.LastUpdatedAt,
		LastUpdatedBy:       o.LastUpdatedBy,
	}
}

// ToOrderResponses converts a slice of domain.Order to []OrderResponse.
func ToOrderResponses(orders []domain.Order) []OrderResponse {
	responses := make([]OrderResponse, len(orders))
	for i := range orders {
		responses[i] = ToOrderResponse(&orders[i])
	}
	return responses
}

// ToFulfillmentResponse converts an engine result to FulfillmentResponse DTO.
func ToFulfillmentResponse(res *domain.PostingResult) FulfillmentResponse {
	return FulfillmentResponse{
		Order:         ToOrderResponse(res.Order),
		LedgerEntries: ToStockLedgerEntryResponses(res.Entries),
	}
}

// ToDomainLine converts a request line to a domain.OrderLine.
func (r OrderLineRequest) ToDomainLine() domain.OrderLine {
	return domain.OrderLine{
		SeqNo:    r.SeqNo,
		ItemID:   r.ItemID,
		Quantity: r.Quantity,
		UnitCost: r.UnitCost,
		Remark:   r.Remark,
	}
}

// Header extracts the order header from the request.
func (r SaveOrderRequest) Header() domain.OrderHeader {
	return domain.OrderHeader{
		Date:                r.Date,
		CounterpartyID:      r.CounterpartyID,
		CounterpartyContact: r.CounterpartyContact,
		Remark:              r.Remark,
	}
}
