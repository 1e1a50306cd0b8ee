package services

import (
	"context"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
)

// OrderReaderSvc defines read operations for orders
type OrderReaderSvc interface {
	// GetOrder retrieves an order with its lines and derived status.
	GetOrder(ctx context.Context, kind domain.OrderKind, code string) (*domain.Order, error)

	// ListOrders retrieves a paginated list of orders of one kind.
	ListOrders(ctx context.Context, kind domain.OrderKind, params dto.ListOrdersParams) (*dto.ListOrdersResponse, error)
}

// OrderWriterSvc defines structural edits of orders. None of them touch the stock ledger.
type OrderWriterSvc interface {
	// SaveOrder creates the order when req.Code is empty and updates it otherwise.
	SaveOrder(ctx context.Context, kind domain.OrderKind, req dto.SaveOrderRequest, userID string) (*domain.Order, error)

	// AddLine appends a line with the next sequence number.
	AddLine(ctx context.Context, kind domain.OrderKind, code string, req dto.OrderLineRequest, userID string) (*domain.Order, error)

	// RemoveLine deletes a REGISTERED line.
	RemoveLine(ctx context.Context, kind domain.OrderKind, code string, seqNo int, userID string) (*domain.Order, error)
}

// OrderSvcFacade combines all order-related service interfaces
type OrderSvcFacade interface {
	OrderReaderSvc
	OrderWriterSvc
}
