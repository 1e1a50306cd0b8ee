package repositories

import (
	"context"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
)

// OrderReader defines read operations for order aggregates
type OrderReader interface {
	// FindOrderByCode retrieves an order with all of its lines.
	FindOrderByCode(ctx context.Context, kind domain.OrderKind, code string) (*domain.Order, error)

	// ListOrders retrieves a page of orders of one kind, newest first, using token-based pagination.
	ListOrders(ctx context.Context, kind domain.OrderKind, limit int, nextToken *string) ([]domain.Order, *string, error)
}

// OrderWriter defines write operations for order aggregates
type OrderWriter interface {
	// CreateOrder assigns the order code and persists the order with its lines.
	CreateOrder(ctx context.Context, order *domain.Order) error

	// UpdateOrder persists header and line changes. It fails with apperrors.ErrConflict
	// when the stored version differs from order.Version, and bumps order.Version on success.
	UpdateOrder(ctx context.Context, order *domain.Order) error
}

// OrderRepositoryFacade combines all order-related repository interfaces
type OrderRepositoryFacade interface {
	OrderReader
	OrderWriter
}
