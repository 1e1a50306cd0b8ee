package services

import (
	"context"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
)

// FulfillmentSvcFacade is the transition surface of the fulfillment engine.
// Every operation is serialized per order code and is all-or-nothing.
type FulfillmentSvcFacade interface {
	// Confirm moves REGISTERED lines to CONFIRMED.
	Confirm(ctx context.Context, kind domain.OrderKind, code string, req dto.ConfirmOrderRequest, userID string) (*domain.Order, error)

	// AssignWarehouse stages a warehouse on a CONFIRMED line without any stock effect.
	AssignWarehouse(ctx context.Context, kind domain.OrderKind, code string, seqNo int, req dto.AssignWarehouseRequest, userID string) (*domain.Order, error)

	// Reserve earmarks stock for the staged lines of a sales order.
	Reserve(ctx context.Context, code string, userID string) (*domain.PostingResult, error)

	// Commit turns every staged CONFIRMED line into a ledger movement (receipt or shipment).
	Commit(ctx context.Context, kind domain.OrderKind, code string, userID string) (*domain.PostingResult, error)

	// Cancel cancels every open line and releases outstanding reservations.
	Cancel(ctx context.Context, kind domain.OrderKind, code string, req dto.CancelOrderRequest, userID string) (*domain.PostingResult, error)

	// CancelLine cancels a single open line.
	CancelLine(ctx context.Context, kind domain.OrderKind, code string, seqNo int, req dto.CancelOrderRequest, userID string) (*domain.PostingResult, error)
}
