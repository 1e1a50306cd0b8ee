package handlers_test

import (
	"context"
	"io"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	portssvc "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/services"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
	"github.com/stretchr/testify/mock"
)

// --- Mock OrderService ---
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) GetOrder(ctx context.Context, kind domain.OrderKind, code string) (*domain.Order, error) {
	args := m.Called(ctx, kind, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, kind domain.OrderKind, params dto.ListOrdersParams) (*dto.ListOrdersResponse, error) {
	args := m.Called(ctx, kind, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListOrdersResponse), args.Error(1)
}

func (m *MockOrderService) SaveOrder(ctx context.Context, kind domain.OrderKind, req dto.SaveOrderRequest, userID string) (*domain.Order, error) {
	args := m.Called(ctx, kind, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderService) AddLine(ctx context.Context, kind domain.OrderKind, code string, req dto.OrderLineRequest, userID string) (*domain.Order, error) {
	args := m.Called(ctx, kind, code, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderService) RemoveLine(ctx context.Context, kind domain.OrderKind, code string, seqNo int, userID string) (*domain.Order, error) {
	args := m.Called(ctx, kind, code, seqNo, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

var _ portssvc.OrderSvcFacade = (*MockOrderService)(nil)

// --- Mock FulfillmentService ---
type MockFulfillmentService struct {
	mock.Mock
}

func (m *MockFulfillmentService) Confirm(ctx context.Context, kind domain.OrderKind, code string, req dto.ConfirmOrderRequest, userID string) (*domain.Order, error) {
	args := m.Called(ctx, kind, code, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockFulfillmentService) AssignWarehouse(ctx context.Context, kind domain.OrderKind, code string, seqNo int, req dto.AssignWarehouseRequest, userID string) (*domain.Order, error) {
	args := m.Called(ctx, kind, code, seqNo, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockFulfillmentService) Reserve(ctx context.Context, code string, userID string) (*domain.PostingResult, error) {
	args := m.Called(ctx, code, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostingResult), args.Error(1)
}

func (m *MockFulfillmentService) Commit(ctx context.Context, kind domain.OrderKind, code string, userID string) (*domain.PostingResult, error) {
	args := m.Called(ctx, kind, code, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostingResult), args.Error(1)
}

func (m *MockFulfillmentService) Cancel(ctx context.Context, kind domain.OrderKind, code string, req dto.CancelOrderRequest, userID string) (*domain.PostingResult, error) {
	args := m.Called(ctx, kind, code, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostingResult), args.Error(1)
}

func (m *MockFulfillmentService) CancelLine(ctx context.Context, kind domain.OrderKind, code string, seqNo int, req dto.CancelOrderRequest, userID string) (*domain.PostingResult, error) {
	args := m.Called(ctx, kind, code, seqNo, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PostingResult), args.Error(1)
}

var _ portssvc.FulfillmentSvcFacade = (*MockFulfillmentService)(nil)

// --- Mock StockService ---
type MockStockService struct {
	mock.Mock
}

func (m *MockStockService) GetBalance(ctx context.Context, params dto.StockBalanceParams) (*dto.StockBalanceResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.StockBalanceResponse), args.Error(1)
}

func (m *MockStockService) ListCandidateBalances(ctx context.Context, itemID string) ([]dto.StockBalanceResponse, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.StockBalanceResponse), args.Error(1)
}

func (m *MockStockService) ListLedger(ctx context.Context, params dto.ListStockLedgerParams) (*dto.ListStockLedgerResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListStockLedgerResponse), args.Error(1)
}

func (m *MockStockService) ExportLedger(ctx context.Context, params dto.StockBalanceParams, w io.Writer) error {
	args := m.Called(ctx, params, w)
	return args.Error(0)
}

func (m *MockStockService) RecordMovement(ctx context.Context, req dto.RecordMovementRequest, userID string) (*domain.StockLedgerEntry, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockLedgerEntry), args.Error(1)
}

var _ portssvc.StockSvcFacade = (*MockStockService)(nil)

// --- Mock ReconciliationService ---
type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) ReconcilePair(ctx context.Context, key domain.StockKey, repair bool) (*dto.ReconciliationReport, error) {
	args := m.Called(ctx, key, repair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReconciliationReport), args.Error(1)
}

func (m *MockReconciliationService) ReconcileAll(ctx context.Context, repair bool) (*dto.ReconciliationSummary, error) {
	args := m.Called(ctx, repair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReconciliationSummary), args.Error(1)
}

var _ portssvc.ReconciliationSvc = (*MockReconciliationService)(nil)
