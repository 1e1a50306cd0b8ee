package services_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/services"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/events"
	"github.com/SscSPs/food_erp_fulfillment/internal/repositories/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type FulfillmentServiceTestSuite struct {
	engineSuite
}

func TestFulfillmentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(FulfillmentServiceTestSuite))
}

func (s *FulfillmentServiceTestSuite) TestReceiptCompletesOrder() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(100))
	s.stage(domain.PurchaseOrder, po.Code, "WH01")

	res, err := s.svc.Fulfillment.Commit(s.ctx, domain.PurchaseOrder, po.Code, testUser)
	s.Require().NoError(err)

	s.Equal(domain.LineReceived, res.Order.Lines[0].Status)
	s.Equal(domain.OrderComplete, res.Order.Status())
	s.Require().Len(res.Entries, 1)
	s.Equal(domain.LedgerPurchaseIn, res.Entries[0].Type)
	requireQty(s.T(), 100, res.Entries[0].QtyDelta)
	s.Equal(po.Code, *res.Entries[0].ReferenceCode)
	s.Equal(1, res.Entries[0].LineSeqNo)

	requireQty(s.T(), 100, s.balance("FLOUR", "WH01").StockQty)
}

func (s *FulfillmentServiceTestSuite) TestCommitWithUnassignedLineWritesNothing() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(10), flourLine(20))
	_, err := s.svc.Fulfillment.Confirm(s.ctx, domain.PurchaseOrder, po.Code, dto.ConfirmOrderRequest{}, testUser)
	s.Require().NoError(err)
	_, err = s.svc.Fulfillment.AssignWarehouse(s.ctx, domain.PurchaseOrder, po.Code, 1, dto.AssignWarehouseRequest{WarehouseID: "WH01"}, testUser)
	s.Require().NoError(err)

	_, err = s.svc.Fulfillment.Commit(s.ctx, domain.PurchaseOrder, po.Code, testUser)
	s.ErrorIs(err, apperrors.ErrInvalidState)

	entries, err := s.store.FindLedgerEntriesByReference(s.ctx, po.Code)
	s.Require().NoError(err)
	s.Empty(entries)
	_, err = s.store.FindBalance(s.ctx, domain.StockKey{ItemID: "FLOUR", WarehouseID: "WH01"})
	s.ErrorIs(err, apperrors.ErrNotFound)

	stored, err := s.svc.Order.GetOrder(s.ctx, domain.PurchaseOrder, po.Code)
	s.Require().NoError(err)
	s.Equal(domain.LineConfirmed, stored.Lines[0].Status)
	s.True(stored.Lines[0].PendingCommit)
}

func (s *FulfillmentServiceTestSuite) TestPartialReceipt() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(10), flourLine(20))
	_, err := s.svc.Fulfillment.Confirm(s.ctx, domain.PurchaseOrder, po.Code, dto.ConfirmOrderRequest{SeqNos: []int{1}}, testUser)
	s.Require().NoError(err)
	_, err = s.svc.Fulfillment.AssignWarehouse(s.ctx, domain.PurchaseOrder, po.Code, 1, dto.AssignWarehouseRequest{WarehouseID: "WH01"}, testUser)
	s.Require().NoError(err)

	res, err := s.svc.Fulfillment.Commit(s.ctx, domain.PurchaseOrder, po.Code, testUser)
	s.Require().NoError(err)
	s.Equal(domain.LineReceived, res.Order.Lines[0].Status)
	s.Equal(domain.LineRegistered, res.Order.Lines[1].Status)
	s.Equal(domain.OrderPartial, res.Order.Status())
}

func (s *FulfillmentServiceTestSuite) TestCancelRegisteredOrder() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(10), flourLine(20))

	res, err := s.svc.Fulfillment.Cancel(s.ctx, domain.PurchaseOrder, po.Code, dto.CancelOrderRequest{Reason: "supplier closed"}, testUser)
	s.Require().NoError(err)
	for _, l := range res.Order.Lines {
		s.Equal(domain.LineCancelled, l.Status)
		s.Equal("supplier closed", l.CancelReason)
	}
	s.Equal(domain.OrderCancelled, res.Order.Status())
	s.Empty(res.Entries)

	// cancelling again changes nothing
	again, err := s.svc.Fulfillment.Cancel(s.ctx, domain.PurchaseOrder, po.Code, dto.CancelOrderRequest{}, testUser)
	s.Require().NoError(err)
	s.Equal(res.Order.Version, again.Order.Version)
}

func (s *FulfillmentServiceTestSuite) TestCancelCompleteOrderFails() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(10))
	s.stage(domain.PurchaseOrder, po.Code, "WH01")
	done, err := s.svc.Fulfillment.Commit(s.ctx, domain.PurchaseOrder, po.Code, testUser)
	s.Require().NoError(err)

	_, err = s.svc.Fulfillment.Cancel(s.ctx, domain.PurchaseOrder, po.Code, dto.CancelOrderRequest{}, testUser)
	var stateErr *apperrors.StateError
	s.Require().True(errors.As(err, &stateErr))
	s.Equal(string(domain.OrderComplete), stateErr.State)

	stored, err := s.svc.Order.GetOrder(s.ctx, domain.PurchaseOrder, po.Code)
	s.Require().NoError(err)
	s.Equal(done.Order.Version, stored.Version)
	s.Equal(domain.OrderComplete, stored.Status())
}

func (s *FulfillmentServiceTestSuite) TestCancelPartialOrder() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(10), flourLine(20))
	_, err := s.svc.Fulfillment.Confirm(s.ctx, domain.PurchaseOrder, po.Code, dto.ConfirmOrderRequest{SeqNos: []int{1}}, testUser)
	s.Require().NoError(err)
	_, err = s.svc.Fulfillment.AssignWarehouse(s.ctx, domain.PurchaseOrder, po.Code, 1, dto.AssignWarehouseRequest{WarehouseID: "WH01"}, testUser)
	s.Require().NoError(err)
	_, err = s.svc.Fulfillment.Commit(s.ctx, domain.PurchaseOrder, po.Code, testUser)
	s.Require().NoError(err)

	res, err := s.svc.Fulfillment.Cancel(s.ctx, domain.PurchaseOrder, po.Code, dto.CancelOrderRequest{Reason: "short shipped"}, testUser)
	s.Require().NoError(err)
	s.Empty(res.Entries)
	s.Equal(domain.LineReceived, res.Order.Lines[0].Status)
	s.Empty(res.Order.Lines[0].CancelReason)
	s.Equal(domain.LineCancelled, res.Order.Lines[1].Status)
	s.Equal("short shipped", res.Order.Lines[1].CancelReason)
	s.Equal(domain.OrderComplete, res.Order.Status())

	entries, err := s.store.FindLedgerEntriesByReference(s.ctx, po.Code)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(domain.LedgerPurchaseIn, entries[0].Type)
	requireQty(s.T(), 10, s.balance("FLOUR", "WH01").StockQty)
}

func (s *FulfillmentServiceTestSuite) TestCancelRetryOnPartialOrder() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(10), flourLine(20))
	_, err := s.svc.Fulfillment.Confirm(s.ctx, domain.PurchaseOrder, po.Code, dto.ConfirmOrderRequest{SeqNos: []int{1}}, testUser)
	s.Require().NoError(err)
	_, err = s.svc.Fulfillment.AssignWarehouse(s.ctx, domain.PurchaseOrder, po.Code, 1, dto.AssignWarehouseRequest{WarehouseID: "WH01"}, testUser)
	s.Require().NoError(err)
	_, err = s.svc.Fulfillment.Commit(s.ctx, domain.PurchaseOrder, po.Code, testUser)
	s.Require().NoError(err)

	first, err := s.svc.Fulfillment.Cancel(s.ctx, domain.PurchaseOrder, po.Code, dto.CancelOrderRequest{}, testUser)
	s.Require().NoError(err)
	second, err := s.svc.Fulfillment.Cancel(s.ctx, domain.PurchaseOrder, po.Code, dto.CancelOrderRequest{}, testUser)
	s.Require().NoError(err)

	s.Empty(second.Entries)
	s.Equal(first.Order.Version, second.Order.Version)
	entries, err := s.store.FindLedgerEntriesByReference(s.ctx, po.Code)
	s.Require().NoError(err)
	s.Len(entries, 1)
	requireQty(s.T(), 10, s.balance("FLOUR", "WH01").StockQty)
}

func (s *FulfillmentServiceTestSuite) TestCommitIsIdempotent() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(40))
	s.stage(domain.PurchaseOrder, po.Code, "WH01")

	first, err := s.svc.Fulfillment.Commit(s.ctx, domain.PurchaseOrder, po.Code, testUser)
	s.Require().NoError(err)
	second, err := s.svc.Fulfillment.Commit(s.ctx, domain.PurchaseOrder, po.Code, testUser)
	s.Require().NoError(err)

	s.Empty(second.Entries)
	s.Equal(first.Order.Version, second.Order.Version)
	requireQty(s.T(), 40, s.balance("FLOUR", "WH01").StockQty)
}

func (s *FulfillmentServiceTestSuite) TestCommitWithoutConfirmedLinesFails() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(10))
	_, err := s.svc.Fulfillment.Commit(s.ctx, domain.PurchaseOrder, po.Code, testUser)
	s.ErrorIs(err, apperrors.ErrInvalidState)
}

func (s *FulfillmentServiceTestSuite) TestUnknownOrder() {
	_, err := s.svc.Fulfillment.Commit(s.ctx, domain.PurchaseOrder, "PO-20240304-99999", testUser)
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.svc.Fulfillment.Commit(s.ctx, domain.OrderKind("RENTAL"), "X-1", testUser)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *FulfillmentServiceTestSuite) TestAssignWarehouseChecksPlacement() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(10))
	_, err := s.svc.Fulfillment.Confirm(s.ctx, domain.PurchaseOrder, po.Code, dto.ConfirmOrderRequest{}, testUser)
	s.Require().NoError(err)

	tests := []struct {
		name        string
		warehouseID string
		wantErr     error
	}{
		{"unknown warehouse", "WH99", apperrors.ErrNotFound},
		{"inactive warehouse", "WH03", apperrors.ErrValidation},
		{"product warehouse for material", "WH02", apperrors.ErrValidation},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.Fulfillment.AssignWarehouse(s.ctx, domain.PurchaseOrder, po.Code, 1, dto.AssignWarehouseRequest{WarehouseID: tt.warehouseID}, testUser)
			s.ErrorIs(err, tt.wantErr)
		})
	}

	order, err := s.svc.Fulfillment.AssignWarehouse(s.ctx, domain.PurchaseOrder, po.Code, 1, dto.AssignWarehouseRequest{WarehouseID: "WH04"}, testUser)
	s.Require().NoError(err)
	s.Equal("WH04", *order.Lines[0].WarehouseID)

	_, err = s.svc.Fulfillment.AssignWarehouse(s.ctx, domain.PurchaseOrder, po.Code, 7, dto.AssignWarehouseRequest{WarehouseID: "WH04"}, testUser)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *FulfillmentServiceTestSuite) TestSalesReserveAndShip() {
	s.receive(100, "WH01")
	so := s.createOrder(domain.SalesOrder, flourLine(60))
	s.stage(domain.SalesOrder, so.Code, "WH01")

	res, err := s.svc.Fulfillment.Reserve(s.ctx, so.Code, testUser)
	s.Require().NoError(err)
	s.Require().Len(res.Entries, 1)
	s.Equal(domain.LedgerReserve, res.Entries[0].Type)
	requireQty(s.T(), 60, res.Order.Lines[0].ReservedQty)

	b := s.balance("FLOUR", "WH01")
	requireQty(s.T(), 100, b.StockQty)
	requireQty(s.T(), 60, b.AllocQty)

	// reserving again is a no-op
	again, err := s.svc.Fulfillment.Reserve(s.ctx, so.Code, testUser)
	s.Require().NoError(err)
	s.Empty(again.Entries)

	shipped, err := s.svc.Fulfillment.Commit(s.ctx, domain.SalesOrder, so.Code, testUser)
	s.Require().NoError(err)
	s.Require().Len(shipped.Entries, 2)
	s.Equal(domain.LedgerUnreserve, shipped.Entries[0].Type)
	s.Equal(domain.LedgerSalesOut, shipped.Entries[1].Type)
	s.Equal(domain.LineFulfilled, shipped.Order.Lines[0].Status)
	s.Equal(domain.OrderComplete, shipped.Order.Status())

	b = s.balance("FLOUR", "WH01")
	requireQty(s.T(), 40, b.StockQty)
	requireQty(s.T(), 0, b.AllocQty)
}

func (s *FulfillmentServiceTestSuite) TestReserveRejectsShortage() {
	s.receive(50, "WH01")
	so := s.createOrder(domain.SalesOrder, flourLine(60))
	s.stage(domain.SalesOrder, so.Code, "WH01")

	_, err := s.svc.Fulfillment.Reserve(s.ctx, so.Code, testUser)
	s.ErrorIs(err, domain.ErrInsufficientStock)
	s.ErrorIs(err, apperrors.ErrInvalidState)

	stored, err := s.svc.Order.GetOrder(s.ctx, domain.SalesOrder, so.Code)
	s.Require().NoError(err)
	s.False(stored.Lines[0].HasReservation())
	b := s.balance("FLOUR", "WH01")
	requireQty(s.T(), 0, b.AllocQty)
	s.False(b.Flagged, "a shortfall is a business rejection, not an inconsistency")
}

func (s *FulfillmentServiceTestSuite) TestShipmentRejectsShortage() {
	s.receive(10, "WH01")
	so := s.createOrder(domain.SalesOrder, flourLine(11))
	s.stage(domain.SalesOrder, so.Code, "WH01")

	_, err := s.svc.Fulfillment.Commit(s.ctx, domain.SalesOrder, so.Code, testUser)
	s.ErrorIs(err, domain.ErrInsufficientStock)
	requireQty(s.T(), 10, s.balance("FLOUR", "WH01").StockQty)
}

func (s *FulfillmentServiceTestSuite) TestReserveWithoutStagedLinesFails() {
	so := s.createOrder(domain.SalesOrder, flourLine(5))
	_, err := s.svc.Fulfillment.Reserve(s.ctx, so.Code, testUser)
	s.ErrorIs(err, apperrors.ErrInvalidState)
}

func (s *FulfillmentServiceTestSuite) TestReserveFollowsWarehouseChange() {
	s.receive(100, "WH01")
	s.receive(100, "WH04")
	so := s.createOrder(domain.SalesOrder, flourLine(30))
	s.stage(domain.SalesOrder, so.Code, "WH01")
	_, err := s.svc.Fulfillment.Reserve(s.ctx, so.Code, testUser)
	s.Require().NoError(err)

	_, err = s.svc.Fulfillment.AssignWarehouse(s.ctx, domain.SalesOrder, so.Code, 1, dto.AssignWarehouseRequest{WarehouseID: "WH04"}, testUser)
	s.Require().NoError(err)
	requireQty(s.T(), 30, s.balance("FLOUR", "WH01").AllocQty)

	res, err := s.svc.Fulfillment.Reserve(s.ctx, so.Code, testUser)
	s.Require().NoError(err)
	s.Require().Len(res.Entries, 2)
	s.Equal(domain.LedgerUnreserve, res.Entries[0].Type)
	s.Equal("WH01", res.Entries[0].Key.WarehouseID)
	s.Equal(domain.LedgerReserve, res.Entries[1].Type)
	s.Equal("WH04", res.Entries[1].Key.WarehouseID)

	requireQty(s.T(), 0, s.balance("FLOUR", "WH01").AllocQty)
	requireQty(s.T(), 30, s.balance("FLOUR", "WH04").AllocQty)
}

func (s *FulfillmentServiceTestSuite) TestCancelReleasesReservations() {
	s.receive(100, "WH01")
	so := s.createOrder(domain.SalesOrder, flourLine(30), flourLine(20))
	s.stage(domain.SalesOrder, so.Code, "WH01")
	_, err := s.svc.Fulfillment.Reserve(s.ctx, so.Code, testUser)
	s.Require().NoError(err)
	requireQty(s.T(), 50, s.balance("FLOUR", "WH01").AllocQty)

	res, err := s.svc.Fulfillment.CancelLine(s.ctx, domain.SalesOrder, so.Code, 2, dto.CancelOrderRequest{Reason: "customer changed mind"}, testUser)
	s.Require().NoError(err)
	s.Require().Len(res.Entries, 1)
	s.Equal(domain.LedgerUnreserve, res.Entries[0].Type)
	requireQty(s.T(), 20, res.Entries[0].AllocDelta.Neg())
	requireQty(s.T(), 30, s.balance("FLOUR", "WH01").AllocQty)

	_, err = s.svc.Fulfillment.CancelLine(s.ctx, domain.SalesOrder, so.Code, 2, dto.CancelOrderRequest{}, testUser)
	s.ErrorIs(err, apperrors.ErrInvalidState)

	res, err = s.svc.Fulfillment.Cancel(s.ctx, domain.SalesOrder, so.Code, dto.CancelOrderRequest{}, testUser)
	s.Require().NoError(err)
	s.Equal(domain.OrderCancelled, res.Order.Status())
	b := s.balance("FLOUR", "WH01")
	requireQty(s.T(), 0, b.AllocQty)
	requireQty(s.T(), 100, b.StockQty)
}

func (s *FulfillmentServiceTestSuite) TestFlaggedRowBlocksPostings() {
	key := domain.StockKey{ItemID: "FLOUR", WarehouseID: "WH01"}
	s.Require().NoError(s.store.FlagBalance(s.ctx, key, "manual hold", testNow))

	po := s.createOrder(domain.PurchaseOrder, flourLine(10))
	s.stage(domain.PurchaseOrder, po.Code, "WH01")
	_, err := s.svc.Fulfillment.Commit(s.ctx, domain.PurchaseOrder, po.Code, testUser)
	s.ErrorIs(err, apperrors.ErrConsistency)

	stored, err := s.svc.Order.GetOrder(s.ctx, domain.PurchaseOrder, po.Code)
	s.Require().NoError(err)
	s.Equal(domain.LineConfirmed, stored.Lines[0].Status)
}

func (s *FulfillmentServiceTestSuite) TestConcurrentCommitsPostOnce() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(100))
	s.stage(domain.PurchaseOrder, po.Code, "WH01")

	const workers = 10
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.svc.Fulfillment.Commit(s.ctx, domain.PurchaseOrder, po.Code, testUser)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}
	entries, err := s.store.FindLedgerEntriesByReference(s.ctx, po.Code)
	s.Require().NoError(err)
	s.Len(entries, 1)
	requireQty(s.T(), 100, s.balance("FLOUR", "WH01").StockQty)
}

func (s *FulfillmentServiceTestSuite) TestConcurrentReservationsNeverOversell() {
	s.receive(100, "WH01")
	const orders = 5
	codes := make([]string, orders)
	for i := range codes {
		so := s.createOrder(domain.SalesOrder, flourLine(30))
		s.stage(domain.SalesOrder, so.Code, "WH01")
		codes[i] = so.Code
	}

	errs := make([]error, orders)
	var wg sync.WaitGroup
	for i, code := range codes {
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()
			_, errs[i] = s.svc.Fulfillment.Reserve(s.ctx, code, testUser)
		}(i, code)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, domain.ErrInsufficientStock)
	}
	s.Equal(3, succeeded)
	b := s.balance("FLOUR", "WH01")
	requireQty(s.T(), 90, b.AllocQty)
	s.False(b.Available().IsNegative())
}

func (s *FulfillmentServiceTestSuite) TestPublishesEvents() {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.setup(services.WithPublisher(pub))

	s.receive(25, "WH01")

	pub.AssertCalled(s.T(), "Publish", mock.Anything, events.RoutingLedgerPosted, mock.AnythingOfType("events.LedgerPosted"))
	transitions := 0
	for _, c := range pub.Calls {
		if c.Arguments.String(1) == events.RoutingOrderTransition {
			transitions++
		}
	}
	s.Equal(3, transitions, "confirm, assign and commit")
}

func (s *FulfillmentServiceTestSuite) TestPublishFailureKeepsPosting() {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	s.setup(services.WithPublisher(pub))

	s.receive(25, "WH01")
	requireQty(s.T(), 25, s.balance("FLOUR", "WH01").StockQty)
}

func (s *FulfillmentServiceTestSuite) TestNoOpRetryPublishesNothing() {
	s.receive(25, "WH01")
	po, err := s.svc.Order.ListOrders(s.ctx, domain.PurchaseOrder, dto.ListOrdersParams{})
	s.Require().NoError(err)
	s.Require().Len(po.Orders, 1)

	pub := new(MockPublisher)
	svc := services.NewFulfillmentService(memory.NewRepositoryProvider(s.store), services.WithPublisher(pub))

	res, err := svc.Commit(s.ctx, domain.PurchaseOrder, po.Orders[0].Code, testUser)
	s.Require().NoError(err)
	s.Empty(res.Entries)
	pub.AssertNotCalled(s.T(), "Publish", mock.Anything, mock.Anything, mock.Anything)
}
