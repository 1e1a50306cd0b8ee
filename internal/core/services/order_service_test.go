package services_test

import (
	"testing"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
	"github.com/stretchr/testify/suite"
)

type OrderServiceTestSuite struct {
	engineSuite
}

func TestOrderServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

func (s *OrderServiceTestSuite) TestCreateOrder() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(10), flourLine(20))
	s.Equal("PO-20240304-00001", po.Code)
	s.Equal(int64(1), po.Version)
	s.Equal(domain.OrderRegistered, po.Status())
	s.Require().Len(po.Lines, 2)
	s.Equal(2, po.Lines[1].SeqNo)
	s.Equal(testUser, po.CreatedBy)

	so := s.createOrder(domain.SalesOrder, flourLine(1))
	s.Equal("SO-20240304-00001", so.Code, "each kind numbers its own orders")
}

func (s *OrderServiceTestSuite) TestCreateOrderRejectsUnknownItem() {
	_, err := s.svc.Order.SaveOrder(s.ctx, domain.PurchaseOrder, dto.SaveOrderRequest{
		Date:           testNow,
		CounterpartyID: "PARTNER-1",
		Lines:          []dto.OrderLineRequest{{ItemID: "SUGAR", Quantity: qty(1)}},
	}, testUser)
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.Order.SaveOrder(s.ctx, domain.PurchaseOrder, dto.SaveOrderRequest{
		Date:           testNow,
		CounterpartyID: "PARTNER-1",
		Lines:          []dto.OrderLineRequest{{ItemID: flour.ItemID, Quantity: qty(0)}},
	}, testUser)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *OrderServiceTestSuite) TestUpdateOrder() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(10), flourLine(20))

	version := po.Version
	updated, err := s.svc.Order.SaveOrder(s.ctx, domain.PurchaseOrder, dto.SaveOrderRequest{
		Code:           po.Code,
		Version:        &version,
		Date:           testNow,
		CounterpartyID: "PARTNER-2",
		Lines: []dto.OrderLineRequest{
			{SeqNo: 1, ItemID: flour.ItemID, Quantity: qty(15), UnitCost: qty(2)},
			{ItemID: bread.ItemID, Quantity: qty(3)},
		},
	}, testUser)
	s.Require().NoError(err)

	s.Equal("PARTNER-2", updated.CounterpartyID)
	s.Equal(po.Version+1, updated.Version)
	s.Require().Len(updated.Lines, 2)
	s.Equal(1, updated.Lines[0].SeqNo)
	requireQty(s.T(), 15, updated.Lines[0].Quantity)
	s.Equal(3, updated.Lines[1].SeqNo, "removed line numbers are not reused")
	s.Equal(bread.ItemID, updated.Lines[1].ItemID)
}

func (s *OrderServiceTestSuite) TestUpdateOrderStaleVersion() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(10))
	_, err := s.svc.Order.AddLine(s.ctx, domain.PurchaseOrder, po.Code, flourLine(5), testUser)
	s.Require().NoError(err)

	stale := po.Version
	_, err = s.svc.Order.SaveOrder(s.ctx, domain.PurchaseOrder, dto.SaveOrderRequest{
		Code:           po.Code,
		Version:        &stale,
		Date:           testNow,
		CounterpartyID: "PARTNER-1",
		Lines:          []dto.OrderLineRequest{{SeqNo: 1, ItemID: flour.ItemID, Quantity: qty(10)}},
	}, testUser)
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *OrderServiceTestSuite) TestUpdateFrozenLineFails() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(10))
	_, err := s.svc.Fulfillment.Confirm(s.ctx, domain.PurchaseOrder, po.Code, dto.ConfirmOrderRequest{}, testUser)
	s.Require().NoError(err)

	_, err = s.svc.Order.SaveOrder(s.ctx, domain.PurchaseOrder, dto.SaveOrderRequest{
		Code:           po.Code,
		Date:           testNow,
		CounterpartyID: "PARTNER-1",
		Lines:          []dto.OrderLineRequest{{SeqNo: 1, ItemID: flour.ItemID, Quantity: qty(99)}},
	}, testUser)
	s.ErrorIs(err, apperrors.ErrInvalidState)

	_, err = s.svc.Order.RemoveLine(s.ctx, domain.PurchaseOrder, po.Code, 1, testUser)
	s.ErrorIs(err, apperrors.ErrInvalidState)
}

func (s *OrderServiceTestSuite) TestAddAndRemoveLine() {
	po := s.createOrder(domain.PurchaseOrder, flourLine(10))

	order, err := s.svc.Order.AddLine(s.ctx, domain.PurchaseOrder, po.Code, flourLine(5), testUser)
	s.Require().NoError(err)
	s.Len(order.Lines, 2)

	order, err = s.svc.Order.RemoveLine(s.ctx, domain.PurchaseOrder, po.Code, 1, testUser)
	s.Require().NoError(err)
	s.Require().Len(order.Lines, 1)
	s.Equal(2, order.Lines[0].SeqNo)

	_, err = s.svc.Order.RemoveLine(s.ctx, domain.PurchaseOrder, po.Code, 2, testUser)
	s.ErrorIs(err, apperrors.ErrValidation, "an order keeps at least one line")

	_, err = s.svc.Order.AddLine(s.ctx, domain.PurchaseOrder, po.Code, dto.OrderLineRequest{ItemID: "SUGAR", Quantity: qty(1)}, testUser)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *OrderServiceTestSuite) TestGetOrderNotFound() {
	_, err := s.svc.Order.GetOrder(s.ctx, domain.SalesOrder, "SO-20240304-00042")
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *OrderServiceTestSuite) TestListOrders() {
	for i := 0; i < 3; i++ {
		s.createOrder(domain.PurchaseOrder, flourLine(10))
	}
	s.createOrder(domain.SalesOrder, flourLine(10))

	page, err := s.svc.Order.ListOrders(s.ctx, domain.PurchaseOrder, dto.ListOrdersParams{Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(page.Orders, 2)
	s.Equal("PO-20240304-00003", page.Orders[0].Code)
	s.Equal("PO-20240304-00002", page.Orders[1].Code)
	s.Require().NotNil(page.NextToken)

	page, err = s.svc.Order.ListOrders(s.ctx, domain.PurchaseOrder, dto.ListOrdersParams{Limit: 2, NextToken: *page.NextToken})
	s.Require().NoError(err)
	s.Require().Len(page.Orders, 1)
	s.Equal("PO-20240304-00001", page.Orders[0].Code)
	s.Nil(page.NextToken)

	_, err = s.svc.Order.ListOrders(s.ctx, domain.PurchaseOrder, dto.ListOrdersParams{NextToken: "%%%"})
	s.ErrorIs(err, apperrors.ErrValidation)
}
