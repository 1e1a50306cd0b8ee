package handlers_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
	"github.com/SscSPs/food_erp_fulfillment/internal/handlers"
	"github.com/SscSPs/food_erp_fulfillment/internal/middleware"
	"github.com/SscSPs/food_erp_fulfillment/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	testJWTSecret = "test-secret-key-that-is-long-enough"
	testIssuer    = "food-erp-test"
	testUserID    = "user-7"
)

func sampleOrder(kind domain.OrderKind, code string, statuses ...domain.LineStatus) *domain.Order {
	order := &domain.Order{Kind: kind, Code: code, Version: 1}
	order.Date = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	order.CounterpartyID = "VENDOR-1"
	for i, st := range statuses {
		order.Lines = append(order.Lines, domain.OrderLine{
			SeqNo:    i + 1,
			ItemID:   "FLOUR",
			Quantity: decimal.NewFromInt(10),
			Status:   st,
		})
	}
	order.LastSeqNo = len(statuses)
	return order
}

type OrderHandlerTestSuite struct {
	suite.Suite
	router          *gin.Engine
	mockOrders      *MockOrderService
	mockFulfillment *MockFulfillmentService
	token           string
}

func (suite *OrderHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.router.Use(middleware.AuthMiddleware(testJWTSecret, testIssuer))

	suite.mockOrders = new(MockOrderService)
	suite.mockFulfillment = new(MockFulfillmentService)

	v1 := suite.router.Group("/api/v1")
	handlers.RegisterOrderRoutes(v1, suite.mockOrders, suite.mockFulfillment)

	token, err := utils.GenerateJWT(testUserID, testJWTSecret, time.Hour, testIssuer)
	suite.Require().NoError(err)
	suite.token = token
}

func (suite *OrderHandlerTestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+suite.token)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *OrderHandlerTestSuite) decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (suite *OrderHandlerTestSuite) TestSaveOrder_CreatesPurchaseOrder() {
	created := sampleOrder(domain.PurchaseOrder, "PO-20240304-00001", domain.LineRegistered)
	suite.mockOrders.On("SaveOrder", mock.Anything, domain.PurchaseOrder,
		mock.MatchedBy(func(req dto.SaveOrderRequest) bool {
			return req.Code == "" && req.CounterpartyID == "VENDOR-1" &&
				len(req.Lines) == 1 && req.Lines[0].Quantity.Equal(decimal.NewFromInt(100))
		}),
		testUserID,
	).Return(created, nil).Once()

	body := `{"date":"2024-03-04T00:00:00Z","counterpartyId":"VENDOR-1","lines":[{"itemId":"FLOUR","quantity":"100","unitCost":"2.5"}]}`
	w := suite.do(http.MethodPost, "/api/v1/purchase-orders", body)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.OrderResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("PO-20240304-00001", resp.Code)
	suite.Equal(string(domain.OrderRegistered), resp.Status)
	suite.mockOrders.AssertExpectations(suite.T())
}

func (suite *OrderHandlerTestSuite) TestSaveOrder_UpdateReturnsOK() {
	updated := sampleOrder(domain.SalesOrder, "SO-20240304-00002", domain.LineRegistered)
	suite.mockOrders.On("SaveOrder", mock.Anything, domain.SalesOrder,
		mock.MatchedBy(func(req dto.SaveOrderRequest) bool { return req.Code == "SO-20240304-00002" }),
		testUserID,
	).Return(updated, nil).Once()

	body := `{"code":"SO-20240304-00002","date":"2024-03-04T00:00:00Z","counterpartyId":"CUST-1","lines":[{"seqNo":1,"itemId":"BREAD","quantity":5}]}`
	w := suite.do(http.MethodPost, "/api/v1/sales-orders", body)

	suite.Equal(http.StatusOK, w.Code)
	suite.mockOrders.AssertExpectations(suite.T())
}

func (suite *OrderHandlerTestSuite) TestSaveOrder_InvalidBody() {
	w := suite.do(http.MethodPost, "/api/v1/purchase-orders", `{"counterpartyId":"VENDOR-1","lines":[]}`)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockOrders.AssertNotCalled(suite.T(), "SaveOrder")
}

func (suite *OrderHandlerTestSuite) TestSaveOrder_StaleVersion() {
	suite.mockOrders.On("SaveOrder", mock.Anything, domain.PurchaseOrder, mock.Anything, testUserID).
		Return(nil, fmt.Errorf("%w: order PO-1 was modified concurrently", apperrors.ErrConflict)).Once()

	body := `{"code":"PO-1","version":3,"date":"2024-03-04T00:00:00Z","counterpartyId":"VENDOR-1","lines":[{"itemId":"FLOUR","quantity":"1"}]}`
	w := suite.do(http.MethodPost, "/api/v1/purchase-orders", body)

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *OrderHandlerTestSuite) TestGetOrder_DerivedStatus() {
	order := sampleOrder(domain.SalesOrder, "SO-20240304-00001", domain.LineFulfilled, domain.LineConfirmed)
	suite.mockOrders.On("GetOrder", mock.Anything, domain.SalesOrder, "SO-20240304-00001").Return(order, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/sales-orders/SO-20240304-00001", "")

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.OrderResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(string(domain.OrderPartial), resp.Status)
	suite.Len(resp.Lines, 2)
}

func (suite *OrderHandlerTestSuite) TestGetOrder_NotFound() {
	suite.mockOrders.On("GetOrder", mock.Anything, domain.PurchaseOrder, "PO-404").
		Return(nil, apperrors.NewNotFoundError("order PO-404")).Once()

	w := suite.do(http.MethodGet, "/api/v1/purchase-orders/PO-404", "")

	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *OrderHandlerTestSuite) TestListOrders_PassesPaging() {
	next := "abc"
	suite.mockOrders.On("ListOrders", mock.Anything, domain.PurchaseOrder, dto.ListOrdersParams{Limit: 2, NextToken: "tok"}).
		Return(&dto.ListOrdersResponse{Orders: []dto.OrderResponse{}, NextToken: &next}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/purchase-orders?limit=2&nextToken=tok", "")

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ListOrdersResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().NotNil(resp.NextToken)
	suite.Equal("abc", *resp.NextToken)
}

func (suite *OrderHandlerTestSuite) TestListOrders_LimitOutOfRange() {
	w := suite.do(http.MethodGet, "/api/v1/purchase-orders?limit=500", "")

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockOrders.AssertNotCalled(suite.T(), "ListOrders")
}

func (suite *OrderHandlerTestSuite) TestConfirm_EmptyBodyConfirmsAll() {
	order := sampleOrder(domain.PurchaseOrder, "PO-1", domain.LineConfirmed)
	suite.mockFulfillment.On("Confirm", mock.Anything, domain.PurchaseOrder, "PO-1", dto.ConfirmOrderRequest{}, testUserID).
		Return(order, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/purchase-orders/PO-1/confirm", "")

	suite.Equal(http.StatusOK, w.Code)
	suite.mockFulfillment.AssertExpectations(suite.T())
}

func (suite *OrderHandlerTestSuite) TestConfirm_SelectedLines() {
	order := sampleOrder(domain.PurchaseOrder, "PO-1", domain.LineConfirmed, domain.LineRegistered)
	suite.mockFulfillment.On("Confirm", mock.Anything, domain.PurchaseOrder, "PO-1", dto.ConfirmOrderRequest{SeqNos: []int{1}}, testUserID).
		Return(order, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/purchase-orders/PO-1/confirm", `{"seqNos":[1]}`)

	suite.Equal(http.StatusOK, w.Code)
	suite.mockFulfillment.AssertExpectations(suite.T())
}

func (suite *OrderHandlerTestSuite) TestAssignWarehouse() {
	order := sampleOrder(domain.PurchaseOrder, "PO-1", domain.LineConfirmed)
	suite.mockFulfillment.On("AssignWarehouse", mock.Anything, domain.PurchaseOrder, "PO-1", 1,
		dto.AssignWarehouseRequest{WarehouseID: "WH01"}, testUserID).Return(order, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/purchase-orders/PO-1/lines/1/assign-warehouse", `{"warehouseId":"WH01"}`)

	suite.Equal(http.StatusOK, w.Code)
	suite.mockFulfillment.AssertExpectations(suite.T())
}

func (suite *OrderHandlerTestSuite) TestAssignWarehouse_InvalidSeq() {
	w := suite.do(http.MethodPost, "/api/v1/purchase-orders/PO-1/lines/abc/assign-warehouse", `{"warehouseId":"WH01"}`)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockFulfillment.AssertNotCalled(suite.T(), "AssignWarehouse")
}

func (suite *OrderHandlerTestSuite) TestCommitReceipt() {
	order := sampleOrder(domain.PurchaseOrder, "PO-1", domain.LineReceived)
	entry := domain.StockLedgerEntry{
		EntryID:          "entry-1",
		Key:              domain.StockKey{ItemID: "FLOUR", WarehouseID: "WH01"},
		Type:             domain.LedgerPurchaseIn,
		QtyDelta:         decimal.NewFromInt(10),
		ResultingBalance: decimal.NewFromInt(10),
		Version:          1,
	}
	suite.mockFulfillment.On("Commit", mock.Anything, domain.PurchaseOrder, "PO-1", testUserID).
		Return(&domain.PostingResult{Order: order, Entries: []domain.StockLedgerEntry{entry}}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/purchase-orders/PO-1/commit-receipt", "")

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.FulfillmentResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(string(domain.OrderComplete), resp.Order.Status)
	suite.Require().Len(resp.LedgerEntries, 1)
	suite.Equal("PURCHASE_IN", resp.LedgerEntries[0].Type)
	suite.Equal("WH01", resp.LedgerEntries[0].WarehouseID)
}

func (suite *OrderHandlerTestSuite) TestCommitShipment_UsesSalesKind() {
	order := sampleOrder(domain.SalesOrder, "SO-1", domain.LineFulfilled)
	suite.mockFulfillment.On("Commit", mock.Anything, domain.SalesOrder, "SO-1", testUserID).
		Return(&domain.PostingResult{Order: order}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/sales-orders/SO-1/commit-shipment", "")

	suite.Equal(http.StatusOK, w.Code)
	suite.mockFulfillment.AssertExpectations(suite.T())
}

func (suite *OrderHandlerTestSuite) TestKindSpecificRoutes() {
	w := suite.do(http.MethodPost, "/api/v1/purchase-orders/PO-1/commit-shipment", "")
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/purchase-orders/PO-1/reserve", "")
	suite.Equal(http.StatusNotFound, w.Code)

	suite.mockFulfillment.AssertNotCalled(suite.T(), "Commit")
	suite.mockFulfillment.AssertNotCalled(suite.T(), "Reserve")
}

func (suite *OrderHandlerTestSuite) TestCommit_UnassignedLineReportsState() {
	suite.mockFulfillment.On("Commit", mock.Anything, domain.PurchaseOrder, "PO-1", testUserID).
		Return(nil, apperrors.NewStateError("line", "PO-1/2", string(domain.LineConfirmed), "commit without warehouse")).Once()

	w := suite.do(http.MethodPost, "/api/v1/purchase-orders/PO-1/commit-receipt", "")

	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal(string(domain.LineConfirmed), suite.decodeError(w)["state"])
}

func (suite *OrderHandlerTestSuite) TestCommit_InconsistentRow() {
	suite.mockFulfillment.On("Commit", mock.Anything, domain.SalesOrder, "SO-1", testUserID).
		Return(nil, apperrors.NewConsistencyError("FLOUR", "WH01", "row is flagged for reconciliation")).Once()

	w := suite.do(http.MethodPost, "/api/v1/sales-orders/SO-1/commit-shipment", "")

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	body := suite.decodeError(w)
	suite.Equal("FLOUR", body["itemId"])
	suite.Equal("WH01", body["warehouseId"])
}

func (suite *OrderHandlerTestSuite) TestCommit_UnexpectedError() {
	suite.mockFulfillment.On("Commit", mock.Anything, domain.PurchaseOrder, "PO-1", testUserID).
		Return(nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to post movements", errors.New("connection reset"))).Once()

	w := suite.do(http.MethodPost, "/api/v1/purchase-orders/PO-1/commit-receipt", "")

	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.Equal("Failed to commit order", suite.decodeError(w)["error"])
}

func (suite *OrderHandlerTestSuite) TestReserve_Shortage() {
	suite.mockFulfillment.On("Reserve", mock.Anything, "SO-1", testUserID).
		Return(nil, fmt.Errorf("%w: RESERVE of FLOUR at WH01 needs 30, available 10", domain.ErrInsufficientStock)).Once()

	w := suite.do(http.MethodPost, "/api/v1/sales-orders/SO-1/reserve", "")

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *OrderHandlerTestSuite) TestCancelLine_WithReason() {
	order := sampleOrder(domain.SalesOrder, "SO-1", domain.LineCancelled, domain.LineRegistered)
	suite.mockFulfillment.On("CancelLine", mock.Anything, domain.SalesOrder, "SO-1", 1,
		dto.CancelOrderRequest{Reason: "customer changed mind"}, testUserID).
		Return(&domain.PostingResult{Order: order}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/sales-orders/SO-1/lines/1/cancel", `{"reason":"customer changed mind"}`)

	suite.Equal(http.StatusOK, w.Code)
	suite.mockFulfillment.AssertExpectations(suite.T())
}

func (suite *OrderHandlerTestSuite) TestCancel_CompleteOrder() {
	suite.mockFulfillment.On("Cancel", mock.Anything, domain.PurchaseOrder, "PO-1", dto.CancelOrderRequest{}, testUserID).
		Return(nil, apperrors.NewStateError("order", "PO-1", string(domain.OrderComplete), "cancel")).Once()

	w := suite.do(http.MethodPost, "/api/v1/purchase-orders/PO-1/cancel", "")

	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal(string(domain.OrderComplete), suite.decodeError(w)["state"])
}

func (suite *OrderHandlerTestSuite) TestRemoveLine() {
	order := sampleOrder(domain.PurchaseOrder, "PO-1", domain.LineRegistered)
	suite.mockOrders.On("RemoveLine", mock.Anything, domain.PurchaseOrder, "PO-1", 2, testUserID).Return(order, nil).Once()

	w := suite.do(http.MethodDelete, "/api/v1/purchase-orders/PO-1/lines/2", "")

	suite.Equal(http.StatusOK, w.Code)
	suite.mockOrders.AssertExpectations(suite.T())
}

func (suite *OrderHandlerTestSuite) TestAddLine() {
	order := sampleOrder(domain.PurchaseOrder, "PO-1", domain.LineRegistered, domain.LineRegistered)
	suite.mockOrders.On("AddLine", mock.Anything, domain.PurchaseOrder, "PO-1",
		mock.MatchedBy(func(req dto.OrderLineRequest) bool { return req.ItemID == "BUTTER" }), testUserID).
		Return(order, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/purchase-orders/PO-1/lines", `{"itemId":"BUTTER","quantity":"4"}`)

	suite.Equal(http.StatusCreated, w.Code)
	suite.mockOrders.AssertExpectations(suite.T())
}

func (suite *OrderHandlerTestSuite) TestMissingToken() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/purchase-orders/PO-1", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockOrders.AssertNotCalled(suite.T(), "GetOrder")
}

func TestOrderHandler(t *testing.T) {
	suite.Run(t, new(OrderHandlerTestSuite))
}
