package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
	"github.com/SscSPs/food_erp_fulfillment/internal/handlers"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type StockHandlerTestSuite struct {
	suite.Suite
	router        *gin.Engine
	mockStock     *MockStockService
	mockReconcile *MockReconciliationService
}

func (suite *StockHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()

	suite.mockStock = new(MockStockService)
	suite.mockReconcile = new(MockReconciliationService)

	// no auth: the actor comes from X-User-ID
	v1 := suite.router.Group("/api/v1")
	handlers.RegisterStockRoutes(v1, suite.mockStock, suite.mockReconcile)
}

func (suite *StockHandlerTestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", testUserID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *StockHandlerTestSuite) TestGetBalance() {
	params := dto.StockBalanceParams{ItemID: "FLOUR", WarehouseID: "WH01"}
	suite.mockStock.On("GetBalance", mock.Anything, params).Return(&dto.StockBalanceResponse{
		ItemID:      "FLOUR",
		WarehouseID: "WH01",
		StockQty:    decimal.NewFromInt(100),
		AllocQty:    decimal.NewFromInt(30),
		Available:   decimal.NewFromInt(70),
	}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/stock-balances?itemId=FLOUR&warehouseId=WH01", "")

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.StockBalanceResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Available.Equal(decimal.NewFromInt(70)))
}

func (suite *StockHandlerTestSuite) TestGetBalance_MissingWarehouse() {
	w := suite.do(http.MethodGet, "/api/v1/stock-balances?itemId=FLOUR", "")

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockStock.AssertNotCalled(suite.T(), "GetBalance")
}

func (suite *StockHandlerTestSuite) TestListCandidates_UnknownItem() {
	suite.mockStock.On("ListCandidateBalances", mock.Anything, "NOPE").
		Return(nil, apperrors.NewNotFoundError("item NOPE")).Once()

	w := suite.do(http.MethodGet, "/api/v1/stock-balances/candidates?itemId=NOPE", "")

	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *StockHandlerTestSuite) TestListLedger() {
	params := dto.ListStockLedgerParams{ItemID: "FLOUR", WarehouseID: "WH01", Limit: 5}
	suite.mockStock.On("ListLedger", mock.Anything, params).Return(&dto.ListStockLedgerResponse{
		Entries: []dto.StockLedgerEntryResponse{{EntryID: "e2", Version: 2}, {EntryID: "e1", Version: 1}},
	}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/stock-ledger?itemId=FLOUR&warehouseId=WH01&limit=5", "")

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ListStockLedgerResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().Len(resp.Entries, 2)
	suite.Equal("e2", resp.Entries[0].EntryID)
	suite.Nil(resp.NextToken)
}

func (suite *StockHandlerTestSuite) TestExportLedger() {
	params := dto.StockBalanceParams{ItemID: "FLOUR", WarehouseID: "WH01"}
	suite.mockStock.On("ExportLedger", mock.Anything, params, mock.Anything).
		Run(func(args mock.Arguments) {
			_, _ = io.WriteString(args.Get(2).(io.Writer), "xlsx-bytes")
		}).
		Return(nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/stock-ledger/export?itemId=FLOUR&warehouseId=WH01", "")

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	suite.Contains(w.Header().Get("Content-Disposition"), "ledger_FLOUR_WH01.xlsx")
	suite.Equal("xlsx-bytes", w.Body.String())
}

func (suite *StockHandlerTestSuite) TestRecordMovement() {
	entry := &domain.StockLedgerEntry{
		EntryID:          "entry-9",
		Key:              domain.StockKey{ItemID: "BREAD", WarehouseID: "WH02"},
		Type:             domain.LedgerProductionIn,
		QtyDelta:         decimal.NewFromInt(40),
		ResultingBalance: decimal.NewFromInt(40),
		Version:          1,
		CreatedBy:        testUserID,
	}
	suite.mockStock.On("RecordMovement", mock.Anything,
		mock.MatchedBy(func(req dto.RecordMovementRequest) bool {
			return req.TypeCode == "production in" && req.Quantity.Equal(decimal.NewFromInt(40))
		}),
		testUserID,
	).Return(entry, nil).Once()

	body := `{"typeCode":"production in","itemId":"BREAD","warehouseId":"WH02","quantity":"40"}`
	w := suite.do(http.MethodPost, "/api/v1/stock-movements", body)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.StockLedgerEntryResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("PRODUCTION_IN", resp.Type)
	suite.Equal(testUserID, resp.CreatedBy)
}

func (suite *StockHandlerTestSuite) TestRecordMovement_UnknownTypeCode() {
	body := `{"typeCode":"RETURN_IN","itemId":"BREAD","warehouseId":"WH02","quantity":"40"}`
	w := suite.do(http.MethodPost, "/api/v1/stock-movements", body)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockStock.AssertNotCalled(suite.T(), "RecordMovement")
}

func (suite *StockHandlerTestSuite) TestRecordMovement_Shortage() {
	suite.mockStock.On("RecordMovement", mock.Anything, mock.Anything, testUserID).
		Return(nil, domain.ErrInsufficientStock).Once()

	body := `{"typeCode":"MATERIAL_USED","itemId":"FLOUR","warehouseId":"WH01","quantity":"500"}`
	w := suite.do(http.MethodPost, "/api/v1/stock-movements", body)

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *StockHandlerTestSuite) TestReconcile_SinglePair() {
	key := domain.StockKey{ItemID: "FLOUR", WarehouseID: "WH01"}
	suite.mockReconcile.On("ReconcilePair", mock.Anything, key, true).Return(&dto.ReconciliationReport{
		ItemID:      "FLOUR",
		WarehouseID: "WH01",
		Repaired:    true,
	}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/stock-balances/reconcile", `{"itemId":"FLOUR","warehouseId":"WH01","repair":true}`)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ReconciliationReport
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Repaired)
	suite.mockReconcile.AssertNotCalled(suite.T(), "ReconcileAll")
}

func (suite *StockHandlerTestSuite) TestReconcile_AllRows() {
	suite.mockReconcile.On("ReconcileAll", mock.Anything, false).Return(&dto.ReconciliationSummary{
		Checked:      3,
		Inconsistent: 1,
	}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/stock-balances/reconcile", "")

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ReconciliationSummary
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(3, resp.Checked)
	suite.Equal(1, resp.Inconsistent)
}

func (suite *StockHandlerTestSuite) TestReconcile_HalfKey() {
	w := suite.do(http.MethodPost, "/api/v1/stock-balances/reconcile", `{"itemId":"FLOUR"}`)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockReconcile.AssertNotCalled(suite.T(), "ReconcilePair")
}

func TestStockHandler(t *testing.T) {
	suite.Run(t, new(StockHandlerTestSuite))
}
