package services_test

import (
	"bytes"
	"testing"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"
)

type StockServiceTestSuite struct {
	engineSuite
}

func TestStockServiceTestSuite(t *testing.T) {
	suite.Run(t, new(StockServiceTestSuite))
}

func (s *StockServiceTestSuite) TestGetBalance() {
	resp, err := s.svc.Stock.GetBalance(s.ctx, dto.StockBalanceParams{ItemID: "FLOUR", WarehouseID: "WH01"})
	s.Require().NoError(err)
	requireQty(s.T(), 0, resp.StockQty)
	s.Equal(int64(0), resp.Version)
	s.True(resp.Shortage, "below the item minimum of 20")
	s.Equal("Dry store", resp.WarehouseName)

	s.receive(100, "WH01")
	resp, err = s.svc.Stock.GetBalance(s.ctx, dto.StockBalanceParams{ItemID: "FLOUR", WarehouseID: "WH01"})
	s.Require().NoError(err)
	requireQty(s.T(), 100, resp.StockQty)
	requireQty(s.T(), 100, resp.Available)
	s.False(resp.Shortage)
	s.Equal(int64(1), resp.Version)
	s.NotNil(resp.UpdatedAt)
}

func (s *StockServiceTestSuite) TestGetBalanceUnknownMasterData() {
	_, err := s.svc.Stock.GetBalance(s.ctx, dto.StockBalanceParams{ItemID: "SUGAR", WarehouseID: "WH01"})
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.svc.Stock.GetBalance(s.ctx, dto.StockBalanceParams{ItemID: "FLOUR", WarehouseID: "WH99"})
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *StockServiceTestSuite) TestListCandidateBalances() {
	s.receive(100, "WH04")

	candidates, err := s.svc.Stock.ListCandidateBalances(s.ctx, "FLOUR")
	s.Require().NoError(err)
	s.Require().Len(candidates, 2)
	s.Equal("WH01", candidates[0].WarehouseID)
	requireQty(s.T(), 0, candidates[0].StockQty)
	s.Equal("WH04", candidates[1].WarehouseID)
	s.Equal("Back room", candidates[1].WarehouseName)
	requireQty(s.T(), 100, candidates[1].Available)

	candidates, err = s.svc.Stock.ListCandidateBalances(s.ctx, "BREAD")
	s.Require().NoError(err)
	s.Require().Len(candidates, 2)
	s.Equal("WH02", candidates[0].WarehouseID)
	s.Equal("WH04", candidates[1].WarehouseID)

	_, err = s.svc.Stock.ListCandidateBalances(s.ctx, "SUGAR")
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *StockServiceTestSuite) TestListLedger() {
	s.receive(10, "WH01")
	s.receive(20, "WH01")
	s.receive(30, "WH01")

	page, err := s.svc.Stock.ListLedger(s.ctx, dto.ListStockLedgerParams{ItemID: "FLOUR", WarehouseID: "WH01", Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(page.Entries, 2)
	s.Equal(int64(3), page.Entries[0].Version)
	requireQty(s.T(), 60, page.Entries[0].ResultingBalance)
	s.Equal(int64(2), page.Entries[1].Version)
	s.Require().NotNil(page.NextToken)

	page, err = s.svc.Stock.ListLedger(s.ctx, dto.ListStockLedgerParams{ItemID: "FLOUR", WarehouseID: "WH01", Limit: 2, NextToken: *page.NextToken})
	s.Require().NoError(err)
	s.Require().Len(page.Entries, 1)
	s.Equal(int64(1), page.Entries[0].Version)
	s.Nil(page.NextToken)
}

func (s *StockServiceTestSuite) TestRecordMovement() {
	ref := "BATCH-7"
	entry, err := s.svc.Stock.RecordMovement(s.ctx, dto.RecordMovementRequest{
		TypeCode:      "production in",
		ItemID:        "BREAD",
		WarehouseID:   "WH02",
		Quantity:      qty(12),
		ReferenceCode: &ref,
	}, testUser)
	s.Require().NoError(err)
	s.Equal(domain.LedgerProductionIn, entry.Type)
	requireQty(s.T(), 12, entry.ResultingBalance)
	s.Equal(testUser, entry.CreatedBy)
	s.Equal(ref, *entry.ReferenceCode)

	marker, err := s.svc.Stock.RecordMovement(s.ctx, dto.RecordMovementRequest{
		TypeCode: "WAIT_IN", ItemID: "BREAD", WarehouseID: "WH02", Quantity: qty(5),
	}, testUser)
	s.Require().NoError(err)
	requireQty(s.T(), 0, marker.QtyDelta)
	requireQty(s.T(), 12, marker.ResultingBalance)
	s.Equal(int64(2), marker.Version)
}

func (s *StockServiceTestSuite) TestRecordMovementRejections() {
	s.receive(10, "WH01")
	tests := []struct {
		name    string
		req     dto.RecordMovementRequest
		wantErr error
	}{
		{"order-only type", dto.RecordMovementRequest{TypeCode: "PURCHASE_IN", ItemID: "FLOUR", WarehouseID: "WH01", Quantity: qty(1)}, apperrors.ErrValidation},
		{"unknown type", dto.RecordMovementRequest{TypeCode: "RETURN_IN", ItemID: "FLOUR", WarehouseID: "WH01", Quantity: qty(1)}, apperrors.ErrValidation},
		{"incompatible warehouse", dto.RecordMovementRequest{TypeCode: "PRODUCTION_IN", ItemID: "BREAD", WarehouseID: "WH01", Quantity: qty(1)}, apperrors.ErrValidation},
		{"inactive warehouse", dto.RecordMovementRequest{TypeCode: "PRODUCTION_IN", ItemID: "BREAD", WarehouseID: "WH03", Quantity: qty(1)}, apperrors.ErrValidation},
		{"unknown item", dto.RecordMovementRequest{TypeCode: "PRODUCTION_IN", ItemID: "SUGAR", WarehouseID: "WH04", Quantity: qty(1)}, apperrors.ErrNotFound},
		{"non-positive quantity", dto.RecordMovementRequest{TypeCode: "MATERIAL_USED", ItemID: "FLOUR", WarehouseID: "WH01", Quantity: qty(0)}, apperrors.ErrValidation},
		{"more than on hand", dto.RecordMovementRequest{TypeCode: "MATERIAL_USED", ItemID: "FLOUR", WarehouseID: "WH01", Quantity: qty(11)}, domain.ErrInsufficientStock},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.Stock.RecordMovement(s.ctx, tt.req, testUser)
			s.ErrorIs(err, tt.wantErr)
		})
	}
	requireQty(s.T(), 10, s.balance("FLOUR", "WH01").StockQty)
}

func (s *StockServiceTestSuite) TestExportLedger() {
	s.receive(100, "WH01")
	_, err := s.svc.Stock.RecordMovement(s.ctx, dto.RecordMovementRequest{
		TypeCode: "MATERIAL_USED", ItemID: "FLOUR", WarehouseID: "WH01", Quantity: qty(30), Remark: "morning bake",
	}, testUser)
	s.Require().NoError(err)

	var buf bytes.Buffer
	s.Require().NoError(s.svc.Stock.ExportLedger(s.ctx, dto.StockBalanceParams{ItemID: "FLOUR", WarehouseID: "WH01"}, &buf))

	f, err := excelize.OpenReader(&buf)
	s.Require().NoError(err)
	defer f.Close()
	rows, err := f.GetRows("Ledger")
	s.Require().NoError(err)
	s.Require().Len(rows, 3)
	s.Equal("Version", rows[0][0])
	s.Equal("PURCHASE_IN", rows[1][2])
	s.Equal("MATERIAL_USED", rows[2][2])
	s.Equal("70", rows[2][5])
	s.Equal("morning bake", rows[2][10])
}
