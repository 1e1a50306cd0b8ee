package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	portsrepo "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/services"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/metrics"
	"github.com/SscSPs/food_erp_fulfillment/internal/utils/pagination"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
)

const ledgerSheet = "Ledger"

var ledgerSheetHeaders = []string{
	"Version", "Timestamp", "Type", "Qty Delta", "Alloc Delta",
	"Resulting Balance", "Resulting Alloc", "Reference", "Line", "Counterparty", "Remark", "Created By",
}

// stockService serves balance reads, ledger history and manual postings.
type stockService struct {
	BaseService
	stockRepo  portsrepo.StockRepositoryFacade
	masterData portsrepo.MasterDataReader
	poster     *ledgerPoster
}

// NewStockService creates a new stock service.
func NewStockService(stockRepo portsrepo.StockRepositoryFacade, masterData portsrepo.MasterDataReader, opts ...ServiceOption) portssvc.StockSvcFacade {
	o, base := applyOptions(opts)
	return &stockService{
		BaseService: base,
		stockRepo:   stockRepo,
		masterData:  masterData,
		poster:      newLedgerPoster(base, stockRepo, o.publisher),
	}
}

var _ portssvc.StockSvcFacade = (*stockService)(nil)

func (s *stockService) GetBalance(ctx context.Context, params dto.StockBalanceParams) (*dto.StockBalanceResponse, error) {
	item, err := s.masterData.GetItem(ctx, params.ItemID)
	if err != nil {
		return nil, err
	}
	wh, err := s.masterData.GetWarehouse(ctx, params.WarehouseID)
	if err != nil {
		return nil, err
	}

	balance, err := s.findBalanceOrZero(ctx, params.Key())
	if err != nil {
		return nil, err
	}
	resp := dto.ToStockBalanceResponse(balance, item)
	resp.WarehouseName = wh.Name
	return &resp, nil
}

func (s *stockService) ListCandidateBalances(ctx context.Context, itemID string) ([]dto.StockBalanceResponse, error) {
	item, err := s.masterData.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	warehouses, err := s.masterData.ListWarehouses(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list warehouses")
		return nil, err
	}
	rows, err := s.stockRepo.FindBalancesByItem(ctx, itemID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load balances", slog.String("item_id", itemID))
		return nil, err
	}
	byWarehouse := make(map[string]domain.StockBalance, len(rows))
	for _, b := range rows {
		byWarehouse[b.Key.WarehouseID] = b
	}

	candidates := make([]dto.StockBalanceResponse, 0, len(warehouses))
	for _, wh := range warehouses {
		if !wh.Active || !wh.Accepts(item.Flag) {
			continue
		}
		b, ok := byWarehouse[wh.WarehouseID]
		if !ok {
			b = domain.NewStockBalance(domain.StockKey{ItemID: itemID, WarehouseID: wh.WarehouseID})
		}
		resp := dto.ToStockBalanceResponse(b, item)
		resp.WarehouseName = wh.Name
		candidates = append(candidates, resp)
	}
	return candidates, nil
}

func (s *stockService) ListLedger(ctx context.Context, params dto.ListStockLedgerParams) (*dto.ListStockLedgerResponse, error) {
	var token *string
	if params.NextToken != "" {
		token = &params.NextToken
	}
	key := domain.StockKey{ItemID: params.ItemID, WarehouseID: params.WarehouseID}
	entries, next, err := s.stockRepo.ListLedgerEntries(ctx, key, params.Limit, token)
	if err != nil {
		s.logOutcome(ctx, err, "Failed to list ledger entries", slog.String("stock_key", key.String()))
		return nil, err
	}
	return &dto.ListStockLedgerResponse{
		Entries:   dto.ToStockLedgerEntryResponses(entries),
		NextToken: next,
	}, nil
}

func (s *stockService) ExportLedger(ctx context.Context, params dto.StockBalanceParams, w io.Writer) error {
	key := params.Key()
	entries, err := s.allLedgerEntries(ctx, key)
	if err != nil {
		s.logOutcome(ctx, err, "Failed to read ledger for export", slog.String("stock_key", key.String()))
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return fmt.Errorf("failed to prepare workbook: %w", err)
	}
	for col, h := range ledgerSheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(ledgerSheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	// oldest first, the order a stock card is read in
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		row := len(entries) - i + 1
		values := []any{
			e.Version,
			e.Timestamp,
			string(e.Type),
			e.QtyDelta.InexactFloat64(),
			e.AllocDelta.InexactFloat64(),
			e.ResultingBalance.InexactFloat64(),
			e.ResultingAlloc.InexactFloat64(),
			deref(e.ReferenceCode),
			e.LineSeqNo,
			deref(e.CounterpartyRef),
			e.Remark,
			e.CreatedBy,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(ledgerSheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	s.LogInfo(ctx, "Ledger exported", slog.String("stock_key", key.String()), slog.Int("entries", len(entries)))
	return nil
}

// allLedgerEntries pages through the full ledger of key, newest first.
func (s *stockService) allLedgerEntries(ctx context.Context, key domain.StockKey) ([]domain.StockLedgerEntry, error) {
	var all []domain.StockLedgerEntry
	var token *string
	for {
		page, next, err := s.stockRepo.ListLedgerEntries(ctx, key, pagination.MaxLimit, token)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == nil {
			return all, nil
		}
		token = next
	}
}

func (s *stockService) RecordMovement(ctx context.Context, req dto.RecordMovementRequest, userID string) (entry *domain.StockLedgerEntry, err error) {
	ctx, span := startSpan(ctx, "stock.record_movement",
		attribute.String("stock.item_id", req.ItemID),
		attribute.String("stock.warehouse_id", req.WarehouseID),
		attribute.String("stock.type", req.TypeCode))
	defer func() {
		metrics.ObserveOperation("record_movement", err)
		endSpan(span, err)
		if err != nil {
			s.logOutcome(ctx, err, "Manual stock movement rejected",
				slog.String("type", req.TypeCode),
				slog.String("item_id", req.ItemID),
				slog.String("warehouse_id", req.WarehouseID))
		}
	}()

	ledgerType, err := domain.ParseLedgerType(req.TypeCode)
	if err != nil {
		return nil, err
	}
	if !ledgerType.IsManual() {
		return nil, fmt.Errorf("%w: %s entries are posted by order flows only", apperrors.ErrValidation, ledgerType)
	}
	if err := checkPlacement(ctx, s.masterData, req.ItemID, req.WarehouseID); err != nil {
		return nil, err
	}

	now := s.Now()
	entries, err := s.poster.post(ctx, domain.PostingBatch{
		Movements: []domain.StockMovement{{
			Type:          ledgerType,
			Key:           domain.StockKey{ItemID: req.ItemID, WarehouseID: req.WarehouseID},
			Quantity:      req.Quantity,
			ReferenceCode: req.ReferenceCode,
			Remark:        req.Remark,
		}},
		PostedAt: now,
		PostedBy: userID,
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Manual stock movement recorded",
		slog.String("type", string(ledgerType)),
		slog.String("stock_key", entries[0].Key.String()),
		slog.String("user_id", userID))
	return &entries[0], nil
}

func (s *stockService) findBalanceOrZero(ctx context.Context, key domain.StockKey) (domain.StockBalance, error) {
	b, err := s.stockRepo.FindBalance(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewStockBalance(key), nil
		}
		s.LogError(ctx, err, "Failed to load stock balance", slog.String("stock_key", key.String()))
		return domain.StockBalance{}, err
	}
	return *b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
