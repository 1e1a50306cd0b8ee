package services

import (
	"context"
	"io"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
)

// StockReaderSvc defines read operations on balances and the ledger
type StockReaderSvc interface {
	// GetBalance returns the balance of one (item, warehouse); unposted pairs read as zero.
	GetBalance(ctx context.Context, params dto.StockBalanceParams) (*dto.StockBalanceResponse, error)

	// ListCandidateBalances returns the balance of the item in every active, compatible warehouse.
	ListCandidateBalances(ctx context.Context, itemID string) ([]dto.StockBalanceResponse, error)

	// ListLedger returns ledger entries newest first.
	ListLedger(ctx context.Context, params dto.ListStockLedgerParams) (*dto.ListStockLedgerResponse, error)

	// ExportLedger writes the full ledger of one pair as an XLSX workbook.
	ExportLedger(ctx context.Context, params dto.StockBalanceParams, w io.Writer) error
}

// StockWriterSvc defines manual postings outside the order flows
type StockWriterSvc interface {
	// RecordMovement posts a PRODUCTION_IN, MATERIAL_USED, WAIT_IN or WAIT_OUT entry.
	RecordMovement(ctx context.Context, req dto.RecordMovementRequest, userID string) (*domain.StockLedgerEntry, error)
}

// StockSvcFacade combines all stock-related service interfaces
type StockSvcFacade interface {
	StockReaderSvc
	StockWriterSvc
}

// ReconciliationSvc rebuilds balance rows from the ledger.
type ReconciliationSvc interface {
	// ReconcilePair checks one row, repairing it from the ledger when repair is set.
	ReconcilePair(ctx context.Context, key domain.StockKey, repair bool) (*dto.ReconciliationReport, error)

	// ReconcileAll checks every row with bounded parallelism.
	ReconcileAll(ctx context.Context, repair bool) (*dto.ReconciliationSummary, error)
}
