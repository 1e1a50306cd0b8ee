package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
)

// StockBalanceReader defines read operations on the balance projection
type StockBalanceReader interface {
	// FindBalance returns the balance row for key, or apperrors.ErrNotFound if
	// nothing was ever posted for it.
	FindBalance(ctx context.Context, key domain.StockKey) (*domain.StockBalance, error)

	// FindBalancesByItem returns every existing balance row of an item.
	FindBalancesByItem(ctx context.Context, itemID string) ([]domain.StockBalance, error)

	// ListBalanceKeys returns the keys of every balance row.
	ListBalanceKeys(ctx context.Context) ([]domain.StockKey, error)
}

// StockLedgerReader defines read operations on the append-only ledger
type StockLedgerReader interface {
	// ListLedgerEntries returns entries for key newest first using token-based pagination.
	ListLedgerEntries(ctx context.Context, key domain.StockKey, limit int, nextToken *string) ([]domain.StockLedgerEntry, *string, error)

	// FindLedgerEntriesByReference returns every entry posted for an order code, oldest first.
	FindLedgerEntriesByReference(ctx context.Context, referenceCode string) ([]domain.StockLedgerEntry, error)
}

// StockPoster is the only writer of ledger entries and balance rows.
type StockPoster interface {
	// PostMovements applies the batch as one unit of work: the touched balance rows
	// are locked in key order, every movement is applied and recorded, and
	// batch.Order (when set) is saved under its version check. Nothing is
	// written if any step fails.
	PostMovements(ctx context.Context, batch domain.PostingBatch) ([]domain.StockLedgerEntry, error)

	// FlagBalance marks a row for reconciliation. The row is created if missing.
	FlagBalance(ctx context.Context, key domain.StockKey, reason string, at time.Time) error

	// ReplayBalance replays the ledger of key under the row lock. With repair set
	// and a self-consistent ledger, the row is rewritten from the replay and unflagged.
	// The stored balance before any repair is returned alongside the replay.
	ReplayBalance(ctx context.Context, key domain.StockKey, repair bool, at time.Time) (domain.ReplayResult, *domain.StockBalance, error)
}

// StockRepositoryFacade combines all stock-related repository interfaces
type StockRepositoryFacade interface {
	StockBalanceReader
	StockLedgerReader
	StockPoster
}
