// Package memory is an in-process implementation of the repository ports.
// It backs the "memory" storage driver and the engine tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	portsrepo "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/repositories"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/locking"
)

type orderKey struct {
	kind domain.OrderKind
	code string
}

// Store keeps orders, the stock ledger and the balance projection in memory.
//
// mu guards the maps. Balance rows are additionally serialized through
// rowLocks, acquired in key order, so postings on different rows run in parallel.
type Store struct {
	mu       sync.RWMutex
	rowLocks *locking.KeyedMutex

	orders    map[orderKey]*domain.Order
	orderSeqs map[domain.OrderKind]int64

	balances map[domain.StockKey]domain.StockBalance
	ledger   map[domain.StockKey][]domain.StockLedgerEntry

	items      map[string]domain.Item
	warehouses map[string]domain.Warehouse

	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithItems seeds the item registry.
func WithItems(items ...domain.Item) Option {
	return func(s *Store) {
		for _, it := range items {
			s.items[it.ItemID] = it
		}
	}
}

// WithWarehouses seeds the warehouse registry.
func WithWarehouses(warehouses ...domain.Warehouse) Option {
	return func(s *Store) {
		for _, wh := range warehouses {
			s.warehouses[wh.WarehouseID] = wh
		}
	}
}

// WithIDGenerator overrides how ledger entry IDs are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		rowLocks:   locking.NewKeyedMutex(),
		orders:     make(map[orderKey]*domain.Order),
		orderSeqs:  make(map[domain.OrderKind]int64),
		balances:   make(map[domain.StockKey]domain.StockBalance),
		ledger:     make(map[domain.StockKey][]domain.StockLedgerEntry),
		items:      make(map[string]domain.Item),
		warehouses: make(map[string]domain.Warehouse),
		newID:      newEntryID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRepositoryProvider exposes one store through every repository port.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		OrderRepo:      store,
		StockRepo:      store,
		MasterDataRepo: store,
	}
}

// lockRows locks the balance rows of keys, which must be sorted.
func (s *Store) lockRows(ctx context.Context, keys []domain.StockKey) (func(), error) {
	unlocks := make([]func(), 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, key := range keys {
		unlock, err := s.rowLocks.Lock(ctx, "balance:"+key.String())
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

var (
	_ portsrepo.OrderRepositoryFacade = (*Store)(nil)
	_ portsrepo.StockRepositoryFacade = (*Store)(nil)
	_ portsrepo.MasterDataReader      = (*Store)(nil)
)
