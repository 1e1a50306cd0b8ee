package pgsql

import (
	portsrepo "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		OrderRepo:      newPgxOrderRepository(dbPool),
		StockRepo:      newPgxStockRepository(dbPool),
		MasterDataRepo: newPgxMasterDataRepository(dbPool),
	}
}
