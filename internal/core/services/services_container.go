package services

import (
	portsrepo "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/services"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(repos portsrepo.RepositoryProvider, opts ...ServiceOption) *portssvc.ServiceContainer {
	// Order edits and fulfillment transitions serialize on the same order locks,
	// so resolve the locker once and hand it to every service.
	o, _ := applyOptions(opts)
	shared := append(append([]ServiceOption{}, opts...), WithLocker(o.locker))

	return &portssvc.ServiceContainer{
		Order:          NewOrderService(repos.OrderRepo, repos.MasterDataRepo, shared...),
		Fulfillment:    NewFulfillmentService(repos, shared...),
		Stock:          NewStockService(repos.StockRepo, repos.MasterDataRepo, shared...),
		Reconciliation: NewReconciliationService(repos.StockRepo, shared...),
	}
}
