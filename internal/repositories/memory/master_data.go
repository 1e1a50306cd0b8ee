package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// GetItem looks an item up in the seeded registry.
func (s *Store) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok {
		return nil, apperrors.NewNotFoundError("item " + itemID)
	}
	return &item, nil
}

// GetWarehouse looks a warehouse up in the seeded registry.
func (s *Store) GetWarehouse(ctx context.Context, warehouseID string) (*domain.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wh, ok := s.warehouses[warehouseID]
	if !ok {
		return nil, apperrors.NewNotFoundError("warehouse " + warehouseID)
	}
	return &wh, nil
}

// ListWarehouses returns every warehouse ordered by ID.
func (s *Store) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	s.mu.RLock()
	list := make([]domain.Warehouse, 0, len(s.warehouses))
	for _, wh := range s.warehouses {
		list = append(list, wh)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].WarehouseID < list[j].WarehouseID })
	return list, nil
}

type itemSeed struct {
	ItemID string `mapstructure:"itemId"`
	Name   string `mapstructure:"name"`
	Flag   string `mapstructure:"flag"`
	Unit   string `mapstructure:"unit"`
	MinQty string `mapstructure:"minQty"`
	MaxQty string `mapstructure:"maxQty"`
}

type warehouseSeed struct {
	WarehouseID string `mapstructure:"warehouseId"`
	Name        string `mapstructure:"name"`
	Type        string `mapstructure:"type"`
	Active      bool   `mapstructure:"active"`
}

// LoadMasterData reads a YAML or JSON registry file with "items" and
// "warehouses" lists, for running the memory driver without the master-data module.
func LoadMasterData(path string) ([]domain.Item, []domain.Warehouse, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("failed to read master data file %s: %w", path, err)
	}

	var itemSeeds []itemSeed
	if err := v.UnmarshalKey("items", &itemSeeds); err != nil {
		return nil, nil, fmt.Errorf("failed to decode items: %w", err)
	}
	var warehouseSeeds []warehouseSeed
	if err := v.UnmarshalKey("warehouses", &warehouseSeeds); err != nil {
		return nil, nil, fmt.Errorf("failed to decode warehouses: %w", err)
	}

	items := make([]domain.Item, 0, len(itemSeeds))
	for _, seed := range itemSeeds {
		minQty, err := parseQty(seed.MinQty)
		if err != nil {
			return nil, nil, fmt.Errorf("item %s minQty: %w", seed.ItemID, err)
		}
		maxQty, err := parseQty(seed.MaxQty)
		if err != nil {
			return nil, nil, fmt.Errorf("item %s maxQty: %w", seed.ItemID, err)
		}
		items = append(items, domain.Item{
			ItemID: seed.ItemID,
			Name:   seed.Name,
			Flag:   domain.ItemFlag(seed.Flag),
			Unit:   seed.Unit,
			MinQty: minQty,
			MaxQty: maxQty,
		})
	}

	warehouses := make([]domain.Warehouse, 0, len(warehouseSeeds))
	for _, seed := range warehouseSeeds {
		warehouses = append(warehouses, domain.Warehouse{
			WarehouseID: seed.WarehouseID,
			Name:        seed.Name,
			Type:        domain.WarehouseType(seed.Type),
			Active:      seed.Active,
		})
	}
	return items, warehouses, nil
}

func parseQty(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
