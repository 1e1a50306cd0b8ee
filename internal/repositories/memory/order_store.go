package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/SscSPs/food_erp_fulfillment/internal/utils/pagination"
)

// FindOrderByCode returns a copy of the stored order.
func (s *Store) FindOrderByCode(ctx context.Context, kind domain.OrderKind, code string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderKey{kind, code}]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("%s order %s", kind, code))
	}
	return order.Clone(), nil
}

// ListOrders returns orders of kind ordered by (CreatedAt, Code) descending.
func (s *Store) ListOrders(ctx context.Context, kind domain.OrderKind, limit int, nextToken *string) ([]domain.Order, *string, error) {
	limit = pagination.NormalizeLimit(limit)

	s.mu.RLock()
	all := make([]domain.Order, 0, len(s.orders))
	for k, o := range s.orders {
		if k.kind == kind {
			all = append(all, *o.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Code > all[j].Code
	})

	start := 0
	if nextToken != nil && *nextToken != "" {
		afterTime, afterCode, err := pagination.DecodeOrderToken(*nextToken)
		if err != nil {
			return nil, nil, err
		}
		start = sort.Search(len(all), func(i int) bool {
			o := all[i]
			return o.CreatedAt.Before(afterTime) || (o.CreatedAt.Equal(afterTime) && o.Code < afterCode)
		})
	}

	page := all[start:]
	var next *string
	if len(page) > limit {
		page = page[:limit]
		last := page[len(page)-1]
		token := pagination.EncodeOrderToken(last.CreatedAt, last.Code)
		next = &token
	}
	return page, next, nil
}

// CreateOrder assigns the next code of the order's kind and stores the order at version 1.
func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orderSeqs[order.Kind]++
	if err := order.AssignCode(order.Kind.FormatOrderCode(order.CreatedAt, s.orderSeqs[order.Kind])); err != nil {
		return err
	}
	key := orderKey{order.Kind, order.Code}
	if _, exists := s.orders[key]; exists {
		return fmt.Errorf("%w: order %s", apperrors.ErrDuplicate, order.Code)
	}
	order.Version = 1
	s.orders[key] = order.Clone()
	return nil
}

// UpdateOrder replaces the stored order under the optimistic version check.
func (s *Store) UpdateOrder(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveOrderLocked(order)
}

// saveOrderLocked requires s.mu held for writing.
func (s *Store) saveOrderLocked(order *domain.Order) error {
	key := orderKey{order.Kind, order.Code}
	stored, ok := s.orders[key]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("%s order %s", order.Kind, order.Code))
	}
	if stored.Version != order.Version {
		return fmt.Errorf("%w: order %s was modified concurrently (version %d, stored %d)",
			apperrors.ErrConflict, order.Code, order.Version, stored.Version)
	}
	order.Version++
	s.orders[key] = order.Clone()
	return nil
}
