package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	portsrepo "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/services"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/locking"
)

// orderService implements the structural edits of the order aggregate.
type orderService struct {
	BaseService
	orderRepo  portsrepo.OrderRepositoryFacade
	masterData portsrepo.MasterDataReader
	locker     locking.Locker
}

// NewOrderService creates a new order service.
func NewOrderService(orderRepo portsrepo.OrderRepositoryFacade, masterData portsrepo.MasterDataReader, opts ...ServiceOption) portssvc.OrderSvcFacade {
	o, base := applyOptions(opts)
	return &orderService{
		BaseService: base,
		orderRepo:   orderRepo,
		masterData:  masterData,
		locker:      o.locker,
	}
}

var _ portssvc.OrderSvcFacade = (*orderService)(nil)

func (s *orderService) GetOrder(ctx context.Context, kind domain.OrderKind, code string) (*domain.Order, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	order, err := s.orderRepo.FindOrderByCode(ctx, kind, code)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to load order", slog.String("order_code", code))
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, kind domain.OrderKind, params dto.ListOrdersParams) (*dto.ListOrdersResponse, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	var token *string
	if params.NextToken != "" {
		token = &params.NextToken
	}
	orders, next, err := s.orderRepo.ListOrders(ctx, kind, params.Limit, token)
	if err != nil {
		s.logOutcome(ctx, err, "Failed to list orders", slog.String("kind", string(kind)))
		return nil, err
	}
	return &dto.ListOrdersResponse{Orders: dto.ToOrderResponses(orders), NextToken: next}, nil
}

func (s *orderService) SaveOrder(ctx context.Context, kind domain.OrderKind, req dto.SaveOrderRequest, userID string) (*domain.Order, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	if req.Code == "" {
		return s.createOrder(ctx, kind, req, userID)
	}
	return s.updateOrder(ctx, kind, req, userID)
}

func (s *orderService) createOrder(ctx context.Context, kind domain.OrderKind, req dto.SaveOrderRequest, userID string) (*domain.Order, error) {
	lines := make([]domain.OrderLine, len(req.Lines))
	for i, lr := range req.Lines {
		if err := s.checkItem(ctx, lr.ItemID); err != nil {
			return nil, err
		}
		lines[i] = lr.ToDomainLine()
	}

	order, err := domain.NewOrder(kind, req.Header(), lines, s.Now(), userID)
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.CreateOrder(ctx, order); err != nil {
		s.LogError(ctx, err, "Failed to create order", slog.String("kind", string(kind)))
		return nil, err
	}

	s.LogInfo(ctx, "Order created",
		slog.String("order_code", order.Code),
		slog.Int("lines", len(order.Lines)),
		slog.String("user_id", userID))
	return order, nil
}

// updateOrder applies a full create-or-update payload: header edits, changed
// lines, new lines (SeqNo 0) and removal of lines missing from the payload.
func (s *orderService) updateOrder(ctx context.Context, kind domain.OrderKind, req dto.SaveOrderRequest, userID string) (*domain.Order, error) {
	var saved *domain.Order
	err := withOrderLock(ctx, s.locker, kind, req.Code, func() error {
		order, err := s.orderRepo.FindOrderByCode(ctx, kind, req.Code)
		if err != nil {
			return err
		}
		if req.Version != nil && *req.Version != order.Version {
			return fmt.Errorf("%w: order %s is at version %d, request was based on %d",
				apperrors.ErrConflict, order.Code, order.Version, *req.Version)
		}

		now := s.Now()
		if err := order.UpdateHeader(req.Header(), now, userID); err != nil {
			return err
		}

		kept := make(map[int]bool, len(req.Lines))
		var added []domain.OrderLine
		for _, lr := range req.Lines {
			if lr.SeqNo == 0 {
				added = append(added, lr.ToDomainLine())
				continue
			}
			line, err := order.Line(lr.SeqNo)
			if err != nil {
				return err
			}
			kept[lr.SeqNo] = true
			if lineUnchanged(*line, lr) {
				continue
			}
			if err := s.checkItem(ctx, lr.ItemID); err != nil {
				return err
			}
			if err := order.UpdateLine(lr.SeqNo, lr.ToDomainLine(), now, userID); err != nil {
				return err
			}
		}

		for _, l := range added {
			if err := s.checkItem(ctx, l.ItemID); err != nil {
				return err
			}
			newLine, err := order.AddLine(l, now, userID)
			if err != nil {
				return err
			}
			kept[newLine.SeqNo] = true
		}

		var removed []int
		for _, l := range order.Lines {
			if !kept[l.SeqNo] {
				removed = append(removed, l.SeqNo)
			}
		}
		for _, seq := range removed {
			if err := order.RemoveLine(seq, now, userID); err != nil {
				return err
			}
		}

		if err := s.orderRepo.UpdateOrder(ctx, order); err != nil {
			return err
		}
		saved = order
		return nil
	})
	if err != nil {
		s.logOutcome(ctx, err, "Failed to update order", slog.String("order_code", req.Code))
		return nil, err
	}
	return saved, nil
}

func (s *orderService) AddLine(ctx context.Context, kind domain.OrderKind, code string, req dto.OrderLineRequest, userID string) (*domain.Order, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	if err := s.checkItem(ctx, req.ItemID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, kind, code, "add line", func(order *domain.Order) error {
		_, err := order.AddLine(req.ToDomainLine(), s.Now(), userID)
		return err
	})
}

func (s *orderService) RemoveLine(ctx context.Context, kind domain.OrderKind, code string, seqNo int, userID string) (*domain.Order, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	return s.mutate(ctx, kind, code, "remove line", func(order *domain.Order) error {
		return order.RemoveLine(seqNo, s.Now(), userID)
	})
}

// mutate loads the order under its lock, applies fn and saves the result.
func (s *orderService) mutate(ctx context.Context, kind domain.OrderKind, code, action string, fn func(*domain.Order) error) (*domain.Order, error) {
	var saved *domain.Order
	err := withOrderLock(ctx, s.locker, kind, code, func() error {
		order, err := s.orderRepo.FindOrderByCode(ctx, kind, code)
		if err != nil {
			return err
		}
		if err := fn(order); err != nil {
			return err
		}
		if err := s.orderRepo.UpdateOrder(ctx, order); err != nil {
			return err
		}
		saved = order
		return nil
	})
	if err != nil {
		s.logOutcome(ctx, err, "Order "+action+" failed", slog.String("order_code", code))
		return nil, err
	}
	return saved, nil
}

// checkItem rejects lines for items the registry does not know.
func (s *orderService) checkItem(ctx context.Context, itemID string) error {
	if _, err := s.masterData.GetItem(ctx, itemID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: unknown item %s", apperrors.ErrValidation, itemID)
		}
		return err
	}
	return nil
}

func lineUnchanged(l domain.OrderLine, req dto.OrderLineRequest) bool {
	return l.ItemID == req.ItemID &&
		l.Quantity.Equal(req.Quantity) &&
		l.UnitCost.Equal(req.UnitCost) &&
		l.Remark == req.Remark
}
