package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	portsrepo "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/services"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/events"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/locking"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/metrics"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// Operation names used in metrics, spans and events.
const (
	opConfirm         = "confirm"
	opAssignWarehouse = "assign_warehouse"
	opReserve         = "reserve"
	opCommit          = "commit"
	opCancel          = "cancel"
	opCancelLine      = "cancel_line"
)

// fulfillmentService drives line transitions and the ledger postings they imply.
//
// Every operation runs under the order lock and ends in exactly one
// PostMovements call, which saves the order and its ledger entries together.
type fulfillmentService struct {
	BaseService
	orderRepo  portsrepo.OrderRepositoryFacade
	masterData portsrepo.MasterDataReader
	locker     locking.Locker
	poster     *ledgerPoster
}

// transition mutates a working copy of the order and returns the movements to
// post. changed=false means the call is a successful no-op.
type transition func(order *domain.Order, now time.Time) (movements []domain.StockMovement, changed bool, err error)

// NewFulfillmentService creates the fulfillment engine.
func NewFulfillmentService(repos portsrepo.RepositoryProvider, opts ...ServiceOption) portssvc.FulfillmentSvcFacade {
	o, base := applyOptions(opts)
	return &fulfillmentService{
		BaseService: base,
		orderRepo:   repos.OrderRepo,
		masterData:  repos.MasterDataRepo,
		locker:      o.locker,
		poster:      newLedgerPoster(base, repos.StockRepo, o.publisher),
	}
}

var _ portssvc.FulfillmentSvcFacade = (*fulfillmentService)(nil)

func (s *fulfillmentService) Confirm(ctx context.Context, kind domain.OrderKind, code string, req dto.ConfirmOrderRequest, userID string) (*domain.Order, error) {
	res, err := s.run(ctx, opConfirm, kind, code, userID, func(order *domain.Order, now time.Time) ([]domain.StockMovement, bool, error) {
		_, err := order.Confirm(req.SeqNos, now, userID)
		return nil, err == nil, err
	})
	if err != nil {
		return nil, err
	}
	return res.Order, nil
}

func (s *fulfillmentService) AssignWarehouse(ctx context.Context, kind domain.OrderKind, code string, seqNo int, req dto.AssignWarehouseRequest, userID string) (*domain.Order, error) {
	res, err := s.run(ctx, opAssignWarehouse, kind, code, userID, func(order *domain.Order, now time.Time) ([]domain.StockMovement, bool, error) {
		line, err := order.Line(seqNo)
		if err != nil {
			return nil, false, err
		}
		if err := checkPlacement(ctx, s.masterData, line.ItemID, req.WarehouseID); err != nil {
			return nil, false, err
		}
		if err := order.AssignWarehouse(seqNo, req.WarehouseID, now, userID); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	})
	if err != nil {
		return nil, err
	}
	return res.Order, nil
}

func (s *fulfillmentService) Reserve(ctx context.Context, code string, userID string) (*domain.PostingResult, error) {
	return s.run(ctx, opReserve, domain.SalesOrder, code, userID, func(order *domain.Order, now time.Time) ([]domain.StockMovement, bool, error) {
		var movements []domain.StockMovement
		staged := 0
		for _, line := range order.Lines {
			if line.Status != domain.LineConfirmed || line.WarehouseID == nil {
				continue
			}
			staged++
			if line.HasReservation() && *line.ReservedWarehouseID == *line.WarehouseID && line.ReservedQty.Equal(line.Quantity) {
				continue
			}
			if line.HasReservation() {
				movements = append(movements, lineMovement(order, line, domain.LedgerUnreserve, *line.ReservedWarehouseID, line.ReservedQty, "reservation moved"))
			}
			movements = append(movements, lineMovement(order, line, domain.LedgerReserve, *line.WarehouseID, line.Quantity, ""))
			if err := order.MarkReserved(line.SeqNo, *line.WarehouseID, line.Quantity, now, userID); err != nil {
				return nil, false, err
			}
		}
		if staged == 0 {
			return nil, false, apperrors.NewStateError("order", order.Code, string(order.Status()), "reserve stock for")
		}
		return movements, len(movements) > 0, nil
	})
}

func (s *fulfillmentService) Commit(ctx context.Context, kind domain.OrderKind, code string, userID string) (*domain.PostingResult, error) {
	return s.run(ctx, opCommit, kind, code, userID, func(order *domain.Order, now time.Time) ([]domain.StockMovement, bool, error) {
		var pending []domain.OrderLine
		done := 0
		for _, line := range order.Lines {
			switch {
			case line.Status == domain.LineConfirmed:
				pending = append(pending, line)
			case line.Status.IsDone():
				done++
			}
		}
		if len(pending) == 0 {
			if done > 0 {
				return nil, false, nil
			}
			return nil, false, apperrors.NewStateError("order", order.Code, string(order.Status()), "commit")
		}

		// all staged or nothing
		for _, line := range pending {
			if line.WarehouseID == nil {
				return nil, false, apperrors.NewStateError("order line", fmt.Sprintf("%s#%d", order.Code, line.SeqNo),
					string(line.Status)+" without warehouse", "commit")
			}
		}

		movements := make([]domain.StockMovement, 0, len(pending)*2)
		for _, line := range pending {
			if order.Kind == domain.SalesOrder && line.HasReservation() {
				movements = append(movements, lineMovement(order, line, domain.LedgerUnreserve, *line.ReservedWarehouseID, line.ReservedQty, "released on shipment"))
			}
			movements = append(movements, lineMovement(order, line, order.Kind.CommitLedgerType(), *line.WarehouseID, line.Quantity, ""))
			if err := order.CompleteLine(line.SeqNo, now, userID); err != nil {
				return nil, false, err
			}
		}
		return movements, true, nil
	})
}

func (s *fulfillmentService) Cancel(ctx context.Context, kind domain.OrderKind, code string, req dto.CancelOrderRequest, userID string) (*domain.PostingResult, error) {
	return s.run(ctx, opCancel, kind, code, userID, func(order *domain.Order, now time.Time) ([]domain.StockMovement, bool, error) {
		open, cancelled := 0, 0
		for _, line := range order.Lines {
			switch {
			case line.Status.IsOpen():
				open++
			case line.Status == domain.LineCancelled:
				cancelled++
			}
		}
		if open == 0 {
			// a retried cancel finds every open line already cancelled
			if cancelled > 0 {
				return nil, false, nil
			}
			return nil, false, apperrors.NewStateError("order", order.Code, string(order.Status()), "cancel")
		}

		var movements []domain.StockMovement
		for _, line := range order.Lines {
			if !line.Status.IsOpen() {
				continue
			}
			if line.HasReservation() {
				movements = append(movements, lineMovement(order, line, domain.LedgerUnreserve, *line.ReservedWarehouseID, line.ReservedQty, "released on cancel"))
			}
			if err := order.CancelLine(line.SeqNo, req.Reason, now, userID); err != nil {
				return nil, false, err
			}
		}
		return movements, true, nil
	})
}

func (s *fulfillmentService) CancelLine(ctx context.Context, kind domain.OrderKind, code string, seqNo int, req dto.CancelOrderRequest, userID string) (*domain.PostingResult, error) {
	return s.run(ctx, opCancelLine, kind, code, userID, func(order *domain.Order, now time.Time) ([]domain.StockMovement, bool, error) {
		line, err := order.Line(seqNo)
		if err != nil {
			return nil, false, err
		}
		before := *line

		if err := order.CancelLine(seqNo, req.Reason, now, userID); err != nil {
			return nil, false, err
		}
		var movements []domain.StockMovement
		if before.HasReservation() {
			movements = append(movements, lineMovement(order, before, domain.LedgerUnreserve, *before.ReservedWarehouseID, before.ReservedQty, "released on cancel"))
		}
		return movements, true, nil
	})
}

// run executes one engine operation: lock, load, transition, post, announce.
func (s *fulfillmentService) run(ctx context.Context, op string, kind domain.OrderKind, code, userID string, fn transition) (*domain.PostingResult, error) {
	ctx, span := startSpan(ctx, "fulfillment."+op,
		attribute.String("order.kind", string(kind)),
		attribute.String("order.code", code))

	var result *domain.PostingResult
	applied := false
	err := validateKind(kind)
	if err == nil {
		err = withOrderLock(ctx, s.locker, kind, code, func() error {
			order, err := s.orderRepo.FindOrderByCode(ctx, kind, code)
			if err != nil {
				return err
			}

			now := s.Now()
			working := order.Clone()
			movements, changed, err := fn(working, now)
			if err != nil {
				return err
			}
			if !changed {
				result = &domain.PostingResult{Order: order}
				return nil
			}

			entries, err := s.poster.post(ctx, domain.PostingBatch{
				Order:     working,
				Movements: movements,
				PostedAt:  now,
				PostedBy:  userID,
			})
			if err != nil {
				return err
			}
			result = &domain.PostingResult{Order: working, Entries: entries}
			applied = true
			return nil
		})
	}

	metrics.ObserveOperation(op, err)
	if err == nil {
		span.SetAttributes(attribute.Int("ledger.entries", len(result.Entries)))
	}
	endSpan(span, err)
	if err != nil {
		s.logOutcome(ctx, err, "Fulfillment operation rejected",
			slog.String("operation", op),
			slog.String("order_code", code))
		return nil, err
	}

	if !applied {
		s.LogDebug(ctx, "Fulfillment operation changed nothing",
			slog.String("operation", op),
			slog.String("order_code", code),
			slog.String("status", string(result.Order.Status())))
		return result, nil
	}

	s.LogInfo(ctx, "Fulfillment operation applied",
		slog.String("operation", op),
		slog.String("order_code", code),
		slog.String("status", string(result.Order.Status())),
		slog.Int("ledger_entries", len(result.Entries)),
		slog.String("user_id", userID))
	s.poster.publish(ctx, events.RoutingOrderTransition, events.OrderTransitioned{
		Kind:      string(kind),
		Code:      code,
		Operation: op,
		Status:    string(result.Order.Status()),
		Version:   result.Order.Version,
		Actor:     userID,
		At:        s.Now(),
	})
	return result, nil
}

func lineMovement(order *domain.Order, line domain.OrderLine, t domain.LedgerType, warehouseID string, qty decimal.Decimal, remark string) domain.StockMovement {
	code := order.Code
	counterparty := order.CounterpartyID
	if remark == "" {
		remark = line.Remark
	}
	return domain.StockMovement{
		Type:            t,
		Key:             domain.StockKey{ItemID: line.ItemID, WarehouseID: warehouseID},
		Quantity:        qty,
		CounterpartyRef: &counterparty,
		ReferenceCode:   &code,
		LineSeqNo:       line.SeqNo,
		Remark:          remark,
	}
}
