package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	portsrepo "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/repositories"
	"github.com/SscSPs/food_erp_fulfillment/internal/middleware"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/locking"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/SscSPs/food_erp_fulfillment/internal/core/services")

// BaseService provides common functionality for all services
type BaseService struct {
	now func() time.Time
}

func newBaseService() BaseService {
	return BaseService{now: func() time.Time { return time.Now().UTC() }}
}

// Now returns the service clock reading.
func (s *BaseService) Now() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now()
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	s.GetLogger(ctx).Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// logOutcome logs business rejections at info level and everything else as errors.
func (s *BaseService) logOutcome(ctx context.Context, err error, msg string, keyvals ...any) {
	if isBusinessError(err) {
		args := append([]any{slog.String("reason", err.Error())}, keyvals...)
		s.LogInfo(ctx, msg, args...)
		return
	}
	s.LogError(ctx, err, msg, keyvals...)
}

func isBusinessError(err error) bool {
	return errors.Is(err, apperrors.ErrValidation) ||
		errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrInvalidState) ||
		errors.Is(err, apperrors.ErrConflict)
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func validateKind(kind domain.OrderKind) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: unknown order kind %q", apperrors.ErrValidation, kind)
	}
	return nil
}

func orderLockKey(kind domain.OrderKind, code string) string {
	return fmt.Sprintf("order:%s:%s", kind, code)
}

// withOrderLock runs fn while holding the lock of one order.
func withOrderLock(ctx context.Context, locker locking.Locker, kind domain.OrderKind, code string, fn func() error) error {
	unlock, err := locker.Lock(ctx, orderLockKey(kind, code))
	if err != nil {
		if errors.Is(err, locking.ErrNotObtained) {
			return fmt.Errorf("%w: order %s is busy: %v", apperrors.ErrConflict, code, err)
		}
		return fmt.Errorf("%w: locking order %s: %v", apperrors.ErrInternal, code, err)
	}
	defer unlock()
	return fn()
}

// checkPlacement requires a known item and an existing, active warehouse that accepts it.
func checkPlacement(ctx context.Context, masterData portsrepo.MasterDataReader, itemID, warehouseID string) error {
	wh, err := masterData.GetWarehouse(ctx, warehouseID)
	if err != nil {
		return err
	}
	if !wh.Active {
		return fmt.Errorf("%w: warehouse %s is inactive", apperrors.ErrValidation, warehouseID)
	}
	item, err := masterData.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !wh.Accepts(item.Flag) {
		return fmt.Errorf("%w: %s warehouse %s does not accept %s item %s",
			apperrors.ErrValidation, wh.Type, warehouseID, item.Flag, itemID)
	}
	return nil
}
