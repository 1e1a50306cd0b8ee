package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	portsrepo "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/services"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/metrics"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// reconciliationService rebuilds balance rows from the ledger.
type reconciliationService struct {
	BaseService
	stockRepo   portsrepo.StockRepositoryFacade
	poster      *ledgerPoster
	parallelism int
}

// NewReconciliationService creates the reconciliation job.
func NewReconciliationService(stockRepo portsrepo.StockRepositoryFacade, opts ...ServiceOption) portssvc.ReconciliationSvc {
	o, base := applyOptions(opts)
	return &reconciliationService{
		BaseService: base,
		stockRepo:   stockRepo,
		poster:      newLedgerPoster(base, stockRepo, o.publisher),
		parallelism: o.parallelism,
	}
}

var _ portssvc.ReconciliationSvc = (*reconciliationService)(nil)

func (s *reconciliationService) ReconcilePair(ctx context.Context, key domain.StockKey, repair bool) (*dto.ReconciliationReport, error) {
	ctx, span := startSpan(ctx, "reconciliation.pair",
		attribute.String("stock.key", key.String()),
		attribute.Bool("reconciliation.repair", repair))

	now := s.Now()
	result, stored, err := s.stockRepo.ReplayBalance(ctx, key, repair, now)
	if err != nil {
		endSpan(span, err)
		s.LogError(ctx, err, "Failed to replay stock ledger", slog.String("stock_key", key.String()))
		return nil, err
	}

	report := &dto.ReconciliationReport{
		ItemID:         key.ItemID,
		WarehouseID:    key.WarehouseID,
		EntryCount:     result.EntryCount,
		LedgerStockQty: result.StockQty,
		LedgerAllocQty: result.AllocQty,
		StoredStockQty: stored.StockQty,
		StoredAllocQty: stored.AllocQty,
		Mismatches:     result.Mismatches,
	}
	matches := result.Matches(*stored)
	if !matches {
		report.Mismatches = append(report.Mismatches, fmt.Sprintf(
			"stored row has stock %s alloc %s version %d, ledger gives stock %s alloc %s version %d",
			stored.StockQty, stored.AllocQty, stored.Version, result.StockQty, result.AllocQty, result.Version))
	}
	report.Consistent = result.IsConsistent() && matches && !stored.Flagged

	switch {
	case report.Consistent:
		metrics.ReconciledBalancesTotal.WithLabelValues("consistent").Inc()
	case repair && result.IsConsistent():
		// the repository already rewrote the row from the replay
		report.Repaired = true
		metrics.ReconciledBalancesTotal.WithLabelValues("repaired").Inc()
		s.LogInfo(ctx, "Stock balance repaired from ledger", slog.String("stock_key", key.String()))
	default:
		report.Flagged = true
		reason := "reconciliation mismatch"
		if len(report.Mismatches) > 0 {
			reason = report.Mismatches[0]
		}
		s.poster.flag(ctx, key, reason, now)
		metrics.ReconciledBalancesTotal.WithLabelValues("flagged").Inc()
	}

	span.SetAttributes(attribute.Bool("reconciliation.consistent", report.Consistent))
	endSpan(span, nil)
	return report, nil
}

func (s *reconciliationService) ReconcileAll(ctx context.Context, repair bool) (*dto.ReconciliationSummary, error) {
	keys, err := s.stockRepo.ListBalanceKeys(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list stock balance keys")
		return nil, err
	}

	reports := make([]*dto.ReconciliationReport, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			report, err := s.ReconcilePair(gctx, key, repair)
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", key, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &dto.ReconciliationSummary{Checked: len(keys)}
	for _, r := range reports {
		if r.Consistent {
			continue
		}
		summary.Inconsistent++
		if r.Repaired {
			summary.Repaired++
		}
		summary.Reports = append(summary.Reports, *r)
	}

	s.LogInfo(ctx, "Reconciliation finished",
		slog.Int("checked", summary.Checked),
		slog.Int("inconsistent", summary.Inconsistent),
		slog.Int("repaired", summary.Repaired),
		slog.Bool("repair", repair))
	return summary, nil
}

// RunReconciliation calls ReconcileAll every interval until ctx is done.
func RunReconciliation(ctx context.Context, svc portssvc.ReconciliationSvc, interval time.Duration, repair bool, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Reconciliation job started", slog.Duration("interval", interval), slog.Bool("repair", repair))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Reconciliation job stopped")
			return
		case <-ticker.C:
			if _, err := svc.ReconcileAll(ctx, repair); err != nil && ctx.Err() == nil {
				logger.Error("Reconciliation run failed", slog.String("error", err.Error()))
			}
		}
	}
}
