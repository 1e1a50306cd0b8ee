package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	portsrepo "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/repositories"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/events"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/metrics"
)

// ledgerPoster is the single path from services to StockPoster. It flags rows
// that fail with a ConsistencyError and announces what was posted.
type ledgerPoster struct {
	BaseService
	stockRepo portsrepo.StockRepositoryFacade
	publisher events.Publisher
}

func newLedgerPoster(base BaseService, stockRepo portsrepo.StockRepositoryFacade, publisher events.Publisher) *ledgerPoster {
	return &ledgerPoster{BaseService: base, stockRepo: stockRepo, publisher: publisher}
}

func (p *ledgerPoster) post(ctx context.Context, batch domain.PostingBatch) ([]domain.StockLedgerEntry, error) {
	entries, err := p.stockRepo.PostMovements(ctx, batch)
	if err != nil {
		var consErr *apperrors.ConsistencyError
		if errors.As(err, &consErr) {
			p.flag(ctx, domain.StockKey{ItemID: consErr.ItemID, WarehouseID: consErr.WarehouseID}, consErr.Reason, batch.PostedAt)
		}
		return nil, err
	}

	for _, e := range entries {
		metrics.LedgerEntriesTotal.WithLabelValues(string(e.Type)).Inc()
		p.publish(ctx, events.RoutingLedgerPosted, events.NewLedgerPosted(e))
	}
	return entries, nil
}

// flag marks key for reconciliation unless it already is.
func (p *ledgerPoster) flag(ctx context.Context, key domain.StockKey, reason string, at time.Time) {
	if b, err := p.stockRepo.FindBalance(ctx, key); err == nil && b.Flagged {
		return
	}
	if err := p.stockRepo.FlagBalance(ctx, key, reason, at); err != nil {
		p.LogError(ctx, err, "Failed to flag stock balance", slog.String("stock_key", key.String()))
		return
	}
	metrics.FlaggedBalancesTotal.Inc()
	p.GetLogger(ctx).Warn("Stock balance flagged for reconciliation",
		slog.String("stock_key", key.String()),
		slog.String("reason", reason))
	p.publish(ctx, events.RoutingBalanceFlagged, events.BalanceFlagged{
		ItemID:      key.ItemID,
		WarehouseID: key.WarehouseID,
		Reason:      reason,
		At:          at,
	})
}

// publish never fails the caller; the posting has already committed.
func (p *ledgerPoster) publish(ctx context.Context, routingKey string, payload any) {
	if err := p.publisher.Publish(ctx, routingKey, payload); err != nil {
		p.GetLogger(ctx).Warn("Failed to publish event",
			slog.String("routing_key", routingKey),
			slog.String("error", err.Error()))
	}
}
