package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/techcsc21/paybridge/internal/core/config"
	"github.com/techcsc21/paybridge/internal/core/domain"
	"github.com/techcsc21/paybridge/internal/core/gateway"
	"github.com/techcsc21/paybridge/internal/core/payment"
)

// StaleLister finds PENDING deposits old enough to requery.
type StaleLister interface {
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]domain.Transaction, error)
	MarkRequeried(ctx context.Context, reference string) error
}

// StartRequeryWorker polls the gateway for deposits that stayed PENDING past
// the configured age. Lost webhooks are the normal cause; the requery reply
// goes through the same reconciler as a webhook, so crediting stays
// exactly-once.
func StartRequeryWorker(ctx context.Context, cfg *config.Config, repo StaleLister, client *gateway.Client, rec *payment.Reconciler) {
	go func() {
		slog.Info("Requery worker started",
			"interval", cfg.RequeryInterval, "requery_after", cfg.RequeryAfter)
		ticker := time.NewTicker(cfg.RequeryInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Requery worker stopped")
				return
			case <-ticker.C:
				processStale(ctx, cfg, repo, client, rec)
			}
		}
	}()
}

func processStale(ctx context.Context, cfg *config.Config, repo StaleLister, client *gateway.Client, rec *payment.Reconciler) {
	cutoff := time.Now().Add(-cfg.RequeryAfter)
	stale, err := repo.ListStalePending(ctx, cutoff, 20)
	if err != nil {
		slog.Error("Worker: failed to list stale deposits", "error", err)
		return
	}

	for _, tx := range stale {
		if err := repo.MarkRequeried(ctx, tx.Reference); err != nil {
			slog.Error("Worker: failed to record requery attempt", "error", err, "reference", tx.Reference)
			continue
		}

		resp, err := client.Requery(ctx, tx.Reference, domain.ToMinorUnits(tx.Amount), tx.Currency)
		if err != nil {
			if errors.Is(err, domain.ErrGatewayUnavailable) {
				// Gateway down: stop the sweep, the next tick retries everything.
				slog.Warn("Worker: gateway unavailable, deferring sweep", "error", err)
				return
			}
			slog.Error("Worker: requery failed", "error", err, "reference", tx.Reference)
			continue
		}

		result, err := rec.Reconcile(ctx, resp)
		if err != nil {
			slog.Warn("Worker: requery response did not reconcile", "error", err, "reference", tx.Reference)
			continue
		}
		if result.Status != domain.StatusPending {
			slog.Info("Worker: stale deposit resolved",
				"reference", tx.Reference, "status", result.Status, "credited", result.Credited)
		}
	}
}
