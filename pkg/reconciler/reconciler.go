// Package reconciler flags transactions that need an operator: rows left PENDING by a crashed
// request and transfers that failed, possibly after their debit. It never changes a row.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/transaction-orchestrator/pkg/events"
	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/chris/transaction-orchestrator/pkg/storage"
)

const (
	ReasonStuckPending   = "stuck in PENDING"
	ReasonFailedTransfer = "transfer FAILED, ledger state must be checked"
)

// Report summarises one sweep.
type Report struct {
	Stuck           int
	FailedTransfers int
	PublishErrors   int
}

// Reconciler scans the store and publishes a reconciliation event per suspicious transaction.
type Reconciler struct {
	store          storage.TransactionReader
	publisher      events.Publisher
	stuckThreshold time.Duration
	window         time.Duration
	now            func() time.Time
}

// New creates a Reconciler. PENDING rows older than stuckThreshold and FAILED transfers
// created within window are reported.
func New(store storage.TransactionReader, publisher events.Publisher, stuckThreshold, window time.Duration) *Reconciler {
	return &Reconciler{
		store:          store,
		publisher:      publisher,
		stuckThreshold: stuckThreshold,
		window:         window,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Sweep runs one reconciliation pass. A publish failure is logged and counted, and the sweep
// moves on to the next transaction.
func (r *Reconciler) Sweep(ctx context.Context) (Report, error) {
	var report Report

	stuck, err := r.store.GetStuckTransactions(ctx, r.stuckThreshold)
	if err != nil {
		return report, fmt.Errorf("failed to get stuck transactions: %w", err)
	}
	report.Stuck = len(stuck)
	report.PublishErrors += r.flag(ctx, stuck, ReasonStuckPending)

	failed, err := r.store.ListFailedTransfers(ctx, r.now().Add(-r.window))
	if err != nil {
		return report, fmt.Errorf("failed to list failed transfers: %w", err)
	}
	report.FailedTransfers = len(failed)
	report.PublishErrors += r.flag(ctx, failed, ReasonFailedTransfer)

	slog.InfoContext(ctx, "reconciliation sweep finished",
		"stuck", report.Stuck,
		"failed_transfers", report.FailedTransfers,
		"publish_errors", report.PublishErrors,
	)
	return report, nil
}

func (r *Reconciler) flag(ctx context.Context, txs []models.Transaction, reason string) int {
	var failures int
	for i := range txs {
		tx := &txs[i]
		if err := r.publisher.Publish(ctx, events.NewEvent(events.ReconciliationRequired, tx, reason)); err != nil {
			slog.ErrorContext(ctx, "failed to publish reconciliation event", "transaction_id", tx.Id, "error", err)
			failures++
			continue
		}
		slog.WarnContext(ctx, "transaction needs reconciliation", "transaction_id", tx.Id, "status", tx.Status, "reason", reason)
	}
	return failures
}
