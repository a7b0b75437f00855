package events

import (
	"context"
	"time"

	"github.com/chris/transaction-orchestrator/pkg/models"
)

// EventType names a transaction lifecycle event.
type EventType string

const (
	// TransactionSucceeded is published after a transaction reaches SUCCESS.
	TransactionSucceeded EventType = "transaction.succeeded"
	// TransactionFailed is published after a transaction reaches FAILED.
	TransactionFailed EventType = "transaction.failed"
	// ReconciliationRequired flags a transaction that needs out-of-band attention:
	// a transfer debited but not credited, or a transaction stuck in PENDING.
	ReconciliationRequired EventType = "transaction.reconciliation_required"
)

// Publisher defines the interface for publishing transaction events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Event is the message published for a transaction.
type Event struct {
	Type        EventType          `json:"type"`
	OccurredAt  time.Time          `json:"occurred_at"`
	Reason      string             `json:"reason,omitempty"`
	Transaction TransactionPayload `json:"transaction"`
}

// TransactionPayload is the wire form of a transaction inside an event.
type TransactionPayload struct {
	Id              string    `json:"id"`
	SourceAccountId string    `json:"source_account_id"`
	TargetAccountId *string   `json:"target_account_id,omitempty"`
	Amount          string    `json:"amount"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	IdempotencyKey  string    `json:"idempotency_key"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewEvent builds an event for tx. reason is optional.
func NewEvent(eventType EventType, tx *models.Transaction, reason string) Event {
	return Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Reason:     reason,
		Transaction: TransactionPayload{
			Id:              tx.Id,
			SourceAccountId: tx.SourceAccountId,
			TargetAccountId: tx.TargetAccountId,
			Amount:          models.FormatAmount(tx.Amount),
			Type:            string(tx.Type),
			Status:          string(tx.Status),
			IdempotencyKey:  tx.IdempotencyKey,
			CreatedAt:       tx.CreatedAt,
			UpdatedAt:       tx.UpdatedAt,
		},
	}
}

// NoOpPublisher is a publisher that does nothing.
type NoOpPublisher struct{}

// Publish does nothing.
func (p *NoOpPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}
