package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chris/transaction-orchestrator/pkg/events"
	"github.com/chris/transaction-orchestrator/pkg/fraud"
	"github.com/chris/transaction-orchestrator/pkg/ledger"
	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/chris/transaction-orchestrator/pkg/storage"
)

// Orchestrator runs deposits, withdrawals and transfers against the ledger and records
// each attempt as a transaction that moves from PENDING to SUCCESS or FAILED.
type Orchestrator struct {
	store     storage.TransactionStore
	ledger    ledger.Client
	fraud     fraud.Checker
	publisher events.Publisher
	now       func() time.Time

	// collisionBackoff is the base wait between attempts to claim a contended idempotency key.
	collisionBackoff time.Duration
}

const maxCreateAttempts = 4

// New creates an Orchestrator. A nil checker approves everything and a nil publisher drops events.
func New(store storage.TransactionStore, ledgerClient ledger.Client, checker fraud.Checker, publisher events.Publisher) *Orchestrator {
	if checker == nil {
		checker = fraud.AllowAll{}
	}
	if publisher == nil {
		publisher = &events.NoOpPublisher{}
	}
	return &Orchestrator{
		store:     store,
		ledger:    ledgerClient,
		fraud:     checker,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },

		collisionBackoff: 25 * time.Millisecond,
	}
}

var _ Service = (*Orchestrator)(nil)

// step is one ledger mutation of a transaction.
type step struct {
	name      string
	accountID string
	apply     func(ctx context.Context, accountID string, amount decimal.Decimal) error
}

// plan describes a request once its inputs are validated.
type plan struct {
	txType         models.TransactionType
	source         string
	target         *string
	amount         decimal.Decimal
	idempotencyKey string
	checkBalance   bool
	fraudOp        fraud.Operation
	steps          []step
}

// Deposit credits the account.
func (o *Orchestrator) Deposit(ctx context.Context, req AccountRequest) (*Result, error) {
	return o.execute(ctx, plan{
		txType:         models.DEPOSIT,
		source:         req.AccountId,
		amount:         req.Amount,
		idempotencyKey: req.IdempotencyKey,
		fraudOp:        fraud.Deposit,
		steps:          []step{{name: "credit", accountID: req.AccountId, apply: o.ledger.Credit}},
	}, nil)
}

// Withdraw debits the account after checking it holds at least the amount.
func (o *Orchestrator) Withdraw(ctx context.Context, req AccountRequest) (*Result, error) {
	return o.execute(ctx, plan{
		txType:         models.WITHDRAW,
		source:         req.AccountId,
		amount:         req.Amount,
		idempotencyKey: req.IdempotencyKey,
		checkBalance:   true,
		fraudOp:        fraud.Withdrawal,
		steps:          []step{{name: "debit", accountID: req.AccountId, apply: o.ledger.Debit}},
	}, nil)
}

// Transfer debits the source and then credits the target. A failed credit leaves the source
// debited and the transaction FAILED; no reversal is attempted.
func (o *Orchestrator) Transfer(ctx context.Context, req TransferRequest) (*Result, error) {
	target := req.TargetAccountId
	validate := func() error {
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("%w: target account is required", ErrInvalidArgument)
		}
		if target == req.SourceAccountId {
			return fmt.Errorf("%w: source and target accounts must differ", ErrInvalidArgument)
		}
		return nil
	}
	return o.execute(ctx, plan{
		txType:         models.TRANSFER,
		source:         req.SourceAccountId,
		target:         &target,
		amount:         req.Amount,
		idempotencyKey: req.IdempotencyKey,
		checkBalance:   true,
		fraudOp:        fraud.Withdrawal,
		steps: []step{
			{name: "debit", accountID: req.SourceAccountId, apply: o.ledger.Debit},
			{name: "credit", accountID: target, apply: o.ledger.Credit},
		},
	}, validate)
}

// ListByAccount returns every transaction where the account is the source or the target, newest first.
func (o *Orchestrator) ListByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("%w: account is required", ErrInvalidArgument)
	}
	txs, err := o.store.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions of account %s: %w", accountID, err)
	}
	return txs, nil
}

// GetTransaction returns a transaction by ID.
func (o *Orchestrator) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	return o.store.GetTransaction(ctx, txID)
}

func (o *Orchestrator) execute(ctx context.Context, p plan, validate func() error) (*Result, error) {
	if strings.TrimSpace(p.idempotencyKey) == "" {
		return nil, fmt.Errorf("%w: idempotency key is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(p.source) == "" {
		return nil, fmt.Errorf("%w: account is required", ErrInvalidArgument)
	}

	// A known key replays the stored transaction whatever the new request says.
	existing, err := o.store.FindByIdempotencyKey(ctx, p.idempotencyKey)
	if err == nil {
		slog.InfoContext(ctx, "replaying transaction", "transaction_id", existing.Id, "idempotency_key", p.idempotencyKey)
		return &Result{Transaction: existing, Outcome: Replayed}, nil
	}
	if !errors.Is(err, storage.ErrTransactionNotFound) {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}

	if !p.amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	if validate != nil {
		if err := validate(); err != nil {
			return nil, err
		}
	}

	if p.checkBalance {
		balance, err := o.ledger.GetBalance(ctx, p.source)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
		}
		if balance.LessThan(p.amount) {
			return nil, fmt.Errorf("%w: account %s", ErrInsufficientFunds, p.source)
		}
	}

	allowed, err := o.fraud.Allow(ctx, p.fraudOp, p.source, p.amount)
	if err != nil {
		return nil, fmt.Errorf("failed to run fraud check: %w", err)
	}
	if !allowed {
		slog.WarnContext(ctx, "fraud check rejected transaction", "type", p.txType, "account_id", p.source, "idempotency_key", p.idempotencyKey)
		return nil, ErrFraudRejected
	}

	tx, replayed, err := o.createPending(ctx, p)
	if err != nil {
		return nil, err
	}
	if replayed {
		return &Result{Transaction: tx, Outcome: Replayed}, nil
	}

	// From here on the attempt must reach a terminal state even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	for i, s := range p.steps {
		if err := s.apply(ctx, s.accountID, p.amount); err != nil {
			slog.ErrorContext(ctx, "ledger call failed", "transaction_id", tx.Id, "step", s.name, "account_id", s.accountID, "error", err)
			return o.fail(ctx, tx, i > 0, fmt.Errorf("%w: %s: %w", ErrLedgerUnavailable, s.name, err))
		}
	}

	done, err := o.finalize(ctx, tx, models.SUCCESS)
	if err != nil {
		return nil, err
	}
	o.publish(ctx, events.NewEvent(events.TransactionSucceeded, done, ""))
	slog.InfoContext(ctx, "transaction succeeded", "transaction_id", done.Id, "type", done.Type)

	return &Result{Transaction: done, Outcome: Created}, nil
}

// createPending records the attempt. Losing the race for the idempotency key returns the winner.
// A claim that collided with a write of unknown outcome is retried a few times.
func (o *Orchestrator) createPending(ctx context.Context, p plan) (*models.Transaction, bool, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate transaction ID: %w", err)
	}
	now := o.now()

	tx := &models.Transaction{
		Id:              id.String(),
		SourceAccountId: p.source,
		TargetAccountId: p.target,
		Amount:          p.amount,
		Type:            p.txType,
		Status:          models.PENDING,
		IdempotencyKey:  p.idempotencyKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for attempt := 1; ; attempt++ {
		created, err := o.store.CreateTransaction(ctx, tx)
		if err == nil {
			return created, false, nil
		}
		contended := errors.Is(err, storage.ErrIdempotencyKeyContended)
		if !contended && !errors.Is(err, storage.ErrDuplicateIdempotencyKey) {
			return nil, false, fmt.Errorf("failed to create transaction: %w", err)
		}

		winner, err := o.store.FindByIdempotencyKey(ctx, p.idempotencyKey)
		if err == nil {
			slog.InfoContext(ctx, "idempotency key taken concurrently, replaying", "transaction_id", winner.Id, "idempotency_key", p.idempotencyKey)
			return winner, true, nil
		}
		if !errors.Is(err, storage.ErrTransactionNotFound) {
			return nil, false, fmt.Errorf("failed to read transaction owning idempotency key: %w", err)
		}
		if attempt >= maxCreateAttempts {
			return nil, false, fmt.Errorf("failed to create transaction: idempotency key %s still contended after %d attempts", p.idempotencyKey, attempt)
		}

		// The competing write was cancelled or is not visible yet: wait, then claim the key again.
		slog.InfoContext(ctx, "idempotency key contended, retrying", "idempotency_key", p.idempotencyKey, "attempt", attempt)
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(o.collisionBackoff * time.Duration(attempt)):
		}
	}
}

// fail marks tx FAILED and returns it with cause. partial means a transfer was debited but not credited.
func (o *Orchestrator) fail(ctx context.Context, tx *models.Transaction, partial bool, cause error) (*Result, error) {
	failed, err := o.finalize(ctx, tx, models.FAILED)
	if err != nil {
		return nil, errors.Join(cause, err)
	}

	o.publish(ctx, events.NewEvent(events.TransactionFailed, failed, cause.Error()))
	if partial {
		slog.ErrorContext(ctx, "transfer debited but not credited", "transaction_id", failed.Id, "source_account_id", failed.SourceAccountId, "amount", failed.Amount.String())
		o.publish(ctx, events.NewEvent(events.ReconciliationRequired, failed, "debit succeeded, credit failed"))
	}

	return &Result{Transaction: failed, Outcome: Created}, cause
}

func (o *Orchestrator) finalize(ctx context.Context, tx *models.Transaction, status models.TransactionStatus) (*models.Transaction, error) {
	updated, err := o.store.UpdateTransactionStatus(ctx, tx.Id, status)
	if err != nil {
		slog.ErrorContext(ctx, "failed to finalize transaction, left PENDING", "transaction_id", tx.Id, "status", status, "error", err)
		return nil, fmt.Errorf("failed to mark transaction %s %s: %w", tx.Id, status, err)
	}
	return updated, nil
}

// publish never fails the request; the transaction row is the source of truth.
func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if err := o.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to publish event", "event_type", event.Type, "transaction_id", event.Transaction.Id, "error", err)
	}
}
