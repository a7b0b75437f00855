package storage

import (
	"context"
	"time"

	"github.com/chris/transaction-orchestrator/pkg/models"
)

// TransactionReader defines the interface for reading transaction data.
type TransactionReader interface {
	// GetTransaction retrieves a transaction by its ID.
	GetTransaction(ctx context.Context, txID string) (*models.Transaction, error)

	// FindByIdempotencyKey retrieves the transaction created for an idempotency key.
	// It returns ErrTransactionNotFound when the key has never been used.
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error)

	// ListTransactionsByAccount retrieves every transaction where the account is the source or the target,
	// most recent first.
	ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error)

	// GetStuckTransactions retrieves transactions that are in a 'PENDING' state for longer than the specified duration.
	GetStuckTransactions(ctx context.Context, maxAge time.Duration) ([]models.Transaction, error)

	// ListFailedTransfers retrieves FAILED transfers created after the given time.
	ListFailedTransfers(ctx context.Context, since time.Time) ([]models.Transaction, error)
}

// TransactionWriter defines the interface for recording transactions and their status transitions.
type TransactionWriter interface {
	// CreateTransaction persists a new transaction. It fails with ErrDuplicateIdempotencyKey
	// when another transaction already owns the idempotency key.
	CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)

	// UpdateTransactionStatus moves a PENDING transaction to a terminal status.
	// It fails with ErrInvalidStatusTransition when the transaction is no longer PENDING.
	UpdateTransactionStatus(ctx context.Context, txID string, status models.TransactionStatus) (*models.Transaction, error)
}

// TransactionStore combines the reader and writer interfaces.
type TransactionStore interface {
	TransactionReader
	TransactionWriter
}
