package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/chris/transaction-orchestrator/pkg/storage"
)

// Store is an in-memory implementation of storage.Storage.
// It is safe for concurrent use and enforces idempotency key uniqueness under its mutex.
type Store struct {
	mu           sync.Mutex
	transactions map[string]*models.Transaction // by ID
	byKey        map[string]string              // idempotency key -> transaction ID
	order        []string                       // transaction IDs in insertion order
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		transactions: make(map[string]*models.Transaction),
		byKey:        make(map[string]string),
	}
}

// CreateTransaction stores a copy of tx unless its idempotency key is already claimed.
func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[tx.IdempotencyKey]; exists {
		return nil, storage.ErrDuplicateIdempotencyKey
	}
	if _, exists := s.transactions[tx.Id]; exists {
		return nil, fmt.Errorf("transaction with ID %s already exists", tx.Id)
	}

	s.transactions[tx.Id] = tx.Clone()
	s.byKey[tx.IdempotencyKey] = tx.Id
	s.order = append(s.order, tx.Id)

	return tx.Clone(), nil
}

// GetTransaction returns a copy of the transaction with the given ID.
func (s *Store) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[txID]
	if !ok {
		return nil, fmt.Errorf("transaction with ID %s: %w", txID, storage.ErrTransactionNotFound)
	}
	return tx.Clone(), nil
}

// FindByIdempotencyKey returns the transaction that claimed the key.
func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txID, ok := s.byKey[key]
	if !ok {
		return nil, storage.ErrTransactionNotFound
	}
	return s.transactions[txID].Clone(), nil
}

// UpdateTransactionStatus moves a PENDING transaction to a terminal status.
func (s *Store) UpdateTransactionStatus(ctx context.Context, txID string, status models.TransactionStatus) (*models.Transaction, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("cannot move transaction %s to %s: %w", txID, status, storage.ErrInvalidStatusTransition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[txID]
	if !ok {
		return nil, fmt.Errorf("transaction with ID %s: %w", txID, storage.ErrTransactionNotFound)
	}
	if tx.Status != models.PENDING {
		return nil, fmt.Errorf("transaction %s: %w", txID, storage.ErrInvalidStatusTransition)
	}

	tx.Status = status
	tx.UpdatedAt = time.Now().UTC()
	return tx.Clone(), nil
}

// ListTransactionsByAccount returns the account's transactions newest first.
// Transactions created at the same instant keep their insertion order.
func (s *Store) ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	return s.filter(func(tx *models.Transaction) bool {
		return tx.InvolvesAccount(accountID)
	}), nil
}

// GetStuckTransactions returns PENDING transactions created more than maxAge ago.
func (s *Store) GetStuckTransactions(ctx context.Context, maxAge time.Duration) ([]models.Transaction, error) {
	cutoff := time.Now().Add(-maxAge)
	return s.filter(func(tx *models.Transaction) bool {
		return tx.Status == models.PENDING && tx.CreatedAt.Before(cutoff)
	}), nil
}

// ListFailedTransfers returns FAILED transfers created at or after since.
func (s *Store) ListFailedTransfers(ctx context.Context, since time.Time) ([]models.Transaction, error) {
	return s.filter(func(tx *models.Transaction) bool {
		return tx.Type == models.TRANSFER && tx.Status == models.FAILED && !tx.CreatedAt.Before(since)
	}), nil
}

func (s *Store) filter(match func(*models.Transaction) bool) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.Transaction, 0)
	for _, id := range s.order {
		if tx := s.transactions[id]; match(tx) {
			result = append(result, *tx.Clone())
		}
	}
	slices.SortStableFunc(result, func(a, b models.Transaction) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result
}

// Compile-time check: ensure Store implements the Storage interface
var _ storage.Storage = (*Store)(nil)
