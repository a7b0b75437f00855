// Package cache puts a Redis read-through cache in front of a TransactionStore.
// Only terminal transactions are cached: they never change again, so an entry can
// never be stale. PENDING rows always come from the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/chris/transaction-orchestrator/pkg/storage"
)

const (
	idPrefix  = "tx:id:"
	keyPrefix = "tx:idempotency:"
)

// entry is the cached form of a transaction. Amount is kept as a string with its scale
// so a cached replay renders exactly like the stored row.
type entry struct {
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

func newEntry(tx *models.Transaction) entry {
	return entry{
		Id:              tx.Id,
		SourceAccountId: tx.SourceAccountId,
		TargetAccountId: tx.TargetAccountId,
		Amount:          models.ExactAmount(tx.Amount),
		Type:            string(tx.Type),
		Status:          string(tx.Status),
		IdempotencyKey:  tx.IdempotencyKey,
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}
}

func (e entry) transaction() (*models.Transaction, error) {
	amount, err := decimal.NewFromString(e.Amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	return &models.Transaction{
		Id:              e.Id,
		SourceAccountId: e.SourceAccountId,
		TargetAccountId: e.TargetAccountId,
		Amount:          amount,
		Type:            models.TransactionType(e.Type),
		Status:          models.TransactionStatus(e.Status),
		IdempotencyKey:  e.IdempotencyKey,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}, nil
}

// Store wraps a TransactionStore. Redis failures are logged and the call falls through
// to the wrapped store.
type Store struct {
	storage.TransactionStore
	client *redis.Client
	ttl    time.Duration
}

// New creates a caching Store. Entries expire after ttl.
func New(inner storage.TransactionStore, client *redis.Client, ttl time.Duration) *Store {
	return &Store{TransactionStore: inner, client: client, ttl: ttl}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

// GetTransaction serves terminal transactions from Redis.
func (s *Store) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	if tx, ok := s.get(ctx, idPrefix+txID); ok {
		return tx, nil
	}
	tx, err := s.TransactionStore.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	s.put(ctx, tx)
	return tx, nil
}

// FindByIdempotencyKey serves replays of terminal transactions from Redis.
func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	if tx, ok := s.get(ctx, keyPrefix+key); ok {
		return tx, nil
	}
	tx, err := s.TransactionStore.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	s.put(ctx, tx)
	return tx, nil
}

// UpdateTransactionStatus writes through and caches the terminal row.
func (s *Store) UpdateTransactionStatus(ctx context.Context, txID string, status models.TransactionStatus) (*models.Transaction, error) {
	tx, err := s.TransactionStore.UpdateTransactionStatus(ctx, txID, status)
	if err != nil {
		return nil, err
	}
	s.put(ctx, tx)
	return tx, nil
}

func (s *Store) get(ctx context.Context, key string) (*models.Transaction, bool) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.WarnContext(ctx, "redis get failed, reading from store", "key", key, "error", err)
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(val, &e); err != nil {
		slog.WarnContext(ctx, "dropping undecodable cache entry", "key", key, "error", err)
		return nil, false
	}
	tx, err := e.transaction()
	if err != nil {
		slog.WarnContext(ctx, "dropping undecodable cache entry", "key", key, "error", err)
		return nil, false
	}
	return tx, true
}

func (s *Store) put(ctx context.Context, tx *models.Transaction) {
	if !tx.Status.IsTerminal() {
		return
	}
	if err := s.set(ctx, tx); err != nil {
		slog.WarnContext(ctx, "failed to cache transaction", "transaction_id", tx.Id, "error", err)
	}
}

func (s *Store) set(ctx context.Context, tx *models.Transaction) error {
	val, err := json.Marshal(newEntry(tx))
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, idPrefix+tx.Id, val, s.ttl)
		pipe.Set(ctx, keyPrefix+tx.IdempotencyKey, val, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
