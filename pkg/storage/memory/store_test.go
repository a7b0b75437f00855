package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/chris/transaction-orchestrator/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransaction(id, key, source string, createdAt time.Time) *models.Transaction {
	return &models.Transaction{
		Id:              id,
		SourceAccountId: source,
		Amount:          decimal.NewFromInt(100),
		Type:            models.DEPOSIT,
		Status:          models.PENDING,
		IdempotencyKey:  key,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func TestCreateTransaction(t *testing.T) {
	now := time.Now().UTC()

	t.Run("Success", func(t *testing.T) {
		store := New()
		tx := newTransaction("tx-1", "k1", "acc-1", now)

		created, err := store.CreateTransaction(context.Background(), tx)
		require.NoError(t, err)
		assert.Equal(t, tx, created)

		found, err := store.FindByIdempotencyKey(context.Background(), "k1")
		require.NoError(t, err)
		assert.Equal(t, "tx-1", found.Id)
	})

	t.Run("Duplicate Idempotency Key", func(t *testing.T) {
		store := New()
		_, err := store.CreateTransaction(context.Background(), newTransaction("tx-1", "k1", "acc-1", now))
		require.NoError(t, err)

		_, err = store.CreateTransaction(context.Background(), newTransaction("tx-2", "k1", "acc-2", now))
		assert.ErrorIs(t, err, storage.ErrDuplicateIdempotencyKey)

		found, err := store.FindByIdempotencyKey(context.Background(), "k1")
		require.NoError(t, err)
		assert.Equal(t, "tx-1", found.Id)
	})

	t.Run("Returned Copies Are Isolated", func(t *testing.T) {
		store := New()
		tx := newTransaction("tx-1", "k1", "acc-1", now)
		_, err := store.CreateTransaction(context.Background(), tx)
		require.NoError(t, err)

		tx.Status = models.SUCCESS
		stored, err := store.GetTransaction(context.Background(), "tx-1")
		require.NoError(t, err)
		assert.Equal(t, models.PENDING, stored.Status)
	})

	t.Run("Concurrent Creates With One Key", func(t *testing.T) {
		store := New()
		const workers = 32

		var wg sync.WaitGroup
		var mu sync.Mutex
		created, duplicates := 0, 0
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.CreateTransaction(context.Background(), newTransaction(fmt.Sprintf("tx-%d", i), "shared", "acc-1", now))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					created++
				case errors.Is(err, storage.ErrDuplicateIdempotencyKey):
					duplicates++
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, created)
		assert.Equal(t, workers-1, duplicates)
	})
}

func TestGetTransaction(t *testing.T) {
	store := New()

	t.Run("Not Found", func(t *testing.T) {
		_, err := store.GetTransaction(context.Background(), "missing")
		assert.ErrorIs(t, err, storage.ErrTransactionNotFound)
	})

	t.Run("Unknown Idempotency Key", func(t *testing.T) {
		_, err := store.FindByIdempotencyKey(context.Background(), "missing")
		assert.ErrorIs(t, err, storage.ErrTransactionNotFound)
	})
}

func TestUpdateTransactionStatus(t *testing.T) {
	now := time.Now().UTC()

	t.Run("Success", func(t *testing.T) {
		store := New()
		_, err := store.CreateTransaction(context.Background(), newTransaction("tx-1", "k1", "acc-1", now))
		require.NoError(t, err)

		updated, err := store.UpdateTransactionStatus(context.Background(), "tx-1", models.SUCCESS)
		require.NoError(t, err)
		assert.Equal(t, models.SUCCESS, updated.Status)
		assert.Equal(t, now, updated.CreatedAt)
		assert.False(t, updated.UpdatedAt.Before(now))
	})

	t.Run("Terminal Status Is Final", func(t *testing.T) {
		store := New()
		_, err := store.CreateTransaction(context.Background(), newTransaction("tx-1", "k1", "acc-1", now))
		require.NoError(t, err)
		_, err = store.UpdateTransactionStatus(context.Background(), "tx-1", models.FAILED)
		require.NoError(t, err)

		_, err = store.UpdateTransactionStatus(context.Background(), "tx-1", models.SUCCESS)
		assert.ErrorIs(t, err, storage.ErrInvalidStatusTransition)
	})

	t.Run("Non Terminal Target", func(t *testing.T) {
		store := New()
		_, err := store.UpdateTransactionStatus(context.Background(), "tx-1", models.PENDING)
		assert.ErrorIs(t, err, storage.ErrInvalidStatusTransition)
	})

	t.Run("Not Found", func(t *testing.T) {
		store := New()
		_, err := store.UpdateTransactionStatus(context.Background(), "missing", models.SUCCESS)
		assert.ErrorIs(t, err, storage.ErrTransactionNotFound)
	})
}

func TestListTransactionsByAccount(t *testing.T) {
	store := New()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	target := "acc-1"

	older := newTransaction("c", "k1", "acc-1", base)
	tieFirst := newTransaction("b", "k2", "acc-1", base.Add(time.Minute))
	tieSecond := newTransaction("a", "k3", "acc-2", base.Add(time.Minute))
	tieSecond.Type = models.TRANSFER
	tieSecond.TargetAccountId = &target
	other := newTransaction("d", "k4", "acc-3", base.Add(time.Hour))

	for _, tx := range []*models.Transaction{older, tieFirst, tieSecond, other} {
		_, err := store.CreateTransaction(context.Background(), tx)
		require.NoError(t, err)
	}

	result, err := store.ListTransactionsByAccount(context.Background(), "acc-1")
	require.NoError(t, err)

	var ids []string
	for _, tx := range result {
		ids = append(ids, tx.Id)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)

	empty, err := store.ListTransactionsByAccount(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReconciliationQueries(t *testing.T) {
	store := New()
	now := time.Now().UTC()
	target := "acc-2"

	stuck := newTransaction("stuck", "k1", "acc-1", now.Add(-time.Hour))
	fresh := newTransaction("fresh", "k2", "acc-1", now)
	failedTransfer := newTransaction("failed", "k3", "acc-1", now.Add(-time.Minute))
	failedTransfer.Type = models.TRANSFER
	failedTransfer.TargetAccountId = &target
	failedDeposit := newTransaction("failed-deposit", "k4", "acc-1", now.Add(-time.Minute))

	for _, tx := range []*models.Transaction{stuck, fresh, failedTransfer, failedDeposit} {
		_, err := store.CreateTransaction(context.Background(), tx)
		require.NoError(t, err)
	}
	for _, id := range []string{"failed", "failed-deposit"} {
		_, err := store.UpdateTransactionStatus(context.Background(), id, models.FAILED)
		require.NoError(t, err)
	}

	t.Run("Stuck Transactions", func(t *testing.T) {
		result, err := store.GetStuckTransactions(context.Background(), 10*time.Minute)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "stuck", result[0].Id)
	})

	t.Run("Failed Transfers", func(t *testing.T) {
		result, err := store.ListFailedTransfers(context.Background(), now.Add(-10*time.Minute))
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "failed", result[0].Id)
	})
}
