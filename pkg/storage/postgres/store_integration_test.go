//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/chris/transaction-orchestrator/pkg/storage"
)

// setupStore starts a disposable Postgres container, applies the schema and returns a Store on it.
func setupStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("orchestrator"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	// Migrate is idempotent.
	require.NoError(t, Migrate(ctx, db))

	return New(db)
}

func newTransaction(key, source string, createdAt time.Time) *models.Transaction {
	return &models.Transaction{
		Id:              uuid.Must(uuid.NewV7()).String(),
		SourceAccountId: source,
		Amount:          decimal.RequireFromString("10.25"),
		Type:            models.DEPOSIT,
		Status:          models.PENDING,
		IdempotencyKey:  key,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func TestIntegration_Postgres_Store(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("Create And Read Back", func(t *testing.T) {
		tx := newTransaction("create-1", "acc-1", now)

		created, err := store.CreateTransaction(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, tx.Id, created.Id)
		assert.True(t, created.Amount.Equal(tx.Amount))

		byKey, err := store.FindByIdempotencyKey(ctx, "create-1")
		require.NoError(t, err)
		assert.Equal(t, created, byKey)
	})

	t.Run("Duplicate Idempotency Key", func(t *testing.T) {
		_, err := store.CreateTransaction(ctx, newTransaction("dup-1", "acc-1", now))
		require.NoError(t, err)

		_, err = store.CreateTransaction(ctx, newTransaction("dup-1", "acc-2", now))
		assert.ErrorIs(t, err, storage.ErrDuplicateIdempotencyKey)
	})

	t.Run("Concurrent Creates With One Key", func(t *testing.T) {
		const workers = 16
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = store.CreateTransaction(ctx, newTransaction("race-1", "acc-race", now))
			}(i)
		}
		wg.Wait()

		created := 0
		for _, err := range errs {
			if err == nil {
				created++
				continue
			}
			assert.ErrorIs(t, err, storage.ErrDuplicateIdempotencyKey)
		}
		assert.Equal(t, 1, created)
	})

	t.Run("Status Transitions", func(t *testing.T) {
		tx := newTransaction("status-1", "acc-1", now)
		_, err := store.CreateTransaction(ctx, tx)
		require.NoError(t, err)

		updated, err := store.UpdateTransactionStatus(ctx, tx.Id, models.SUCCESS)
		require.NoError(t, err)
		assert.Equal(t, models.SUCCESS, updated.Status)

		_, err = store.UpdateTransactionStatus(ctx, tx.Id, models.FAILED)
		assert.ErrorIs(t, err, storage.ErrInvalidStatusTransition)

		_, err = store.UpdateTransactionStatus(ctx, uuid.NewString(), models.FAILED)
		assert.ErrorIs(t, err, storage.ErrTransactionNotFound)
	})

	t.Run("Not Found", func(t *testing.T) {
		_, err := store.GetTransaction(ctx, uuid.NewString())
		assert.ErrorIs(t, err, storage.ErrTransactionNotFound)

		_, err = store.FindByIdempotencyKey(ctx, "never-used")
		assert.True(t, errors.Is(err, storage.ErrTransactionNotFound))
	})

	t.Run("List Newest First With Insertion Order Ties", func(t *testing.T) {
		account := "acc-list"
		target := account
		older := newTransaction("list-1", account, now.Add(-time.Hour))
		tieFirst := newTransaction("list-2", account, now)
		tieSecond := newTransaction("list-3", "acc-other", now)
		tieSecond.Type = models.TRANSFER
		tieSecond.TargetAccountId = &target

		for _, tx := range []*models.Transaction{older, tieFirst, tieSecond} {
			_, err := store.CreateTransaction(ctx, tx)
			require.NoError(t, err)
		}

		result, err := store.ListTransactionsByAccount(ctx, account)
		require.NoError(t, err)

		var ids []string
		for _, tx := range result {
			ids = append(ids, tx.Id)
		}
		assert.Equal(t, []string{tieFirst.Id, tieSecond.Id, older.Id}, ids)
	})

	t.Run("Reconciliation Queries", func(t *testing.T) {
		target := "acc-recon-target"
		stuck := newTransaction("recon-stuck", "acc-recon", now.Add(-2*time.Hour))
		failed := newTransaction("recon-failed", "acc-recon", now)
		failed.Type = models.TRANSFER
		failed.TargetAccountId = &target

		for _, tx := range []*models.Transaction{stuck, failed} {
			_, err := store.CreateTransaction(ctx, tx)
			require.NoError(t, err)
		}
		_, err := store.UpdateTransactionStatus(ctx, failed.Id, models.FAILED)
		require.NoError(t, err)

		stuckTxs, err := store.GetStuckTransactions(ctx, time.Hour)
		require.NoError(t, err)
		assert.Contains(t, ids(stuckTxs), stuck.Id)
		assert.NotContains(t, ids(stuckTxs), failed.Id)

		failedTxs, err := store.ListFailedTransfers(ctx, now.Add(-time.Minute))
		require.NoError(t, err)
		assert.Equal(t, []string{failed.Id}, ids(failedTxs))
	})

	t.Run("Schema Rejects Target On Deposit", func(t *testing.T) {
		target := "acc-2"
		tx := newTransaction("bad-target", "acc-1", now)
		tx.TargetAccountId = &target

		_, err := store.CreateTransaction(ctx, tx)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, storage.ErrDuplicateIdempotencyKey)
	})
}

func ids(txs []models.Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.Id)
	}
	return out
}
