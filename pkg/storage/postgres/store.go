package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/chris/transaction-orchestrator/pkg/storage"
)

const (
	uniqueViolation          = pq.ErrorCode("23505")
	idempotencyKeyConstraint = "transactions_idempotency_key_key"

	columns = `id, source_account_id, target_account_id, amount, type, status, idempotency_key, created_at, updated_at`
)

// Store implements the Storage interface on top of Postgres.
// Idempotency key uniqueness is enforced by a unique constraint; insertion order is the seq column.
type Store struct {
	db *sql.DB
}

// New creates a new Store. The schema must already exist, see Migrate.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	var (
		tx     models.Transaction
		target sql.NullString
	)
	if err := row.Scan(&tx.Id, &tx.SourceAccountId, &target, &tx.Amount, &tx.Type, &tx.Status, &tx.IdempotencyKey, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
		return nil, err
	}
	if target.Valid {
		tx.TargetAccountId = &target.String
	}
	tx.CreatedAt = tx.CreatedAt.UTC()
	tx.UpdatedAt = tx.UpdatedAt.UTC()
	return &tx, nil
}

func isIdempotencyKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == idempotencyKeyConstraint
}

// CreateTransaction inserts the transaction; a taken idempotency key yields ErrDuplicateIdempotencyKey.
func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	slog.Log(ctx, slog.LevelDebug, "creating transaction", "transaction_id", tx.Id, "idempotency_key", tx.IdempotencyKey)

	const q = `INSERT INTO transactions (` + columns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING ` + columns

	var target sql.NullString
	if tx.TargetAccountId != nil {
		target = sql.NullString{String: *tx.TargetAccountId, Valid: true}
	}

	row := s.db.QueryRowContext(ctx, q,
		tx.Id, tx.SourceAccountId, target, tx.Amount, string(tx.Type), string(tx.Status),
		tx.IdempotencyKey, tx.CreatedAt.UTC(), tx.UpdatedAt.UTC())

	created, err := scanTransaction(row)
	if err != nil {
		if isIdempotencyKeyViolation(err) {
			return nil, storage.ErrDuplicateIdempotencyKey
		}
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return created, nil
}

// GetTransaction retrieves a transaction by its ID.
func (s *Store) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	const q = `SELECT ` + columns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, q, txID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction with ID %s: %w", txID, storage.ErrTransactionNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// FindByIdempotencyKey retrieves the transaction that owns the idempotency key.
func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	const q = `SELECT ` + columns + ` FROM transactions WHERE idempotency_key = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, q, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by idempotency key: %w", err)
	}
	return tx, nil
}

// UpdateTransactionStatus moves a PENDING transaction to a terminal status.
func (s *Store) UpdateTransactionStatus(ctx context.Context, txID string, status models.TransactionStatus) (*models.Transaction, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("cannot move transaction %s to %s: %w", txID, status, storage.ErrInvalidStatusTransition)
	}

	const q = `UPDATE transactions SET status = $2, updated_at = $3
	WHERE id = $1 AND status = 'PENDING'
	RETURNING ` + columns

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, q, txID, string(status), time.Now().UTC()))
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update transaction status to %s: %w", status, err)
	}

	// Nothing matched: either the row is missing or it is already terminal.
	if _, err := s.GetTransaction(ctx, txID); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("transaction %s: %w", txID, storage.ErrInvalidStatusTransition)
}

// ListTransactionsByAccount retrieves the account's transactions newest first, ties in insertion order.
func (s *Store) ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	const q = `SELECT ` + columns + ` FROM transactions
	WHERE source_account_id = $1 OR target_account_id = $1
	ORDER BY created_at DESC, seq ASC`

	txs, err := s.query(ctx, q, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query for transactions by account ID: %w", err)
	}
	return txs, nil
}

// GetStuckTransactions retrieves transactions that stayed PENDING for longer than maxAge.
func (s *Store) GetStuckTransactions(ctx context.Context, maxAge time.Duration) ([]models.Transaction, error) {
	const q = `SELECT ` + columns + ` FROM transactions
	WHERE status = 'PENDING' AND created_at < $1
	ORDER BY created_at, seq`

	txs, err := s.query(ctx, q, time.Now().Add(-maxAge).UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query for stuck transactions: %w", err)
	}
	return txs, nil
}

// ListFailedTransfers retrieves FAILED transfers created at or after since.
func (s *Store) ListFailedTransfers(ctx context.Context, since time.Time) ([]models.Transaction, error) {
	const q = `SELECT ` + columns + ` FROM transactions
	WHERE status = 'FAILED' AND type = 'TRANSFER' AND created_at >= $1
	ORDER BY created_at, seq`

	txs, err := s.query(ctx, q, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query for failed transfers: %w", err)
	}
	return txs, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

var _ storage.Storage = (*Store)(nil)
