package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	seq               BIGSERIAL   NOT NULL,
	id                TEXT        PRIMARY KEY,
	source_account_id TEXT        NOT NULL,
	target_account_id TEXT,
	amount            NUMERIC     NOT NULL CHECK (amount > 0),
	type              TEXT        NOT NULL,
	status            TEXT        NOT NULL,
	idempotency_key   TEXT        NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL,
	CONSTRAINT transactions_idempotency_key_key UNIQUE (idempotency_key),
	CONSTRAINT transactions_target_check CHECK ((type = 'TRANSFER') = (target_account_id IS NOT NULL))
);
CREATE INDEX IF NOT EXISTS transactions_source_account_idx ON transactions (source_account_id, created_at DESC);
CREATE INDEX IF NOT EXISTS transactions_target_account_idx ON transactions (target_account_id, created_at DESC);
CREATE INDEX IF NOT EXISTS transactions_status_idx ON transactions (status, created_at);
`

// Migrate creates the transactions table and its indexes if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
