package orchestrator

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/chris/transaction-orchestrator/pkg/models"
)

// Outcome tells a first execution apart from a replay of an idempotency key.
type Outcome string

const (
	Created  Outcome = "CREATED"
	Replayed Outcome = "REPLAYED"
)

// Result is the transaction a request resolved to.
type Result struct {
	Transaction *models.Transaction
	Outcome     Outcome
}

// AccountRequest is a deposit or a withdrawal.
type AccountRequest struct {
	AccountId      string
	Amount         decimal.Decimal
	IdempotencyKey string
}

// TransferRequest moves Amount from SourceAccountId to TargetAccountId.
type TransferRequest struct {
	SourceAccountId string
	TargetAccountId string
	Amount          decimal.Decimal
	IdempotencyKey  string
}

// Service is the transaction orchestration API consumed by the transport layers.
type Service interface {
	Deposit(ctx context.Context, req AccountRequest) (*Result, error)
	Withdraw(ctx context.Context, req AccountRequest) (*Result, error)
	Transfer(ctx context.Context, req TransferRequest) (*Result, error)
	ListByAccount(ctx context.Context, accountID string) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, txID string) (*models.Transaction, error)
}
