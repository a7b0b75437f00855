// Package api holds the HTTP contract of the transaction orchestrator: wire types,
// the ServerInterface implemented by the handlers, and its chi router binding.
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Defines values for TransactionStatus.
const (
	FAILED  TransactionStatus = "FAILED"
	PENDING TransactionStatus = "PENDING"
	SUCCESS TransactionStatus = "SUCCESS"
)

// Defines values for TransactionType.
const (
	DEPOSIT  TransactionType = "DEPOSIT"
	TRANSFER TransactionType = "TRANSFER"
	WITHDRAW TransactionType = "WITHDRAW"
)

// TransactionStatus defines model for TransactionStatus.
type TransactionStatus string

// TransactionType defines model for TransactionType.
type TransactionType string

// Transaction defines model for Transaction.
type Transaction struct {
	// Amount is rendered with at least two fraction digits.
	Amount          json.Number       `json:"amount"`
	CreatedAt       time.Time         `json:"createdAt"`
	Id              string            `json:"id"`
	IdempotencyKey  string            `json:"idempotencyKey"`
	SourceAccountId string            `json:"sourceAccountId"`
	Status          TransactionStatus `json:"status"`
	TargetAccountId *string           `json:"targetAccountId,omitempty"`
	Type            TransactionType   `json:"type"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// AccountTransactionRequest defines model for a deposit or withdrawal. Amount accepts a JSON number or string.
type AccountTransactionRequest struct {
	AccountId string          `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
}

// TransferRequest defines model for TransferRequest.
type TransferRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	SourceAccountId string          `json:"sourceAccountId"`
	TargetAccountId string          `json:"targetAccountId"`
}

// Error defines model for Error. Transaction is set when a failed attempt was recorded.
type Error struct {
	Message     string       `json:"message"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// Health defines model for Health.
type Health struct {
	Status string `json:"status"`
}

// DepositParams defines parameters for Deposit.
type DepositParams struct {
	IdempotencyKey string `json:"Idempotency-Key"`
}

// WithdrawParams defines parameters for Withdraw.
type WithdrawParams struct {
	IdempotencyKey string `json:"Idempotency-Key"`
}

// TransferParams defines parameters for Transfer.
type TransferParams struct {
	IdempotencyKey string `json:"Idempotency-Key"`
}

// ListTransactionsParams defines parameters for ListTransactions.
type ListTransactionsParams struct {
	AccountId string `form:"accountId" json:"accountId"`
}
