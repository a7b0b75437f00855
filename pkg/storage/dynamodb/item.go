package dynamodb

import (
	"fmt"
	"time"

	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/shopspring/decimal"
)

// timeLayout is fixed width so that lexicographic order on the GSI sort keys matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// transactionItem is the DynamoDB representation of a transaction.
// target_account_id is omitted for non-transfers, which keeps the target index sparse.
type transactionItem struct {
	Id              string  `dynamodbav:"id"`
	SourceAccountId string  `dynamodbav:"source_account_id"`
	TargetAccountId *string `dynamodbav:"target_account_id,omitempty"`
	Amount          string  `dynamodbav:"amount"`
	Type            string  `dynamodbav:"type"`
	Status          string  `dynamodbav:"status"`
	IdempotencyKey  string  `dynamodbav:"idempotency_key"`
	CreatedAt       string  `dynamodbav:"created_at"`
	UpdatedAt       string  `dynamodbav:"updated_at"`
}

// idempotencyItem claims an idempotency key for a single transaction.
type idempotencyItem struct {
	IdempotencyKey string `dynamodbav:"idempotency_key"`
	TransactionId  string `dynamodbav:"transaction_id"`
	CreatedAt      string `dynamodbav:"created_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func toItem(tx *models.Transaction) transactionItem {
	return transactionItem{
		Id:              tx.Id,
		SourceAccountId: tx.SourceAccountId,
		TargetAccountId: tx.TargetAccountId,
		Amount:          models.ExactAmount(tx.Amount),
		Type:            string(tx.Type),
		Status:          string(tx.Status),
		IdempotencyKey:  tx.IdempotencyKey,
		CreatedAt:       formatTime(tx.CreatedAt),
		UpdatedAt:       formatTime(tx.UpdatedAt),
	}
}

func fromItem(item transactionItem) (*models.Transaction, error) {
	amount, err := decimal.NewFromString(item.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount of transaction %s: %w", item.Id, err)
	}
	createdAt, err := time.Parse(timeLayout, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at of transaction %s: %w", item.Id, err)
	}
	updatedAt, err := time.Parse(timeLayout, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at of transaction %s: %w", item.Id, err)
	}

	return &models.Transaction{
		Id:              item.Id,
		SourceAccountId: item.SourceAccountId,
		TargetAccountId: item.TargetAccountId,
		Amount:          amount,
		Type:            models.TransactionType(item.Type),
		Status:          models.TransactionStatus(item.Status),
		IdempotencyKey:  item.IdempotencyKey,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}

func fromItems(items []transactionItem) ([]models.Transaction, error) {
	txs := make([]models.Transaction, 0, len(items))
	for _, item := range items {
		tx, err := fromItem(item)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, nil
}
