package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/chris/transaction-orchestrator/pkg/storage"
)

// CreateTransaction atomically claims the idempotency key and writes the transaction record.
func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	slog.Log(ctx, slog.LevelDebug, "creating transaction", "transaction_id", tx.Id, "idempotency_key", tx.IdempotencyKey)

	// Marshal the transaction for the Put operation.
	txAV, err := attributevalue.MarshalMap(toItem(tx))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction: %w", err)
	}

	keyAV, err := attributevalue.MarshalMap(idempotencyItem{
		IdempotencyKey: tx.IdempotencyKey,
		TransactionId:  tx.Id,
		CreatedAt:      formatTime(tx.CreatedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal idempotency key: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: Claim the idempotency key.
				Put: &types.Put{
					TableName:           aws.String(s.IdempotencyTableName),
					Item:                keyAV,
					ConditionExpression: aws.String("attribute_not_exists(idempotency_key)"),
				},
			},
			{
				// Operation 2: Create the new transaction record.
				Put: &types.Put{
					TableName:           aws.String(s.TransactionsTableName),
					Item:                txAV,
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			// The first operation is the idempotency claim.
			if len(tce.CancellationReasons) > 0 {
				switch aws.ToString(tce.CancellationReasons[0].Code) {
				case "ConditionalCheckFailed":
					return nil, storage.ErrDuplicateIdempotencyKey
				case "TransactionConflict":
					return nil, fmt.Errorf("%w: %s", storage.ErrIdempotencyKeyContended, tx.IdempotencyKey)
				}
			}
		}
		return nil, fmt.Errorf("failed to execute transaction: %w", err)
	}

	return tx, nil
}
