package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/chris/transaction-orchestrator/pkg/storage"
)

// GetTransaction retrieves a transaction from DynamoDB by its ID.
func (s *Store) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"id": txID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction ID: %w", err)
	}

	input := &dynamodb.GetItemInput{
		TableName:      aws.String(s.TransactionsTableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	}

	result, err := s.Client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("transaction with ID %s: %w", txID, storage.ErrTransactionNotFound)
	}

	var item transactionItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}

	return fromItem(item)
}

// FindByIdempotencyKey resolves the idempotency key to its transaction.
// Both reads are strongly consistent so a caller that just lost a create race sees the winner.
func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	keyAV, err := attributevalue.MarshalMap(map[string]string{"idempotency_key": key})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal idempotency key: %w", err)
	}

	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.IdempotencyTableName),
		Key:            keyAV,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency key from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, storage.ErrTransactionNotFound
	}

	var claim idempotencyItem
	if err := attributevalue.UnmarshalMap(result.Item, &claim); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency key: %w", err)
	}

	return s.GetTransaction(ctx, claim.TransactionId)
}
