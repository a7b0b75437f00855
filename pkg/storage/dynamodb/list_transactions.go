package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/chris/transaction-orchestrator/pkg/storage"
)

const (
	statusIndex        = "status-created_at-index"
	sourceAccountIndex = "source_account_id-created_at-index"
	targetAccountIndex = "target_account_id-created_at-index"
)

// ListTransactionsByAccount merges the source and target indexes into one newest-first listing.
func (s *Store) ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	seen := make(map[string]struct{})
	var items []transactionItem

	for _, index := range []struct{ name, attr string }{
		{sourceAccountIndex, "source_account_id"},
		{targetAccountIndex, "target_account_id"},
	} {
		input := &dynamodb.QueryInput{
			TableName:              aws.String(s.TransactionsTableName),
			IndexName:              aws.String(index.name),
			KeyConditionExpression: aws.String("#account = :account_id"),
			ExpressionAttributeNames: map[string]string{
				"#account": index.attr,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":account_id": &types.AttributeValueMemberS{Value: accountID},
			},
			ScanIndexForward: aws.Bool(false), // Sort by created_at in descending order
		}

		found, err := s.queryAll(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query for transactions by account ID: %w", err)
		}
		for _, item := range found {
			if _, dup := seen[item.Id]; dup {
				continue
			}
			seen[item.Id] = struct{}{}
			items = append(items, item)
		}
	}

	transactions, err := fromItems(items)
	if err != nil {
		return nil, err
	}
	storage.SortNewestFirst(transactions)

	return transactions, nil
}

// GetStuckTransactions retrieves transactions that stayed PENDING for longer than maxAge.
func (s *Store) GetStuckTransactions(ctx context.Context, maxAge time.Duration) ([]models.Transaction, error) {
	cutoff := formatTime(time.Now().Add(-maxAge))

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.TransactionsTableName),
		IndexName:              aws.String(statusIndex),
		KeyConditionExpression: aws.String("#status = :status AND created_at < :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(models.PENDING)},
			":cutoff": &types.AttributeValueMemberS{Value: cutoff},
		},
	}

	items, err := s.queryAll(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query for stuck transactions: %w", err)
	}

	return fromItems(items)
}

// ListFailedTransfers retrieves FAILED transfers created at or after since.
func (s *Store) ListFailedTransfers(ctx context.Context, since time.Time) ([]models.Transaction, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.TransactionsTableName),
		IndexName:              aws.String(statusIndex),
		KeyConditionExpression: aws.String("#status = :status AND created_at >= :since"),
		FilterExpression:       aws.String("#type = :type"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
			"#type":   "type",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(models.FAILED)},
			":since":  &types.AttributeValueMemberS{Value: formatTime(since)},
			":type":   &types.AttributeValueMemberS{Value: string(models.TRANSFER)},
		},
	}

	items, err := s.queryAll(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query for failed transfers: %w", err)
	}

	return fromItems(items)
}

// queryAll follows LastEvaluatedKey until the query is exhausted.
func (s *Store) queryAll(ctx context.Context, input *dynamodb.QueryInput) ([]transactionItem, error) {
	var items []transactionItem
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, err
		}

		var page []transactionItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transactions: %w", err)
		}
		items = append(items, page...)

		if len(result.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}
