package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/chris/transaction-orchestrator/pkg/storage"
)

// UpdateTransactionStatus moves a PENDING transaction to a terminal status and returns the updated record.
func (s *Store) UpdateTransactionStatus(ctx context.Context, txID string, status models.TransactionStatus) (*models.Transaction, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("cannot move transaction %s to %s: %w", txID, status, storage.ErrInvalidStatusTransition)
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.TransactionsTableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: txID},
		},
		UpdateExpression:    aws.String("SET #status = :new_status, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(id) AND #status = :pending_status"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new_status":     &types.AttributeValueMemberS{Value: string(status)},
			":pending_status": &types.AttributeValueMemberS{Value: string(models.PENDING)},
			":now":            &types.AttributeValueMemberS{Value: formatTime(time.Now())},
		},
		ReturnValues: types.ReturnValueAllNew,
	}

	result, err := s.Client.UpdateItem(ctx, input)
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return nil, fmt.Errorf("transaction %s: %w", txID, storage.ErrInvalidStatusTransition)
		}
		return nil, fmt.Errorf("failed to update transaction status to %s: %w", status, err)
	}

	var item transactionItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal updated transaction: %w", err)
	}

	return fromItem(item)
}
