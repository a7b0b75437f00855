package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/chris/transaction-orchestrator/pkg/storage"
	"github.com/chris/transaction-orchestrator/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUpdateTransactionStatus(t *testing.T) {
	tx := newTestTransaction()

	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "transactions", "idempotency")

		updated := tx.Clone()
		updated.Status = models.SUCCESS
		updatedAV, err := attributevalue.MarshalMap(toItem(updated))
		require.NoError(t, err)

		mockClient.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			newStatus := in.ExpressionAttributeValues[":new_status"].(*types.AttributeValueMemberS)
			pending := in.ExpressionAttributeValues[":pending_status"].(*types.AttributeValueMemberS)
			return newStatus.Value == "SUCCESS" && pending.Value == "PENDING" && in.ReturnValues == types.ReturnValueAllNew
		})).Return(&dynamodb.UpdateItemOutput{Attributes: updatedAV}, nil)

		result, err := store.UpdateTransactionStatus(context.Background(), tx.Id, models.SUCCESS)

		assert.NoError(t, err)
		assert.Equal(t, models.SUCCESS, result.Status)
		assert.Equal(t, tx.Id, result.Id)
		mockClient.AssertExpectations(t)
	})

	t.Run("Not Pending", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "transactions", "idempotency")

		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

		_, err := store.UpdateTransactionStatus(context.Background(), tx.Id, models.FAILED)

		assert.ErrorIs(t, err, storage.ErrInvalidStatusTransition)
		mockClient.AssertExpectations(t)
	})

	t.Run("Non Terminal Target", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "transactions", "idempotency")

		_, err := store.UpdateTransactionStatus(context.Background(), tx.Id, models.PENDING)

		assert.ErrorIs(t, err, storage.ErrInvalidStatusTransition)
		mockClient.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "transactions", "idempotency")

		mockClient.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errors.New("update failed"))

		_, err := store.UpdateTransactionStatus(context.Background(), tx.Id, models.SUCCESS)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update transaction status")
		mockClient.AssertExpectations(t)
	})
}
