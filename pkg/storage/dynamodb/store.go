package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/transaction-orchestrator/pkg/storage"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the Store.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store implements the Storage interface using AWS DynamoDB.
// Transactions live in one table; a second table maps each idempotency key to the
// transaction that claimed it, which is how key uniqueness is enforced.
type Store struct {
	Client                DynamoDBAPI
	TransactionsTableName string
	IdempotencyTableName  string
}

// New creates a new Store.
func New(client DynamoDBAPI, transactionsTable, idempotencyTable string) *Store {
	return &Store{
		Client:                client,
		TransactionsTableName: transactionsTable,
		IdempotencyTableName:  idempotencyTable,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)
