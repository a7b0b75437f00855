package mapping

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris/transaction-orchestrator/pkg/api"
	"github.com/chris/transaction-orchestrator/pkg/models"
)

func TestToApiTransaction(t *testing.T) {
	target := "acc-2"
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tx := &models.Transaction{
		Id:              "tx-1",
		SourceAccountId: "acc-1",
		TargetAccountId: &target,
		Amount:          decimal.NewFromInt(250),
		Type:            models.TRANSFER,
		Status:          models.FAILED,
		IdempotencyKey:  "k1",
		CreatedAt:       now,
		UpdatedAt:       now.Add(time.Second),
	}

	apiTx := ToApiTransaction(tx)

	assert.Equal(t, json.Number("250.00"), apiTx.Amount)
	assert.Equal(t, api.TRANSFER, apiTx.Type)
	assert.Equal(t, api.FAILED, apiTx.Status)
	assert.Equal(t, &target, apiTx.TargetAccountId)

	body, err := json.Marshal(apiTx)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"amount":250.00`)
	assert.Contains(t, string(body), `"targetAccountId":"acc-2"`)
}

func TestRequestMapping(t *testing.T) {
	var body api.AccountTransactionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"accountId":"acc-1","amount":100.00}`), &body))

	req := ToAccountRequest(&body, "k1")
	assert.Equal(t, "acc-1", req.AccountId)
	assert.Equal(t, "k1", req.IdempotencyKey)
	assert.True(t, req.Amount.Equal(decimal.NewFromInt(100)))

	var transfer api.TransferRequest
	require.NoError(t, json.Unmarshal([]byte(`{"sourceAccountId":"a","targetAccountId":"b","amount":"12.5"}`), &transfer))

	treq := ToTransferRequest(&transfer, "k2")
	assert.Equal(t, "a", treq.SourceAccountId)
	assert.Equal(t, "b", treq.TargetAccountId)
	assert.True(t, treq.Amount.Equal(decimal.RequireFromString("12.5")))
}
