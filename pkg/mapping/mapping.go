package mapping

import (
	"encoding/json"

	"github.com/chris/transaction-orchestrator/pkg/api"
	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/chris/transaction-orchestrator/pkg/orchestrator"
)

// ToApiTransaction converts a domain Transaction model to an API Transaction model.
func ToApiTransaction(tx *models.Transaction) *api.Transaction {
	return &api.Transaction{
		Id:              tx.Id,
		SourceAccountId: tx.SourceAccountId,
		TargetAccountId: tx.TargetAccountId,
		Amount:          json.Number(models.FormatAmount(tx.Amount)),
		Type:            api.TransactionType(tx.Type),
		Status:          api.TransactionStatus(tx.Status),
		IdempotencyKey:  tx.IdempotencyKey,
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}
}

// ToApiTransactions converts a listing, keeping its order.
func ToApiTransactions(txs []models.Transaction) []*api.Transaction {
	apiTxs := make([]*api.Transaction, len(txs))
	for i := range txs {
		apiTxs[i] = ToApiTransaction(&txs[i])
	}
	return apiTxs
}

// ToAccountRequest converts a deposit or withdrawal body and its idempotency key.
func ToAccountRequest(req *api.AccountTransactionRequest, idempotencyKey string) orchestrator.AccountRequest {
	return orchestrator.AccountRequest{
		AccountId:      req.AccountId,
		Amount:         req.Amount,
		IdempotencyKey: idempotencyKey,
	}
}

// ToTransferRequest converts a transfer body and its idempotency key.
func ToTransferRequest(req *api.TransferRequest, idempotencyKey string) orchestrator.TransferRequest {
	return orchestrator.TransferRequest{
		SourceAccountId: req.SourceAccountId,
		TargetAccountId: req.TargetAccountId,
		Amount:          req.Amount,
		IdempotencyKey:  idempotencyKey,
	}
}
