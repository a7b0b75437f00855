package transactions

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/chris/transaction-orchestrator/pkg/api"
	"github.com/chris/transaction-orchestrator/pkg/mapping"
	"github.com/chris/transaction-orchestrator/pkg/orchestrator"
	"github.com/chris/transaction-orchestrator/pkg/respond"
	"github.com/chris/transaction-orchestrator/pkg/storage"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// TransactionsHandler holds the dependencies for transaction-related handlers.
type TransactionsHandler struct {
	Service orchestrator.Service
}

// NewTransactionsHandler creates a new TransactionsHandler.
func NewTransactionsHandler(service orchestrator.Service) *TransactionsHandler {
	return &TransactionsHandler{Service: service}
}

// Deposit handles POST /transactions/deposit.
func (h *TransactionsHandler) Deposit(w http.ResponseWriter, r *http.Request, params api.DepositParams) {
	var body api.AccountTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.Service.Deposit(r.Context(), mapping.ToAccountRequest(&body, params.IdempotencyKey))
	h.writeResult(w, r, result, err)
}

// Withdraw handles POST /transactions/withdraw.
func (h *TransactionsHandler) Withdraw(w http.ResponseWriter, r *http.Request, params api.WithdrawParams) {
	var body api.AccountTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.Service.Withdraw(r.Context(), mapping.ToAccountRequest(&body, params.IdempotencyKey))
	h.writeResult(w, r, result, err)
}

// Transfer handles POST /transactions/transfer.
func (h *TransactionsHandler) Transfer(w http.ResponseWriter, r *http.Request, params api.TransferParams) {
	var body api.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.Service.Transfer(r.Context(), mapping.ToTransferRequest(&body, params.IdempotencyKey))
	h.writeResult(w, r, result, err)
}

// ListTransactions handles GET /transactions?accountId=.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request, params api.ListTransactionsParams) {
	txs, err := h.Service.ListByAccount(r.Context(), params.AccountId)
	if err != nil {
		if errors.Is(err, orchestrator.ErrInvalidArgument) {
			respond.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "failed to list transactions", "account_id", params.AccountId, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}

	respond.JSON(w, http.StatusOK, mapping.ToApiTransactions(txs))
}

// GetTransactionById handles GET /transactions/{transactionId}.
func (h *TransactionsHandler) GetTransactionById(w http.ResponseWriter, r *http.Request, transactionId openapi_types.UUID) {
	tx, err := h.Service.GetTransaction(r.Context(), transactionId.String())
	if err != nil {
		if errors.Is(err, storage.ErrTransactionNotFound) {
			respond.Error(w, http.StatusNotFound, "Transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get transaction", "transaction_id", transactionId.String(), "error", err)
		respond.Error(w, http.StatusInternalServerError, "Failed to retrieve transaction")
		return
	}

	respond.JSON(w, http.StatusOK, mapping.ToApiTransaction(tx))
}

// writeResult answers 201 for a new transaction and 200 for a replay, or maps the error.
func (h *TransactionsHandler) writeResult(w http.ResponseWriter, r *http.Request, result *orchestrator.Result, err error) {
	if err != nil {
		status := statusFor(err)
		body := api.Error{Message: err.Error()}
		if result != nil && result.Transaction != nil {
			body.Transaction = mapping.ToApiTransaction(result.Transaction)
		}
		if status == http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "transaction request failed", "error", err)
			body.Message = "Failed to process transaction"
		}
		respond.JSON(w, status, body)
		return
	}

	status := http.StatusCreated
	if result.Outcome == orchestrator.Replayed {
		status = http.StatusOK
	}
	respond.JSON(w, status, mapping.ToApiTransaction(result.Transaction))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, orchestrator.ErrFraudRejected):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrLedgerUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
