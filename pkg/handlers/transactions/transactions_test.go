package transactions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chris/transaction-orchestrator/pkg/api"
	"github.com/chris/transaction-orchestrator/pkg/models"
	"github.com/chris/transaction-orchestrator/pkg/orchestrator"
	"github.com/chris/transaction-orchestrator/pkg/orchestrator/mocks"
	"github.com/chris/transaction-orchestrator/pkg/storage"
)

func newTransaction(txType models.TransactionType, status models.TransactionStatus) *models.Transaction {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.Transaction{
		Id:              uuid.Must(uuid.NewV7()).String(),
		SourceAccountId: "acc-1",
		Amount:          decimal.RequireFromString("100.00"),
		Type:            txType,
		Status:          status,
		IdempotencyKey:  "k1",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestDeposit(t *testing.T) {
	body := []byte(`{"accountId":"acc-1","amount":100.00}`)

	t.Run("Created", func(t *testing.T) {
		mockService := new(mocks.Service)
		handler := NewTransactionsHandler(mockService)
		tx := newTransaction(models.DEPOSIT, models.SUCCESS)

		mockService.On("Deposit", mock.Anything, mock.MatchedBy(func(req orchestrator.AccountRequest) bool {
			return req.AccountId == "acc-1" && req.IdempotencyKey == "k1" && req.Amount.Equal(decimal.NewFromInt(100))
		})).Return(&orchestrator.Result{Transaction: tx, Outcome: orchestrator.Created}, nil)

		req := httptest.NewRequest(http.MethodPost, "/transactions/deposit", bytes.NewReader(body))
		rr := httptest.NewRecorder()

		handler.Deposit(rr, req, api.DepositParams{IdempotencyKey: "k1"})

		assert.Equal(t, http.StatusCreated, rr.Code)
		var got api.Transaction
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, tx.Id, got.Id)
		assert.Equal(t, api.SUCCESS, got.Status)
		assert.Equal(t, json.Number("100.00"), got.Amount)
		mockService.AssertExpectations(t)
	})

	t.Run("Replayed", func(t *testing.T) {
		mockService := new(mocks.Service)
		handler := NewTransactionsHandler(mockService)
		tx := newTransaction(models.DEPOSIT, models.SUCCESS)

		mockService.On("Deposit", mock.Anything, mock.Anything).Return(&orchestrator.Result{Transaction: tx, Outcome: orchestrator.Replayed}, nil)

		req := httptest.NewRequest(http.MethodPost, "/transactions/deposit", bytes.NewReader(body))
		rr := httptest.NewRecorder()

		handler.Deposit(rr, req, api.DepositParams{IdempotencyKey: "k1"})

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Invalid Body", func(t *testing.T) {
		mockService := new(mocks.Service)
		handler := NewTransactionsHandler(mockService)

		req := httptest.NewRequest(http.MethodPost, "/transactions/deposit", strings.NewReader("{"))
		rr := httptest.NewRecorder()

		handler.Deposit(rr, req, api.DepositParams{IdempotencyKey: "k1"})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything)
	})

	t.Run("Ledger Unavailable Returns Failed Transaction", func(t *testing.T) {
		mockService := new(mocks.Service)
		handler := NewTransactionsHandler(mockService)
		tx := newTransaction(models.DEPOSIT, models.FAILED)

		mockService.On("Deposit", mock.Anything, mock.Anything).Return(
			&orchestrator.Result{Transaction: tx, Outcome: orchestrator.Created},
			fmt.Errorf("%w: credit: timeout", orchestrator.ErrLedgerUnavailable),
		)

		req := httptest.NewRequest(http.MethodPost, "/transactions/deposit", bytes.NewReader(body))
		rr := httptest.NewRecorder()

		handler.Deposit(rr, req, api.DepositParams{IdempotencyKey: "k1"})

		assert.Equal(t, http.StatusBadGateway, rr.Code)
		var got api.Error
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		require.NotNil(t, got.Transaction)
		assert.Equal(t, api.FAILED, got.Transaction.Status)
		assert.Contains(t, got.Message, "ledger unavailable")
		mockService.AssertExpectations(t)
	})
}

func TestWithdrawErrors(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{"Invalid Argument", fmt.Errorf("%w: amount must be positive", orchestrator.ErrInvalidArgument), http.StatusBadRequest},
		{"Insufficient Funds", orchestrator.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"Fraud Rejected", orchestrator.ErrFraudRejected, http.StatusConflict},
		{"Balance Unavailable", orchestrator.ErrLedgerUnavailable, http.StatusBadGateway},
		{"Storage Error", errors.New("dynamodb down"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := new(mocks.Service)
			handler := NewTransactionsHandler(mockService)

			mockService.On("Withdraw", mock.Anything, mock.Anything).Return(nil, tc.err)

			req := httptest.NewRequest(http.MethodPost, "/transactions/withdraw", strings.NewReader(`{"accountId":"acc-1","amount":"50.00"}`))
			rr := httptest.NewRecorder()

			handler.Withdraw(rr, req, api.WithdrawParams{IdempotencyKey: "k1"})

			assert.Equal(t, tc.status, rr.Code)
			var got api.Error
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			assert.Nil(t, got.Transaction)
			assert.NotContains(t, got.Message, "dynamodb")
			mockService.AssertExpectations(t)
		})
	}
}

func TestTransfer(t *testing.T) {
	mockService := new(mocks.Service)
	handler := NewTransactionsHandler(mockService)
	tx := newTransaction(models.TRANSFER, models.SUCCESS)
	target := "acc-2"
	tx.TargetAccountId = &target

	mockService.On("Transfer", mock.Anything, mock.MatchedBy(func(req orchestrator.TransferRequest) bool {
		return req.SourceAccountId == "acc-1" && req.TargetAccountId == "acc-2" && req.IdempotencyKey == "k9"
	})).Return(&orchestrator.Result{Transaction: tx, Outcome: orchestrator.Created}, nil)

	req := httptest.NewRequest(http.MethodPost, "/transactions/transfer", strings.NewReader(`{"sourceAccountId":"acc-1","targetAccountId":"acc-2","amount":250}`))
	rr := httptest.NewRecorder()

	handler.Transfer(rr, req, api.TransferParams{IdempotencyKey: "k9"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	var got api.Transaction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.NotNil(t, got.TargetAccountId)
	assert.Equal(t, "acc-2", *got.TargetAccountId)
	mockService.AssertExpectations(t)
}

func TestListTransactions(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(mocks.Service)
		handler := NewTransactionsHandler(mockService)
		newer := newTransaction(models.WITHDRAW, models.SUCCESS)
		older := newTransaction(models.DEPOSIT, models.SUCCESS)

		mockService.On("ListByAccount", mock.Anything, "acc-1").Return([]models.Transaction{*newer, *older}, nil)

		req := httptest.NewRequest(http.MethodGet, "/transactions?accountId=acc-1", nil)
		rr := httptest.NewRecorder()

		handler.ListTransactions(rr, req, api.ListTransactionsParams{AccountId: "acc-1"})

		assert.Equal(t, http.StatusOK, rr.Code)
		var got []api.Transaction
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, newer.Id, got[0].Id)
		assert.Equal(t, older.Id, got[1].Id)
		mockService.AssertExpectations(t)
	})

	t.Run("Empty", func(t *testing.T) {
		mockService := new(mocks.Service)
		handler := NewTransactionsHandler(mockService)

		mockService.On("ListByAccount", mock.Anything, "acc-1").Return([]models.Transaction{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/transactions?accountId=acc-1", nil)
		rr := httptest.NewRecorder()

		handler.ListTransactions(rr, req, api.ListTransactionsParams{AccountId: "acc-1"})

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, "[]", rr.Body.String())
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockService := new(mocks.Service)
		handler := NewTransactionsHandler(mockService)

		mockService.On("ListByAccount", mock.Anything, "acc-1").Return(nil, errors.New("query failed"))

		req := httptest.NewRequest(http.MethodGet, "/transactions?accountId=acc-1", nil)
		rr := httptest.NewRecorder()

		handler.ListTransactions(rr, req, api.ListTransactionsParams{AccountId: "acc-1"})

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestGetTransactionById(t *testing.T) {
	id := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		mockService := new(mocks.Service)
		handler := NewTransactionsHandler(mockService)
		tx := newTransaction(models.DEPOSIT, models.PENDING)
		tx.Id = id.String()

		mockService.On("GetTransaction", mock.Anything, id.String()).Return(tx, nil)

		req := httptest.NewRequest(http.MethodGet, "/transactions/"+id.String(), nil)
		rr := httptest.NewRecorder()

		handler.GetTransactionById(rr, req, id)

		assert.Equal(t, http.StatusOK, rr.Code)
		var got api.Transaction
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, api.PENDING, got.Status)
		mockService.AssertExpectations(t)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockService := new(mocks.Service)
		handler := NewTransactionsHandler(mockService)

		mockService.On("GetTransaction", mock.Anything, id.String()).Return(nil, fmt.Errorf("transaction with ID %s: %w", id, storage.ErrTransactionNotFound))

		req := httptest.NewRequest(http.MethodGet, "/transactions/"+id.String(), nil)
		rr := httptest.NewRecorder()

		handler.GetTransactionById(rr, req, id)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockService := new(mocks.Service)
		handler := NewTransactionsHandler(mockService)

		mockService.On("GetTransaction", mock.Anything, id.String()).Return(nil, errors.New("get item failed"))

		req := httptest.NewRequest(http.MethodGet, "/transactions/"+id.String(), nil)
		rr := httptest.NewRecorder()

		handler.GetTransactionById(rr, req, id)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}
