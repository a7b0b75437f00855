// Package ingest executes transaction commands delivered through SQS.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"

	"github.com/chris/transaction-orchestrator/pkg/orchestrator"
)

// CommandType selects the orchestrator operation for a message.
type CommandType string

const (
	Deposit  CommandType = "DEPOSIT"
	Withdraw CommandType = "WITHDRAW"
	Transfer CommandType = "TRANSFER"
)

// Command is the body of a queued transaction request.
type Command struct {
	Type            CommandType     `json:"type"`
	IdempotencyKey  string          `json:"idempotencyKey"`
	AccountId       string          `json:"accountId,omitempty"`
	SourceAccountId string          `json:"sourceAccountId,omitempty"`
	TargetAccountId string          `json:"targetAccountId,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
}

var errMalformed = errors.New("malformed command")

// Handler runs queued commands through the orchestrator.
type Handler struct {
	Service orchestrator.Service
}

// NewHandler creates a new ingest Handler.
func NewHandler(service orchestrator.Service) *Handler {
	return &Handler{Service: service}
}

// HandleSQSEvent processes a batch. Messages that can be retried are reported as batch item
// failures so SQS redelivers only those; the idempotency key makes redelivery safe.
// Malformed messages and business rejections are logged and dropped.
func (h *Handler) HandleSQSEvent(ctx context.Context, sqsEvent lambdaevents.SQSEvent) (lambdaevents.SQSEventResponse, error) {
	var response lambdaevents.SQSEventResponse

	for _, message := range sqsEvent.Records {
		err := h.process(ctx, message.Body)
		switch {
		case err == nil:
		case retryable(err):
			slog.ErrorContext(ctx, "transaction command failed, will be retried", "message_id", message.MessageId, "error", err)
			response.BatchItemFailures = append(response.BatchItemFailures, lambdaevents.SQSBatchItemFailure{ItemIdentifier: message.MessageId})
		default:
			slog.WarnContext(ctx, "dropping transaction command", "message_id", message.MessageId, "error", err)
		}
	}

	return response, nil
}

func (h *Handler) process(ctx context.Context, body string) error {
	var cmd Command
	if err := json.Unmarshal([]byte(body), &cmd); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	var (
		result *orchestrator.Result
		err    error
	)
	switch cmd.Type {
	case Deposit:
		result, err = h.Service.Deposit(ctx, orchestrator.AccountRequest{AccountId: cmd.AccountId, Amount: cmd.Amount, IdempotencyKey: cmd.IdempotencyKey})
	case Withdraw:
		result, err = h.Service.Withdraw(ctx, orchestrator.AccountRequest{AccountId: cmd.AccountId, Amount: cmd.Amount, IdempotencyKey: cmd.IdempotencyKey})
	case Transfer:
		result, err = h.Service.Transfer(ctx, orchestrator.TransferRequest{
			SourceAccountId: cmd.SourceAccountId,
			TargetAccountId: cmd.TargetAccountId,
			Amount:          cmd.Amount,
			IdempotencyKey:  cmd.IdempotencyKey,
		})
	default:
		return fmt.Errorf("%w: unknown type %q", errMalformed, cmd.Type)
	}

	if err != nil {
		// A recorded FAILED attempt is final: redelivery would only replay it.
		if result != nil && result.Transaction != nil {
			return &recordedError{txID: result.Transaction.Id, err: err}
		}
		return err
	}

	slog.InfoContext(ctx, "transaction command processed",
		"transaction_id", result.Transaction.Id,
		"status", result.Transaction.Status,
		"outcome", result.Outcome,
	)
	return nil
}

type recordedError struct {
	txID string
	err  error
}

func (e *recordedError) Error() string {
	return fmt.Sprintf("transaction %s recorded as failed: %v", e.txID, e.err)
}

func (e *recordedError) Unwrap() error { return e.err }

// retryable reports whether redelivering the message could change the outcome.
func retryable(err error) bool {
	var recorded *recordedError
	switch {
	case errors.As(err, &recorded):
		return false
	case errors.Is(err, errMalformed),
		errors.Is(err, orchestrator.ErrInvalidArgument),
		errors.Is(err, orchestrator.ErrInsufficientFunds),
		errors.Is(err, orchestrator.ErrFraudRejected):
		return false
	default:
		// Ledger unavailable before any row was written, or a store error.
		return true
	}
}
