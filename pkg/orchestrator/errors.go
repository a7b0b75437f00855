package orchestrator

import "errors"

var (
	// ErrInvalidArgument is returned for a request that can never succeed: a missing field,
	// a non-positive amount or a transfer to the source account. No transaction is recorded.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientFunds is returned when the source balance is below the amount. No transaction is recorded.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrLedgerUnavailable is returned when the ledger could not be reached. When it happens during
	// a debit or credit the transaction is recorded as FAILED and returned alongside the error.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrFraudRejected is returned when the fraud check denies the movement. No transaction is recorded.
	ErrFraudRejected = errors.New("rejected by fraud check")
)
