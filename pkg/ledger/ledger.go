package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when a ledger call fails for any reason: transport error,
// timeout, non-2xx response, undecodable body or an open circuit breaker.
var ErrUnavailable = errors.New("ledger unavailable")

// Client is the account ledger that owns balances.
// Debit and Credit are assumed to be atomic on the ledger side and are called at most once per transaction.
type Client interface {
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	Debit(ctx context.Context, accountID string, amount decimal.Decimal) error
	Credit(ctx context.Context, accountID string, amount decimal.Decimal) error
}
