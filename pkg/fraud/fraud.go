package fraud

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Operation is the kind of balance movement being screened.
type Operation string

const (
	Deposit    Operation = "deposit"
	Withdrawal Operation = "withdraw"
)

// Checker decides whether a balance movement may proceed.
type Checker interface {
	Allow(ctx context.Context, op Operation, accountID string, amount decimal.Decimal) (bool, error)
}

// Policy decides the outcome when the fraud service cannot be reached.
type Policy string

const (
	FailOpen   Policy = "fail-open"
	FailClosed Policy = "fail-closed"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case FailOpen, FailClosed:
		return p, nil
	default:
		return "", fmt.Errorf("unknown fraud policy %q", s)
	}
}

// AllowAll approves everything. It is used when no fraud service is configured.
type AllowAll struct{}

func (AllowAll) Allow(context.Context, Operation, string, decimal.Decimal) (bool, error) {
	return true, nil
}
