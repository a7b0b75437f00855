package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus defines the possible states of a transaction.
type TransactionStatus string

const (
	PENDING TransactionStatus = "PENDING"
	SUCCESS TransactionStatus = "SUCCESS"
	FAILED  TransactionStatus = "FAILED"
)

// IsTerminal reports whether a transaction in this status can no longer change.
func (s TransactionStatus) IsTerminal() bool {
	return s == SUCCESS || s == FAILED
}

// TransactionType defines the kind of balance movement a transaction records.
type TransactionType string

const (
	DEPOSIT  TransactionType = "DEPOSIT"
	WITHDRAW TransactionType = "WITHDRAW"
	TRANSFER TransactionType = "TRANSFER"
)

// Transaction represents the internal domain model for a transaction.
// TargetAccountId is only set for transfers.
type Transaction struct {
	Id              string
	SourceAccountId string
	TargetAccountId *string
	Amount          decimal.Decimal
	Type            TransactionType
	Status          TransactionStatus
	IdempotencyKey  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// InvolvesAccount reports whether the account is the source or the target of the transaction.
func (t *Transaction) InvolvesAccount(accountID string) bool {
	if t.SourceAccountId == accountID {
		return true
	}
	return t.TargetAccountId != nil && *t.TargetAccountId == accountID
}

// Clone returns a deep copy so callers never share the target pointer with a store.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.TargetAccountId != nil {
		target := *t.TargetAccountId
		c.TargetAccountId = &target
	}
	return &c
}

// FormatAmount renders an amount with at least two fraction digits.
func FormatAmount(amount decimal.Decimal) string {
	places := -amount.Exponent()
	if places < 2 {
		places = 2
	}
	return amount.StringFixed(places)
}

// ExactAmount renders an amount keeping its scale, so 100.500 reads back as 100.500.
// Stores use it so a replayed transaction renders exactly like the original.
func ExactAmount(amount decimal.Decimal) string {
	if exp := amount.Exponent(); exp < 0 {
		return amount.StringFixed(-exp)
	}
	return amount.String()
}
