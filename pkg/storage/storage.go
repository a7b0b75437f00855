package storage

import (
	"slices"
	"strings"

	"github.com/chris/transaction-orchestrator/pkg/models"
)

// Storage defines the root interface for the data layer.
// Components should depend on the more granular interfaces (TransactionReader, TransactionWriter) instead of this one.
type Storage interface {
	TransactionStore
}

// SortNewestFirst orders transactions by creation time descending. Transactions created at the same
// instant keep their insertion order, which the time-ordered (UUIDv7) identifiers encode.
func SortNewestFirst(txs []models.Transaction) {
	slices.SortStableFunc(txs, func(a, b models.Transaction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Id, b.Id)
	})
}
