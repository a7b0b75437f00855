package storage

import "errors"

// ErrTransactionNotFound is returned when no transaction matches the lookup.
var ErrTransactionNotFound = errors.New("transaction not found")

// ErrDuplicateIdempotencyKey is returned when a transaction already exists for the idempotency key.
var ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")

// ErrInvalidStatusTransition is returned when a status update targets a transaction that is not PENDING.
var ErrInvalidStatusTransition = errors.New("transaction is not in a pending state")

// ErrIdempotencyKeyContended is returned when another write claimed the idempotency key at the same
// moment and the outcome of that write is not known yet. Reading the key again resolves it.
var ErrIdempotencyKeyContended = errors.New("idempotency key claimed concurrently")
