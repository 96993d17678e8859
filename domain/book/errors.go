package book

import "errors"

// Domain errors. Callers distinguish failure causes by errors.Is
// rather than by parsing messages.
var (
	// ErrPairNotFound is returned when an operation names an unknown pair.
	ErrPairNotFound = errors.New("book: pair not found")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("book: invalid amount")

	// ErrInvalidPrice is returned when a price row is outside [1, 2^W].
	ErrInvalidPrice = errors.New("book: price row out of range")

	// ErrOrderNotFound is returned when an order id is unknown for the pair.
	ErrOrderNotFound = errors.New("book: order not found")

	// ErrOrderCancelled is returned when claiming or re-cancelling a
	// cancelled order. Cancelled is a terminal state.
	ErrOrderCancelled = errors.New("book: order already cancelled")

	// ErrDecimalsLocked is returned when changing token decimals after
	// the pair has recorded its first use.
	ErrDecimalsLocked = errors.New("book: pair decimals locked")

	// ErrInternal indicates a broken invariant (malformed node index,
	// negative computed amount). It is a logic bug, not a user error,
	// and aborts the enclosing operation.
	ErrInternal = errors.New("book: internal invariant violation")
)
