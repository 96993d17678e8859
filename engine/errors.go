package engine

import "errors"

// Service-level errors. Domain failures surface unchanged from
// domain/book and domain/amm; callers match with errors.Is.
var (
	// ErrInsufficientBalance is returned when a debit would take an
	// account below zero.
	ErrInsufficientBalance = errors.New("engine: insufficient balance")

	// ErrTradingPaused is returned for trade operations on a pair whose
	// trading flag is set.
	ErrTradingPaused = errors.New("engine: trading paused")

	// ErrManagementPaused is returned for deposits, withdrawals and pool
	// funding on a pair whose management flag is set.
	ErrManagementPaused = errors.New("engine: management paused")

	// ErrSwapMismatch is returned when the injected swap executor
	// reports an output different from the engine's own quote. The
	// operation aborts with no state change.
	ErrSwapMismatch = errors.New("engine: executed swap does not match quote")

	// ErrUnknownToken is returned when a balance operation names a token
	// the pair does not trade.
	ErrUnknownToken = errors.New("engine: token not traded by pair")
)
