package fund

import (
	"errors"
	"fmt"
)

// Error kinds. Every concrete failure below wraps exactly one of these so
// callers can branch on the broad category with errors.Is.
var (
	// ErrUnauthorized marks callers lacking a required role or standing.
	ErrUnauthorized = errors.New("fund: unauthorized")
	// ErrState marks operations invalid for the current ledger state.
	ErrState = errors.New("fund: invalid state")
	// ErrValidation marks malformed or out-of-policy inputs.
	ErrValidation = errors.New("fund: validation failed")
	// ErrInsufficientFunds marks failures of the treasury, coverage gate or
	// asset ledger to honour a movement.
	ErrInsufficientFunds = errors.New("fund: insufficient funds")
	// ErrArithmetic marks degenerate numeric outcomes where a positive
	// result is required.
	ErrArithmetic = errors.New("fund: arithmetic error")
)

func stateError(msg string) error {
	return fmt.Errorf("%w: %s", ErrState, msg)
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func fundsError(msg string) error {
	return fmt.Errorf("%w: %s", ErrInsufficientFunds, msg)
}

func authError(msg string) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
}

func arithmeticError(msg string) error {
	return fmt.Errorf("%w: %s", ErrArithmetic, msg)
}

var (
	ErrAlreadyRegistered = stateError("already registered")
	ErrDepositsSuspended = stateError("deposits suspended")
	ErrPoolNotFound      = stateError("pool not found")
	ErrPoolInactive      = stateError("pool inactive")
	ErrPoolFull          = stateError("pool capacity exceeded")
	ErrPoolExists        = stateError("pool id already exists")
	ErrPoolAlreadyPaid   = stateError("pool already paid out")
	ErrPoolEmpty         = stateError("pool has no deposits")
	ErrNothingToWithdraw = stateError("nothing to withdraw")

	ErrNotRegistered         = validationError("caller not registered")
	ErrSelfReferral          = validationError("self referral")
	ErrReferrerNotRegistered = validationError("referrer not registered")
	ErrDownlineLimit         = validationError("direct referral limit reached")
	ErrInvalidAmount         = validationError("amount must be positive")
	ErrBelowIngotPrice       = validationError("amount below one-ingot price")
	ErrUnknownToken          = validationError("unsupported token")
	ErrPoolIDOutOfRange      = validationError("pool id out of range")
	ErrInvalidPoolKind       = validationError("invalid pool kind")
	ErrBelowMinimumWithdraw  = validationError("claimable below minimum withdrawal")

	ErrBlacklisted = authError("caller blacklisted")

	ErrCoverageBelowThreshold = fundsError("coverage ratio below threshold")
	ErrTreasuryBalance        = fundsError("treasury balance too low")
	ErrLedgerBalance          = fundsError("asset ledger balance too low")

	ErrZeroIngots = arithmeticError("deposit yields zero ingots")
)

// Engine wiring failures; these indicate misconfiguration rather than a
// rejected operation.
var (
	errNilState  = errors.New("fund engine: state not configured")
	errNilLedger = errors.New("fund engine: asset ledger not configured")
)
