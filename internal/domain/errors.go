package domain

import "errors"

// Engine errors. All of them are structural: retrying the same input yields the same error.
var (
	// ErrInvalidPolicyInput is returned when participants or weights cannot be split under the requested policy
	ErrInvalidPolicyInput = errors.New("invalid policy input")

	// ErrUnbalancedAllocation is returned when an allocation does not sum to its expense total
	ErrUnbalancedAllocation = errors.New("unbalanced allocation")

	// ErrInvariantViolation is returned when balances stop summing to zero
	ErrInvariantViolation = errors.New("invariant violation")
)

// Service errors
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrAlreadyReversed  = errors.New("expense already reversed")
	ErrUnknownCurrency  = errors.New("unknown currency")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrMemberNotInGroup = errors.New("member not in group")
)
