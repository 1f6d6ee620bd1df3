package domain

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Share is the amount one participant owes for an expense
type Share struct {
	MemberID uuid.UUID
	Amount   Money
}

// Allocation is the per-participant breakdown of an expense total.
// Shares keep the participant input order.
type Allocation struct {
	Total  Money
	Shares []Share
}

// Sum returns the sum of all shares
func (a Allocation) Sum() Money {
	var total Money
	for _, s := range a.Shares {
		total += s.Amount
	}
	return total
}

// Validate ensures the shares add up to the total exactly
func (a Allocation) Validate() error {
	if len(a.Shares) == 0 {
		return fmt.Errorf("%w: allocation has no shares", ErrUnbalancedAllocation)
	}
	var sum Money
	for _, s := range a.Shares {
		if s.Amount < 0 {
			return fmt.Errorf("%w: negative share %d for %s", ErrUnbalancedAllocation, s.Amount, s.MemberID)
		}
		if sum > math.MaxInt64-s.Amount {
			return fmt.Errorf("%w: shares overflow", ErrUnbalancedAllocation)
		}
		sum += s.Amount
	}
	if sum != a.Total {
		return fmt.Errorf("%w: shares sum to %d, total is %d", ErrUnbalancedAllocation, sum, a.Total)
	}
	return nil
}

// ShareOf returns the amount owed by a member, zero if the member does not take part
func (a Allocation) ShareOf(memberID uuid.UUID) Money {
	var total Money
	for _, s := range a.Shares {
		if s.MemberID == memberID {
			total += s.Amount
		}
	}
	return total
}

// ExpenseEntry pairs a stored expense with the allocation it was recorded with
type ExpenseEntry struct {
	Expense    *Expense
	Allocation Allocation
}
