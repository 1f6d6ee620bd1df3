package domain

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// BalanceSnapshot maps each member to a signed net balance.
// Positive = the group owes the member, negative = the member owes the group.
// A well-formed snapshot always sums to zero.
type BalanceSnapshot map[uuid.UUID]Money

// Sum returns the sum of all balances
func (s BalanceSnapshot) Sum() Money {
	var total Money
	for _, v := range s {
		total += v
	}
	return total
}

// Validate ensures the snapshot is a closed system.
// Credits and debts are totalled apart so a sum that wraps around int64 is caught.
func (s BalanceSnapshot) Validate() error {
	var credits, debts Money
	for id, v := range s {
		switch {
		case v == math.MinInt64:
			return fmt.Errorf("%w: balance of %s out of range", ErrInvariantViolation, id)
		case v > 0:
			if credits > math.MaxInt64-v {
				return fmt.Errorf("%w: credits overflow", ErrInvariantViolation)
			}
			credits += v
		case v < 0:
			if debts > math.MaxInt64+v {
				return fmt.Errorf("%w: debts overflow", ErrInvariantViolation)
			}
			debts -= v
		}
	}
	if credits != debts {
		return fmt.Errorf("%w: balances sum to %d", ErrInvariantViolation, credits-debts)
	}
	return nil
}

// Clone returns an independent copy of the snapshot
func (s BalanceSnapshot) Clone() BalanceSnapshot {
	out := make(BalanceSnapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// NonZero returns the number of members with an outstanding balance
func (s BalanceSnapshot) NonZero() int {
	n := 0
	for _, v := range s {
		if v != 0 {
			n++
		}
	}
	return n
}

// Members returns the member IDs in ascending byte order
func (s BalanceSnapshot) Members() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return CompareMemberIDs(ids[i], ids[j]) < 0
	})
	return ids
}

// CompareMemberIDs gives member identifiers a stable total order
func CompareMemberIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// Transfer is one payment from a debtor to a creditor
type Transfer struct {
	From   uuid.UUID
	To     uuid.UUID
	Amount Money
}

// Validate ensures the transfer moves a positive amount between two different members
func (t Transfer) Validate() error {
	if t.From == uuid.Nil || t.To == uuid.Nil {
		return fmt.Errorf("%w: transfer must have both parties", ErrValidation)
	}
	if t.From == t.To {
		return fmt.Errorf("%w: transfer parties must differ", ErrValidation)
	}
	if t.Amount <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", ErrValidation)
	}
	return nil
}

// TransferPlan is an ordered list of transfers that zeroes a snapshot.
// It is derived on demand and never stored as ledger state.
type TransferPlan []Transfer

// Total returns the amount moved by the whole plan
func (p TransferPlan) Total() Money {
	var total Money
	for _, t := range p {
		total += t.Amount
	}
	return total
}
