package ledger

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/simaogato/splitledger-backend/internal/domain"
)

// Ledger holds the running balances of one group.
// Every mutation is atomic: either the whole change is folded in or nothing is.
type Ledger struct {
	mu       sync.RWMutex
	groupID  uuid.UUID
	balances domain.BalanceSnapshot
}

// New creates an empty ledger for a group with a zero balance for every given member
func New(groupID uuid.UUID, memberIDs ...uuid.UUID) *Ledger {
	balances := make(domain.BalanceSnapshot, len(memberIDs))
	for _, id := range memberIDs {
		balances[id] = 0
	}
	return &Ledger{groupID: groupID, balances: balances}
}

// FromSnapshot restores a ledger from a stored snapshot.
// Returns ErrInvariantViolation if the snapshot does not sum to zero.
func FromSnapshot(groupID uuid.UUID, snapshot domain.BalanceSnapshot) (*Ledger, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return &Ledger{groupID: groupID, balances: snapshot.Clone()}, nil
}

// GroupID returns the group this ledger belongs to
func (l *Ledger) GroupID() uuid.UUID {
	return l.groupID
}

// AddMember opens a zero balance for a member joining the group
func (l *Ledger) AddMember(memberID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.balances[memberID]; !ok {
		l.balances[memberID] = 0
	}
}

// ApplyExpense folds an allocated expense into the balances.
// Logic:
//  1. Validate the allocation sums to its total
//  2. Payer balance += total
//  3. Every participant balance -= their share (the payer too, if participating)
//  4. Assert the balances still sum to zero
func (l *Ledger) ApplyExpense(allocation domain.Allocation, payerID uuid.UUID) (domain.BalanceSnapshot, error) {
	return l.fold(allocation, payerID, 1)
}

// Reverse removes a previously applied expense, the exact inverse of ApplyExpense
func (l *Ledger) Reverse(allocation domain.Allocation, payerID uuid.UUID) (domain.BalanceSnapshot, error) {
	return l.fold(allocation, payerID, -1)
}

// Replace reverses one expense and applies its replacement as a single change.
// If either step fails the ledger is left untouched.
func (l *Ledger) Replace(reversed domain.Allocation, reversedPayerID uuid.UUID, replacement domain.Allocation, replacementPayerID uuid.UUID) (domain.BalanceSnapshot, error) {
	if err := checkFold(reversed, reversedPayerID); err != nil {
		return nil, err
	}
	if err := checkFold(replacement, replacementPayerID); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.balances.Clone()
	if err := apply(next, reversed, reversedPayerID, -1); err != nil {
		return nil, fmt.Errorf("ledger %s: %w", l.groupID, err)
	}
	if err := apply(next, replacement, replacementPayerID, 1); err != nil {
		return nil, fmt.Errorf("ledger %s: %w", l.groupID, err)
	}

	return l.commit(next)
}

// ApplyTransfer records a settle-up payment: the debtor paying brings their balance up,
// the creditor receiving brings theirs down
func (l *Ledger) ApplyTransfer(transfer domain.Transfer) (domain.BalanceSnapshot, error) {
	if err := transfer.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.balances.Clone()
	if err := credit(next, transfer.From, transfer.Amount); err != nil {
		return nil, fmt.Errorf("ledger %s: %w", l.groupID, err)
	}
	if err := credit(next, transfer.To, -transfer.Amount); err != nil {
		return nil, fmt.Errorf("ledger %s: %w", l.groupID, err)
	}

	return l.commit(next)
}

// Snapshot returns a copy of the current balances, unaffected by later mutations
func (l *Ledger) Snapshot() domain.BalanceSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.balances.Clone()
}

// Balance returns the current balance of one member
func (l *Ledger) Balance(memberID uuid.UUID) domain.Money {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.balances[memberID]
}

func (l *Ledger) fold(allocation domain.Allocation, payerID uuid.UUID, sign domain.Money) (domain.BalanceSnapshot, error) {
	if err := checkFold(allocation, payerID); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Work on a copy so a failed assertion leaves the ledger untouched
	next := l.balances.Clone()
	if err := apply(next, allocation, payerID, sign); err != nil {
		return nil, fmt.Errorf("ledger %s: %w", l.groupID, err)
	}

	return l.commit(next)
}

func checkFold(allocation domain.Allocation, payerID uuid.UUID) error {
	if payerID == uuid.Nil {
		return fmt.Errorf("%w: allocation has no payer", domain.ErrUnbalancedAllocation)
	}
	return allocation.Validate()
}

// apply credits the payer with the total and debits every share, scaled by sign
func apply(balances domain.BalanceSnapshot, allocation domain.Allocation, payerID uuid.UUID, sign domain.Money) error {
	if err := credit(balances, payerID, sign*allocation.Total); err != nil {
		return err
	}
	for _, share := range allocation.Shares {
		if err := credit(balances, share.MemberID, -sign*share.Amount); err != nil {
			return err
		}
	}
	return nil
}

// credit adds amount to a member balance, refusing to wrap around int64.
// A wrapped sum still nets to zero, so commit alone would not catch it.
func credit(balances domain.BalanceSnapshot, memberID uuid.UUID, amount domain.Money) error {
	current := balances[memberID]
	if (amount > 0 && current > math.MaxInt64-amount) || (amount < 0 && current <= math.MinInt64-amount) {
		return fmt.Errorf("%w: balance of %s overflows", domain.ErrInvariantViolation, memberID)
	}
	balances[memberID] = current + amount
	return nil
}

// commit swaps in the new balances once they pass the zero-sum check.
// Caller must hold the write lock.
func (l *Ledger) commit(next domain.BalanceSnapshot) (domain.BalanceSnapshot, error) {
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("ledger %s: %w", l.groupID, err)
	}
	l.balances = next
	return next.Clone(), nil
}
