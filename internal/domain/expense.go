package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SplitPolicy represents how an expense total is divided among participants
type SplitPolicy string

const (
	SplitPolicyEqual      SplitPolicy = "EQUAL"
	SplitPolicyPercentage SplitPolicy = "PERCENTAGE"
	SplitPolicyExact      SplitPolicy = "EXACT"
)

// IsValid reports whether the policy is one of the supported policies
func (p SplitPolicy) IsValid() bool {
	switch p {
	case SplitPolicyEqual, SplitPolicyPercentage, SplitPolicyExact:
		return true
	}
	return false
}

// Participant is one member taking part in an expense
type Participant struct {
	MemberID uuid.UUID
	Weight   decimal.Decimal // Ignored for EQUAL, percentage (0-100) for PERCENTAGE, minor units for EXACT
}

// Expense represents a recorded group expense.
// An expense is never edited: a correction is a reversal expense plus a new one.
type Expense struct {
	ID           uuid.UUID
	GroupID      uuid.UUID
	Description  string
	Total        Money
	PayerID      uuid.UUID
	Policy       SplitPolicy
	Participants []Participant
	ReversesID   *uuid.UUID // NOT NULL when this expense cancels an earlier one
	CreatedAt    time.Time
}

// IsReversal reports whether the expense cancels an earlier expense
func (e *Expense) IsReversal() bool {
	return e.ReversesID != nil
}

// Validate ensures the expense header is well formed.
// Weights are checked by the split calculator, which owns the policy rules.
func (e *Expense) Validate() error {
	if e.GroupID == uuid.Nil {
		return fmt.Errorf("%w: expense must reference a group", ErrValidation)
	}
	if e.PayerID == uuid.Nil {
		return fmt.Errorf("%w: expense must have a payer", ErrValidation)
	}
	if e.Total <= 0 {
		return fmt.Errorf("%w: expense total must be positive", ErrValidation)
	}
	if !e.Policy.IsValid() {
		return fmt.Errorf("%w: unknown split policy %q", ErrValidation, e.Policy)
	}
	if len(e.Participants) == 0 {
		return fmt.Errorf("%w: expense must have at least one participant", ErrInvalidPolicyInput)
	}
	return nil
}
