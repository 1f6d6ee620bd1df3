package domain

import (
	"context"

	"github.com/google/uuid"
)

// GroupRepository defines the interface for group persistence operations
type GroupRepository interface {
	// Create creates a new group together with its initial members
	Create(ctx context.Context, group *Group) error

	// GetByID retrieves a group and its members
	GetByID(ctx context.Context, id uuid.UUID) (*Group, error)

	// AddMember adds a member to an existing group
	AddMember(ctx context.Context, member *Member) error

	// ListIDs returns the IDs of all groups
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ExpenseRepository defines the interface for expense persistence operations
type ExpenseRepository interface {
	// Create stores an expense with its allocation
	Create(ctx context.Context, expense *Expense, allocation Allocation) error

	// Replace stores a reversal and the expense replacing the reversed one.
	// Either both are stored or neither is.
	Replace(ctx context.Context, reversal *Expense, reversalAllocation Allocation, replacement *Expense, replacementAllocation Allocation) error

	// GetByID retrieves an expense and its allocation
	GetByID(ctx context.Context, id uuid.UUID) (*Expense, Allocation, error)

	// List retrieves a page of expenses for a group, newest first
	List(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*Expense, error)

	// Count returns the number of expenses recorded for a group
	Count(ctx context.Context, groupID uuid.UUID) (int, error)

	// IsReversed reports whether a reversal already exists for the expense
	IsReversed(ctx context.Context, id uuid.UUID) (bool, error)

	// Entries returns every expense of a group with its allocation, oldest first.
	// Used to rebuild a group ledger.
	Entries(ctx context.Context, groupID uuid.UUID) ([]ExpenseEntry, error)
}

// PaymentRepository defines the interface for settle-up payment persistence
type PaymentRepository interface {
	// Create stores a payment
	Create(ctx context.Context, payment *Payment) error

	// List retrieves the payments of a group, newest first
	List(ctx context.Context, groupID uuid.UUID) ([]*Payment, error)
}
