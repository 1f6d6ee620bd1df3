package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/splitledger-backend/internal/domain"
)

// Replay rebuilds a group ledger from its recorded history.
// Balances are sums, so the order of entries does not change the result.
func Replay(groupID uuid.UUID, memberIDs []uuid.UUID, entries []domain.ExpenseEntry, payments []*domain.Payment) (*Ledger, error) {
	l := New(groupID, memberIDs...)

	for _, e := range entries {
		var err error
		if e.Expense.IsReversal() {
			_, err = l.Reverse(e.Allocation, e.Expense.PayerID)
		} else {
			_, err = l.ApplyExpense(e.Allocation, e.Expense.PayerID)
		}
		if err != nil {
			return nil, fmt.Errorf("replay expense %s: %w", e.Expense.ID, err)
		}
	}

	for _, p := range payments {
		if _, err := l.ApplyTransfer(p.Transfer); err != nil {
			return nil, fmt.Errorf("replay payment %s: %w", p.ID, err)
		}
	}

	return l, nil
}

// RepositoryLoader returns a Loader that replays a group's expenses and payments from storage
func RepositoryLoader(groups domain.GroupRepository, expenses domain.ExpenseRepository, payments domain.PaymentRepository) Loader {
	return func(ctx context.Context, groupID uuid.UUID) (*Ledger, error) {
		group, err := groups.GetByID(ctx, groupID)
		if err != nil {
			return nil, err
		}

		entries, err := expenses.Entries(ctx, groupID)
		if err != nil {
			return nil, fmt.Errorf("failed to load expenses: %w", err)
		}

		recorded, err := payments.List(ctx, groupID)
		if err != nil {
			return nil, fmt.Errorf("failed to load payments: %w", err)
		}

		return Replay(groupID, group.MemberIDs(), entries, recorded)
	}
}
