// Package memory provides in-process repositories for local runs and tests.
// Data is lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/simaogato/splitledger-backend/internal/domain"
)

// Store holds every collection behind one lock
type Store struct {
	mu          sync.RWMutex
	groups      map[uuid.UUID]*domain.Group
	groupOrder  []uuid.UUID
	expenses    map[uuid.UUID]storedExpense
	expenseList map[uuid.UUID][]uuid.UUID // group ID -> expense IDs, oldest first
	reversedBy  map[uuid.UUID]uuid.UUID   // original expense ID -> reversal ID
	payments    map[uuid.UUID][]*domain.Payment
}

type storedExpense struct {
	expense    domain.Expense
	allocation domain.Allocation
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		groups:      make(map[uuid.UUID]*domain.Group),
		expenses:    make(map[uuid.UUID]storedExpense),
		expenseList: make(map[uuid.UUID][]uuid.UUID),
		reversedBy:  make(map[uuid.UUID]uuid.UUID),
		payments:    make(map[uuid.UUID][]*domain.Payment),
	}
}

// Groups returns the group repository backed by the store
func (s *Store) Groups() domain.GroupRepository { return &groupRepository{s} }

// Expenses returns the expense repository backed by the store
func (s *Store) Expenses() domain.ExpenseRepository { return &expenseRepository{s} }

// Payments returns the payment repository backed by the store
func (s *Store) Payments() domain.PaymentRepository { return &paymentRepository{s} }

type groupRepository struct{ s *Store }

func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.groups[group.ID]; ok {
		return fmt.Errorf("group %s already exists", group.ID)
	}
	r.s.groups[group.ID] = copyGroup(group)
	r.s.groupOrder = append(r.s.groupOrder, group.ID)
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	g, ok := r.s.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s %w", id, domain.ErrNotFound)
	}
	return copyGroup(g), nil
}

func (r *groupRepository) AddMember(ctx context.Context, member *domain.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.groups[member.GroupID]
	if !ok {
		return fmt.Errorf("group %s %w", member.GroupID, domain.ErrNotFound)
	}
	g.Members = append(g.Members, *member)
	return nil
}

func (r *groupRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return append([]uuid.UUID(nil), r.s.groupOrder...), nil
}

type expenseRepository struct{ s *Store }

func (r *expenseRepository) Create(ctx context.Context, expense *domain.Expense, allocation domain.Allocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkInsert(expense); err != nil {
		return err
	}
	r.insert(expense, allocation)
	return nil
}

func (r *expenseRepository) Replace(ctx context.Context, reversal *domain.Expense, reversalAllocation domain.Allocation, replacement *domain.Expense, replacementAllocation domain.Allocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkInsert(reversal); err != nil {
		return err
	}
	if err := r.checkInsert(replacement); err != nil {
		return err
	}
	if reversal.ID == replacement.ID {
		return fmt.Errorf("expense %s already exists", replacement.ID)
	}
	r.insert(reversal, reversalAllocation)
	r.insert(replacement, replacementAllocation)
	return nil
}

// checkInsert reports why an expense cannot be stored. Caller must hold the write lock.
func (r *expenseRepository) checkInsert(expense *domain.Expense) error {
	if _, ok := r.s.expenses[expense.ID]; ok {
		return fmt.Errorf("expense %s already exists", expense.ID)
	}
	if expense.ReversesID != nil {
		if _, taken := r.s.reversedBy[*expense.ReversesID]; taken {
			return fmt.Errorf("expense %s: %w", *expense.ReversesID, domain.ErrAlreadyReversed)
		}
	}
	return nil
}

func (r *expenseRepository) insert(expense *domain.Expense, allocation domain.Allocation) {
	if expense.ReversesID != nil {
		r.s.reversedBy[*expense.ReversesID] = expense.ID
	}
	r.s.expenses[expense.ID] = storedExpense{
		expense:    copyExpense(expense),
		allocation: copyAllocation(allocation),
	}
	r.s.expenseList[expense.GroupID] = append(r.s.expenseList[expense.GroupID], expense.ID)
}

func (r *expenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Expense, domain.Allocation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored, ok := r.s.expenses[id]
	if !ok {
		return nil, domain.Allocation{}, fmt.Errorf("expense %s %w", id, domain.ErrNotFound)
	}
	e := copyExpense(&stored.expense)
	return &e, copyAllocation(stored.allocation), nil
}

func (r *expenseRepository) List(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*domain.Expense, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := r.s.expenseList[groupID]
	out := make([]*domain.Expense, 0, limit)
	// Newest first
	for i := len(ids) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		stored := r.s.expenses[ids[i]]
		e := copyExpense(&stored.expense)
		out = append(out, &e)
	}
	return out, nil
}

func (r *expenseRepository) Count(ctx context.Context, groupID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return len(r.s.expenseList[groupID]), nil
}

func (r *expenseRepository) IsReversed(ctx context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.reversedBy[id]
	return ok, nil
}

func (r *expenseRepository) Entries(ctx context.Context, groupID uuid.UUID) ([]domain.ExpenseEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := r.s.expenseList[groupID]
	entries := make([]domain.ExpenseEntry, 0, len(ids))
	for _, id := range ids {
		stored := r.s.expenses[id]
		e := copyExpense(&stored.expense)
		entries = append(entries, domain.ExpenseEntry{Expense: &e, Allocation: copyAllocation(stored.allocation)})
	}
	return entries, nil
}

type paymentRepository struct{ s *Store }

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p := *payment
	r.s.payments[payment.GroupID] = append(r.s.payments[payment.GroupID], &p)
	return nil
}

func (r *paymentRepository) List(ctx context.Context, groupID uuid.UUID) ([]*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored := r.s.payments[groupID]
	out := make([]*domain.Payment, 0, len(stored))
	for _, p := range stored {
		c := *p
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func copyGroup(g *domain.Group) *domain.Group {
	c := *g
	c.Members = append([]domain.Member(nil), g.Members...)
	return &c
}

func copyExpense(e *domain.Expense) domain.Expense {
	c := *e
	c.Participants = append([]domain.Participant(nil), e.Participants...)
	if e.ReversesID != nil {
		id := *e.ReversesID
		c.ReversesID = &id
	}
	return c
}

func copyAllocation(a domain.Allocation) domain.Allocation {
	return domain.Allocation{Total: a.Total, Shares: append([]domain.Share(nil), a.Shares...)}
}
