package expense

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simaogato/splitledger-backend/internal/domain"
	"github.com/simaogato/splitledger-backend/internal/usecase/ledger"
	"github.com/simaogato/splitledger-backend/internal/usecase/splitter"
)

// RecordExpenseInput represents the input for recording an expense.
// Amounts are already in minor units; decimal strings are converted by the caller.
type RecordExpenseInput struct {
	GroupID      uuid.UUID
	Description  string
	Total        domain.Money
	PayerID      uuid.UUID
	Policy       domain.SplitPolicy
	Participants []domain.Participant // Optional for EQUAL: defaults to the whole group
}

// Result is an expense as stored, with its allocation and the balances right after it was applied
type Result struct {
	Expense    *domain.Expense
	Allocation domain.Allocation
	Balances   domain.BalanceSnapshot
}

// ExpenseService handles recording, reversing and correcting group expenses
type ExpenseService struct {
	GroupRepo   domain.GroupRepository
	ExpenseRepo domain.ExpenseRepository
	Ledgers     *ledger.Registry
	Publisher   domain.EventPublisher
	logger      *zap.Logger
}

// NewExpenseService creates a new ExpenseService instance
func NewExpenseService(
	groupRepo domain.GroupRepository,
	expenseRepo domain.ExpenseRepository,
	ledgers *ledger.Registry,
	publisher domain.EventPublisher,
	logger *zap.Logger,
) *ExpenseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpenseService{
		GroupRepo:   groupRepo,
		ExpenseRepo: expenseRepo,
		Ledgers:     ledgers,
		Publisher:   publisher,
		logger:      logger.Named("expense"),
	}
}

// PreviewSplit allocates an amount without recording anything
func (s *ExpenseService) PreviewSplit(total domain.Money, policy domain.SplitPolicy, participants []domain.Participant) (domain.Allocation, error) {
	return splitter.Allocate(total, policy, participants)
}

// RecordExpense records a new expense and folds it into the group balances
// Logic:
//  1. Build and validate the expense against the group roster
//  2. Allocate the total with the split calculator
//  3. Under the group lock: save expense + allocation, then apply it to the ledger
//  4. Publish an expense.recorded event
func (s *ExpenseService) RecordExpense(ctx context.Context, input RecordExpenseInput) (*Result, error) {
	expense, allocation, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	var balances domain.BalanceSnapshot
	err = s.Ledgers.Do(ctx, expense.GroupID, func(l *ledger.Ledger) error {
		balances, err = s.commit(ctx, l, expense, allocation)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense recorded",
		zap.Stringer("group_id", expense.GroupID),
		zap.Stringer("expense_id", expense.ID),
		zap.Int64("total", int64(expense.Total)),
		zap.String("policy", string(expense.Policy)),
	)
	s.publish(ctx, domain.EventExpenseRecorded, expense, balances)

	return &Result{Expense: expense, Allocation: allocation, Balances: balances}, nil
}

// ReverseExpense cancels an expense by recording its reversal.
// The original expense is left untouched; an expense can only be reversed once.
func (s *ExpenseService) ReverseExpense(ctx context.Context, expenseID uuid.UUID) (*Result, error) {
	original, allocation, err := s.ExpenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	var result *Result
	err = s.Ledgers.Do(ctx, original.GroupID, func(l *ledger.Ledger) error {
		result, err = s.reverse(ctx, l, original, allocation)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense reversed",
		zap.Stringer("group_id", original.GroupID),
		zap.Stringer("expense_id", original.ID),
		zap.Stringer("reversal_id", result.Expense.ID),
	)
	s.publish(ctx, domain.EventExpenseReversed, result.Expense, result.Balances)

	return result, nil
}

// CorrectExpense replaces an expense: the original is reversed and the corrected one recorded.
// Logic:
//  1. Validate and allocate the replacement before touching anything
//  2. Under the group lock: store reversal + replacement in one repository call
//  3. Fold both into the ledger as a single change
//
// Both results carry the balances after the whole correction.
func (s *ExpenseService) CorrectExpense(ctx context.Context, expenseID uuid.UUID, input RecordExpenseInput) (reversal, corrected *Result, err error) {
	original, originalAllocation, err := s.ExpenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, nil, err
	}
	if input.GroupID == uuid.Nil {
		input.GroupID = original.GroupID
	}
	if input.GroupID != original.GroupID {
		return nil, nil, fmt.Errorf("%w: a correction must stay in the expense's group", domain.ErrValidation)
	}

	expense, allocation, err := s.prepare(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	if err := allocation.Validate(); err != nil {
		return nil, nil, err
	}
	if err := originalAllocation.Validate(); err != nil {
		return nil, nil, err
	}

	err = s.Ledgers.Do(ctx, original.GroupID, func(l *ledger.Ledger) error {
		reversalExpense, err := s.newReversal(ctx, original)
		if err != nil {
			return err
		}
		if err := s.ExpenseRepo.Replace(ctx, reversalExpense, originalAllocation, expense, allocation); err != nil {
			return fmt.Errorf("failed to save correction: %w", err)
		}

		balances, err := l.Replace(originalAllocation, original.PayerID, allocation, expense.PayerID)
		if err != nil {
			s.Ledgers.Evict(l.GroupID())
			s.logger.Error("ledger rejected a stored correction", zap.Stringer("expense_id", expense.ID), zap.Error(err))
			return err
		}
		reversal = &Result{Expense: reversalExpense, Allocation: originalAllocation, Balances: balances}
		corrected = &Result{Expense: expense, Allocation: allocation, Balances: balances}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("expense corrected",
		zap.Stringer("group_id", original.GroupID),
		zap.Stringer("expense_id", original.ID),
		zap.Stringer("replacement_id", expense.ID),
	)
	s.publish(ctx, domain.EventExpenseReversed, reversal.Expense, reversal.Balances)
	s.publish(ctx, domain.EventExpenseRecorded, corrected.Expense, corrected.Balances)

	return reversal, corrected, nil
}

// GetExpense retrieves an expense with its allocation
func (s *ExpenseService) GetExpense(ctx context.Context, expenseID uuid.UUID) (*domain.Expense, domain.Allocation, error) {
	return s.ExpenseRepo.GetByID(ctx, expenseID)
}

// ListExpenses returns a page of a group's expenses, newest first, and the total count
func (s *ExpenseService) ListExpenses(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*domain.Expense, int, error) {
	if limit <= 0 {
		return nil, 0, fmt.Errorf("%w: limit must be positive", domain.ErrValidation)
	}
	if offset < 0 {
		return nil, 0, fmt.Errorf("%w: offset must be non-negative", domain.ErrValidation)
	}

	total, err := s.ExpenseRepo.Count(ctx, groupID)
	if err != nil {
		return nil, 0, err
	}
	expenses, err := s.ExpenseRepo.List(ctx, groupID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

// prepare builds the expense, checks it against the roster and allocates it
func (s *ExpenseService) prepare(ctx context.Context, input RecordExpenseInput) (*domain.Expense, domain.Allocation, error) {
	g, err := s.GroupRepo.GetByID(ctx, input.GroupID)
	if err != nil {
		return nil, domain.Allocation{}, err
	}

	participants := input.Participants
	if len(participants) == 0 && input.Policy == domain.SplitPolicyEqual {
		for _, id := range g.MemberIDs() {
			participants = append(participants, domain.Participant{MemberID: id})
		}
	}

	expense := &domain.Expense{
		ID:           uuid.New(),
		GroupID:      g.ID,
		Description:  strings.TrimSpace(input.Description),
		Total:        input.Total,
		PayerID:      input.PayerID,
		Policy:       input.Policy,
		Participants: participants,
		CreatedAt:    time.Now().UTC(),
	}
	if err := expense.Validate(); err != nil {
		return nil, domain.Allocation{}, err
	}

	if !g.HasMember(expense.PayerID) {
		return nil, domain.Allocation{}, fmt.Errorf("%w: payer %s", domain.ErrMemberNotInGroup, expense.PayerID)
	}
	for _, p := range participants {
		if !g.HasMember(p.MemberID) {
			return nil, domain.Allocation{}, fmt.Errorf("%w: participant %s", domain.ErrMemberNotInGroup, p.MemberID)
		}
	}

	allocation, err := splitter.Allocate(expense.Total, expense.Policy, expense.Participants)
	if err != nil {
		return nil, domain.Allocation{}, err
	}
	return expense, allocation, nil
}

// commit stores the expense and applies it. Caller must hold the group lock.
func (s *ExpenseService) commit(ctx context.Context, l *ledger.Ledger, expense *domain.Expense, allocation domain.Allocation) (domain.BalanceSnapshot, error) {
	// Reject a bad allocation before it reaches storage
	if err := allocation.Validate(); err != nil {
		return nil, err
	}

	if err := s.ExpenseRepo.Create(ctx, expense, allocation); err != nil {
		return nil, fmt.Errorf("failed to save expense: %w", err)
	}

	balances, err := l.ApplyExpense(allocation, expense.PayerID)
	if err != nil {
		// Storage already holds the expense: rebuild the ledger from storage on next access
		s.Ledgers.Evict(l.GroupID())
		s.logger.Error("ledger rejected a stored expense", zap.Stringer("expense_id", expense.ID), zap.Error(err))
		return nil, err
	}
	return balances, nil
}

// reverse stores a reversal of original and applies it. Caller must hold the group lock.
func (s *ExpenseService) reverse(ctx context.Context, l *ledger.Ledger, original *domain.Expense, allocation domain.Allocation) (*Result, error) {
	reversal, err := s.newReversal(ctx, original)
	if err != nil {
		return nil, err
	}

	if err := allocation.Validate(); err != nil {
		return nil, err
	}
	if err := s.ExpenseRepo.Create(ctx, reversal, allocation); err != nil {
		return nil, fmt.Errorf("failed to save reversal: %w", err)
	}

	balances, err := l.Reverse(allocation, original.PayerID)
	if err != nil {
		s.Ledgers.Evict(l.GroupID())
		s.logger.Error("ledger rejected a stored reversal", zap.Stringer("expense_id", reversal.ID), zap.Error(err))
		return nil, err
	}
	return &Result{Expense: reversal, Allocation: allocation, Balances: balances}, nil
}

// newReversal builds the reversal of original once it is known not to be reversed yet.
// Caller must hold the group lock.
func (s *ExpenseService) newReversal(ctx context.Context, original *domain.Expense) (*domain.Expense, error) {
	if original.IsReversal() {
		return nil, fmt.Errorf("%w: a reversal cannot be reversed", domain.ErrValidation)
	}

	reversed, err := s.ExpenseRepo.IsReversed(ctx, original.ID)
	if err != nil {
		return nil, err
	}
	if reversed {
		return nil, fmt.Errorf("expense %s: %w", original.ID, domain.ErrAlreadyReversed)
	}

	originalID := original.ID
	return &domain.Expense{
		ID:           uuid.New(),
		GroupID:      original.GroupID,
		Description:  "Reversal: " + original.Description,
		Total:        original.Total,
		PayerID:      original.PayerID,
		Policy:       original.Policy,
		Participants: original.Participants,
		ReversesID:   &originalID,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (s *ExpenseService) publish(ctx context.Context, eventType domain.EventType, expense *domain.Expense, balances domain.BalanceSnapshot) {
	if s.Publisher == nil {
		return
	}
	event := domain.LedgerEvent{
		Type:       eventType,
		GroupID:    expense.GroupID,
		SubjectID:  expense.ID,
		Balances:   balances,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.Publisher.Publish(ctx, event); err != nil {
		// The change is committed; a lost event is logged, not returned
		s.logger.Warn("failed to publish ledger event",
			zap.String("type", string(eventType)),
			zap.Stringer("subject_id", expense.ID),
			zap.Error(err),
		)
	}
}
