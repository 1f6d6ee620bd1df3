package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/splitledger-backend/internal/domain"
)

// expenseRepository implements domain.ExpenseRepository
type expenseRepository struct {
	db *DB
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *DB) domain.ExpenseRepository {
	return &expenseRepository{db: db}
}

const expenseColumns = `id, group_id, description, total, payer_id, policy, reverses_id, created_at`

// Create stores the expense header and one row per participant with its share
// in a single database transaction
func (r *expenseRepository) Create(ctx context.Context, expense *domain.Expense, allocation domain.Allocation) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := insertExpense(ctx, dbTx, expense, allocation); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Replace stores a reversal and its replacement in one database transaction
func (r *expenseRepository) Replace(ctx context.Context, reversal *domain.Expense, reversalAllocation domain.Allocation, replacement *domain.Expense, replacementAllocation domain.Allocation) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := insertExpense(ctx, dbTx, reversal, reversalAllocation); err != nil {
		return err
	}
	if err := insertExpense(ctx, dbTx, replacement, replacementAllocation); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertExpense(ctx context.Context, dbTx *sql.Tx, expense *domain.Expense, allocation domain.Allocation) error {
	if len(allocation.Shares) != len(expense.Participants) {
		return fmt.Errorf("%w: %d shares for %d participants", domain.ErrUnbalancedAllocation, len(allocation.Shares), len(expense.Participants))
	}

	var reverses uuid.NullUUID
	if expense.ReversesID != nil {
		reverses = uuid.NullUUID{UUID: *expense.ReversesID, Valid: true}
	}

	insertExpenseQuery := `
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := dbTx.ExecContext(ctx, insertExpenseQuery,
		expense.ID,
		expense.GroupID,
		expense.Description,
		int64(expense.Total),
		expense.PayerID,
		string(expense.Policy),
		reverses,
		expense.CreatedAt.UTC(),
	)
	if err != nil {
		if reverses.Valid && isUniqueViolation(err) {
			return fmt.Errorf("expense %s: %w", reverses.UUID, domain.ErrAlreadyReversed)
		}
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	insertParticipantQuery := `
		INSERT INTO expense_participants (expense_id, position, member_id, weight, share)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i, p := range expense.Participants {
		share := allocation.Shares[i]
		if share.MemberID != p.MemberID {
			return fmt.Errorf("%w: share %d belongs to %s, not %s", domain.ErrUnbalancedAllocation, i, share.MemberID, p.MemberID)
		}
		_, err = dbTx.ExecContext(ctx, insertParticipantQuery,
			expense.ID,
			i,
			p.MemberID,
			p.Weight.String(),
			int64(share.Amount),
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense participant: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an expense and rebuilds its allocation from the stored shares
func (r *expenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Expense, domain.Allocation, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`

	expense, err := scanExpense(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Allocation{}, fmt.Errorf("expense %s %w", id, domain.ErrNotFound)
		}
		return nil, domain.Allocation{}, fmt.Errorf("failed to get expense: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT expense_id, member_id, weight, share
		FROM expense_participants
		WHERE expense_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, domain.Allocation{}, fmt.Errorf("failed to query expense participants: %w", err)
	}
	defer rows.Close()

	allocation := domain.Allocation{Total: expense.Total}
	err = scanParticipants(rows, func(_ uuid.UUID, p domain.Participant, s domain.Share) {
		expense.Participants = append(expense.Participants, p)
		allocation.Shares = append(allocation.Shares, s)
	})
	if err != nil {
		return nil, domain.Allocation{}, err
	}

	return expense, allocation, nil
}

// List retrieves a page of expenses, newest first
func (r *expenseRepository) List(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*domain.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE group_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	expenses, err := r.queryExpenses(ctx, query, groupID, limit, offset)
	if err != nil {
		return nil, err
	}

	for _, e := range expenses {
		if err := r.loadParticipants(ctx, e); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

// Count returns the number of expenses recorded for a group, reversals included
func (r *expenseRepository) Count(ctx context.Context, groupID uuid.UUID) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE group_id = $1`, groupID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}
	return n, nil
}

// IsReversed reports whether a reversal referencing the expense exists
func (r *expenseRepository) IsReversed(ctx context.Context, id uuid.UUID) (bool, error) {
	var reversed bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM expenses WHERE reverses_id = $1)`, id).Scan(&reversed); err != nil {
		return false, fmt.Errorf("failed to check reversal: %w", err)
	}
	return reversed, nil
}

// Entries returns every expense of the group with its allocation, oldest first
func (r *expenseRepository) Entries(ctx context.Context, groupID uuid.UUID) ([]domain.ExpenseEntry, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE group_id = $1
		ORDER BY created_at, id
	`
	expenses, err := r.queryExpenses(ctx, query, groupID)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.ExpenseEntry, len(expenses))
	index := make(map[uuid.UUID]int, len(expenses))
	for i, e := range expenses {
		entries[i] = domain.ExpenseEntry{Expense: e, Allocation: domain.Allocation{Total: e.Total}}
		index[e.ID] = i
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT p.expense_id, p.member_id, p.weight, p.share
		FROM expense_participants p
		JOIN expenses e ON e.id = p.expense_id
		WHERE e.group_id = $1
		ORDER BY p.expense_id, p.position
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expense participants: %w", err)
	}
	defer rows.Close()

	err = scanParticipants(rows, func(expenseID uuid.UUID, p domain.Participant, s domain.Share) {
		i, ok := index[expenseID]
		if !ok {
			return
		}
		entries[i].Expense.Participants = append(entries[i].Expense.Participants, p)
		entries[i].Allocation.Shares = append(entries[i].Allocation.Shares, s)
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *expenseRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]*domain.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*domain.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}

func (r *expenseRepository) loadParticipants(ctx context.Context, e *domain.Expense) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT expense_id, member_id, weight, share
		FROM expense_participants
		WHERE expense_id = $1
		ORDER BY position
	`, e.ID)
	if err != nil {
		return fmt.Errorf("failed to query expense participants: %w", err)
	}
	defer rows.Close()

	return scanParticipants(rows, func(_ uuid.UUID, p domain.Participant, _ domain.Share) {
		e.Participants = append(e.Participants, p)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*domain.Expense, error) {
	var (
		e        domain.Expense
		total    int64
		policy   string
		reverses uuid.NullUUID
	)
	err := row.Scan(&e.ID, &e.GroupID, &e.Description, &total, &e.PayerID, &policy, &reverses, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Total = domain.Money(total)
	e.Policy = domain.SplitPolicy(policy)
	e.CreatedAt = e.CreatedAt.UTC()
	if reverses.Valid {
		id := reverses.UUID
		e.ReversesID = &id
	}
	return &e, nil
}

func scanParticipants(rows *sql.Rows, fn func(expenseID uuid.UUID, p domain.Participant, s domain.Share)) error {
	for rows.Next() {
		var (
			expenseID uuid.UUID
			p         domain.Participant
			share     int64
		)
		if err := rows.Scan(&expenseID, &p.MemberID, &p.Weight, &share); err != nil {
			return fmt.Errorf("failed to scan expense participant: %w", err)
		}
		fn(expenseID, p, domain.Share{MemberID: p.MemberID, Amount: domain.Money(share)})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating expense participants: %w", err)
	}
	return nil
}
