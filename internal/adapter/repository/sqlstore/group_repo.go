package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/splitledger-backend/internal/domain"
)

// groupRepository implements domain.GroupRepository
type groupRepository struct {
	db *DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *DB) domain.GroupRepository {
	return &groupRepository{db: db}
}

// Create inserts the group and its initial members in one database transaction
func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO expense_groups (id, name, currency, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := dbTx.ExecContext(ctx, query, group.ID, group.Name, group.Currency, group.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for i := range group.Members {
		if err := insertMember(ctx, dbTx, &group.Members[i], i); err != nil {
			return err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a group with its members in joining order
func (r *groupRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	query := `
		SELECT id, name, currency, created_at
		FROM expense_groups
		WHERE id = $1
	`

	var g domain.Group
	err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.Currency, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %s %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	g.CreatedAt = g.CreatedAt.UTC()

	membersQuery := `
		SELECT id, group_id, name, joined_at
		FROM members
		WHERE group_id = $1
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, membersQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.GroupID, &m.Name, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.JoinedAt = m.JoinedAt.UTC()
		g.Members = append(g.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return &g, nil
}

// AddMember appends a member after the existing ones
func (r *groupRepository) AddMember(ctx context.Context, member *domain.Member) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	var exists bool
	err = dbTx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM expense_groups WHERE id = $1)`, member.GroupID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check group: %w", err)
	}
	if !exists {
		return fmt.Errorf("group %s %w", member.GroupID, domain.ErrNotFound)
	}

	var position int
	err = dbTx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM members WHERE group_id = $1`, member.GroupID).Scan(&position)
	if err != nil {
		return fmt.Errorf("failed to compute member position: %w", err)
	}

	if err := insertMember(ctx, dbTx, member, position); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListIDs returns every group ID, oldest group first
func (r *groupRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM expense_groups ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}
	return ids, nil
}

func insertMember(ctx context.Context, dbTx *sql.Tx, m *domain.Member, position int) error {
	query := `
		INSERT INTO members (id, group_id, name, position, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := dbTx.ExecContext(ctx, query, m.ID, m.GroupID, m.Name, position, m.JoinedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}
